package resilience

import "time"

// Config tunes one Executor. Zero values fall back to FileStoragePolicy.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// FileStoragePolicy guards calls to the file storage service: a few quick
// retries, then the breaker keeps analyses from piling onto a dead service.
func FileStoragePolicy(attempts int, breaker bool) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: 200 * time.Millisecond,
		RetryMaxBackoff:     time.Second,
		RetryMultiplier:     2.0,

		BreakerEnabled:          breaker,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.6,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}.normalize()
}

// QueuePolicy guards task publishes. Start is on the request path, so it
// retries briefly and fails over to 503 fast.
func QueuePolicy() Config {
	return Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 50 * time.Millisecond,
		RetryMaxBackoff:     200 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      3,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      10 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}

var fallback = Config{
	RetryMaxAttempts:        3,
	RetryInitialBackoff:     200 * time.Millisecond,
	RetryMaxBackoff:         time.Second,
	RetryMultiplier:         2.0,
	BreakerMinRequests:      5,
	BreakerFailureRatio:     0.6,
	BreakerOpenTimeout:      30 * time.Second,
	BreakerHalfOpenMaxCalls: 1,
}

func positiveOr[T ~int | ~int64 | ~uint32 | ~float64](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func (c Config) normalize() Config {
	out := c
	out.RetryMaxAttempts = positiveOr(out.RetryMaxAttempts, fallback.RetryMaxAttempts)
	out.RetryInitialBackoff = positiveOr(out.RetryInitialBackoff, fallback.RetryInitialBackoff)
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = max(fallback.RetryMaxBackoff, out.RetryInitialBackoff)
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = fallback.RetryMultiplier
	}

	out.BreakerMinRequests = positiveOr(out.BreakerMinRequests, fallback.BreakerMinRequests)
	if out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = 0
	}
	out.BreakerFailureRatio = positiveOr(out.BreakerFailureRatio, fallback.BreakerFailureRatio)
	out.BreakerOpenTimeout = positiveOr(out.BreakerOpenTimeout, fallback.BreakerOpenTimeout)
	out.BreakerHalfOpenMaxCalls = positiveOr(out.BreakerHalfOpenMaxCalls, fallback.BreakerHalfOpenMaxCalls)
	return out
}
