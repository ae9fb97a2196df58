package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plagiarism"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestInFlight  prometheus.Gauge
	analysisStarts   *prometheus.CounterVec
	wordCloudsTotal  *prometheus.CounterVec
	exportsTotal     *prometheus.CounterVec
	rateLimitedTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	analysisStarts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "analysis_starts_total",
			Help:      "Analysis start requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	wordCloudsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "word_clouds_total",
			Help:      "Word cloud requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	exportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "exports_total",
			Help:      "Report exports by outcome.",
		},
		[]string{"service", "outcome"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
		[]string{"service", "path"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		analysisStarts,
		wordCloudsTotal,
		exportsTotal,
		rateLimitedTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		analysisStarts:   analysisStarts,
		wordCloudsTotal:  wordCloudsTotal,
		exportsTotal:     exportsTotal,
		rateLimitedTotal: rateLimitedTotal,
	}
}

// Registry lets in-process components (the local worker pool) publish on the
// same /metrics endpoint.
func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
		if recorder.statusCode == http.StatusTooManyRequests {
			m.rateLimitedTotal.WithLabelValues(service, path).Inc()
		}
	})
}

// normalizePath collapses ids so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/analysis/report/") && strings.HasSuffix(path, "/wordcloud"):
		return "/analysis/report/{id}/wordcloud"
	case strings.HasPrefix(path, "/analysis/report/"):
		return "/analysis/report/{id}"
	case strings.HasPrefix(path, "/analysis/work/") && strings.HasSuffix(path, "/reports/export"):
		return "/analysis/work/{workId}/reports/export"
	case strings.HasPrefix(path, "/analysis/work/"):
		return "/analysis/work/{workId}/reports"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordAnalysisStart(service, outcome string) {
	m.analysisStarts.WithLabelValues(service, outcomeLabel(outcome)).Inc()
}

func (m *HTTPServerMetrics) RecordWordCloud(service, outcome string) {
	m.wordCloudsTotal.WithLabelValues(service, outcomeLabel(outcome)).Inc()
}

func (m *HTTPServerMetrics) RecordExport(service, outcome string) {
	m.exportsTotal.WithLabelValues(service, outcomeLabel(outcome)).Inc()
}

func outcomeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
