package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AnalysisMetrics tracks background analysis execution.
type AnalysisMetrics struct {
	registry *prometheus.Registry
	service  string

	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisInFlight prometheus.Gauge
	queueLag         *prometheus.HistogramVec
	backlog          prometheus.Gauge
	rejectedTotal    *prometheus.CounterVec
}

// NewAnalysisMetrics registers on registry, or on a fresh one when nil.
func NewAnalysisMetrics(service string, registry *prometheus.Registry) *AnalysisMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "analysis_total",
			Help:      "Total executed analyses by final report status.",
		},
		[]string{"service", "status"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "analysis_duration_seconds",
			Help:      "Analysis duration in seconds by final report status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	analysisInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "analysis_in_flight",
			Help:        "Number of analyses currently executing.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between task dispatch and execution start.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service"},
	)
	backlog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "backlog",
			Help:        "Tasks accepted but not yet picked up by a worker.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "dispatch_rejected_total",
			Help:      "Tasks rejected at dispatch time by reason.",
		},
		[]string{"service", "reason"},
	)

	registry.MustRegister(analysisTotal, analysisDuration, analysisInFlight, queueLag, backlog, rejectedTotal)

	return &AnalysisMetrics{
		registry:         registry,
		service:          service,
		analysisTotal:    analysisTotal,
		analysisDuration: analysisDuration,
		analysisInFlight: analysisInFlight,
		queueLag:         queueLag,
		backlog:          backlog,
		rejectedTotal:    rejectedTotal,
	}
}

func (m *AnalysisMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *AnalysisMetrics) StartAnalysis(lag time.Duration) {
	m.analysisInFlight.Inc()
	if lag >= 0 {
		m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
	}
}

// FinishAnalysis records one execution; status is the final report status,
// or "error" when the report could not be moved to a terminal state.
func (m *AnalysisMetrics) FinishAnalysis(status string, duration time.Duration) {
	m.analysisInFlight.Dec()
	if status == "" {
		status = "error"
	}
	status = strings.ToLower(status)
	m.analysisTotal.WithLabelValues(m.service, status).Inc()
	m.analysisDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *AnalysisMetrics) SetBacklog(n int) {
	m.backlog.Set(float64(n))
}

func (m *AnalysisMetrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(m.service, reason).Inc()
}
