package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/analysis/report/abc":              "/analysis/report/{id}",
		"/analysis/report/abc/wordcloud":    "/analysis/report/{id}/wordcloud",
		"/analysis/work/w-1/reports":        "/analysis/work/{workId}/reports",
		"/analysis/work/w-1/reports/export": "/analysis/work/{workId}/reports/export",
		"/analysis/start":                   "/analysis/start",
		"/healthz":                          "/healthz",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMiddlewareCountsRateLimited(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/analysis/report/r-1", nil))

	got := testutil.ToFloat64(m.rateLimitedTotal.WithLabelValues("api", "/analysis/report/{id}"))
	if got != 1 {
		t.Fatalf("expected 1 rate limited request, got %v", got)
	}
}

func TestAnalysisMetricsShareRegistry(t *testing.T) {
	httpMetrics := NewHTTPServerMetrics("api")
	analysis := NewAnalysisMetrics("api", httpMetrics.Registry())

	analysis.StartAnalysis(time.Second)
	analysis.FinishAnalysis("Completed", 2*time.Second)
	analysis.SetBacklog(3)

	if got := testutil.ToFloat64(analysis.analysisTotal.WithLabelValues("api", "completed")); got != 1 {
		t.Fatalf("expected 1 completed analysis, got %v", got)
	}
	if got := testutil.ToFloat64(analysis.analysisInFlight); got != 0 {
		t.Fatalf("expected no in-flight analyses, got %v", got)
	}

	families, err := httpMetrics.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "plagiarism_worker_backlog" {
			found = true
		}
	}
	if !found {
		t.Fatalf("worker metrics not exposed on the shared registry")
	}
}
