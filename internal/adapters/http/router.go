package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/plagiarism-analysis/internal/config"
	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
	"github.com/kirillkom/plagiarism-analysis/internal/core/ports"
	"github.com/kirillkom/plagiarism-analysis/internal/observability/metrics"
)

const (
	serviceName       = "api"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxStartBodyBytes = 1 << 16
)

type Router struct {
	cfg      config.Config
	starter  ports.AnalysisStarter
	reports  ports.ReportReader
	exporter ports.ReportExporter
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

func NewRouter(
	cfg config.Config,
	starter ports.AnalysisStarter,
	reports ports.ReportReader,
	exporter ports.ReportExporter,
) *Router {
	return &Router{
		cfg:      cfg,
		starter:  starter,
		reports:  reports,
		exporter: exporter,
		logger:   slog.Default(),
	}
}

// WithMetrics makes the router record request and domain metrics and serve
// them on /metrics.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) WithLogger(logger *slog.Logger) *Router {
	if logger != nil {
		rt.logger = logger
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	r := mux.NewRouter()
	r.UseEncodedPath()
	r.HandleFunc("/healthz", rt.healthz).Methods(http.MethodGet)
	r.HandleFunc("/openapi.yaml", serveOpenAPI).Methods(http.MethodGet)
	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics.Handler()).Methods(http.MethodGet)
	}

	// Kept on the root router: a subrouter answers a wrong method with 404.
	r.HandleFunc("/analysis/start", rt.startAnalysis).Methods(http.MethodPost)
	r.HandleFunc("/analysis/report/{id}", rt.getReport).Methods(http.MethodGet)
	r.HandleFunc("/analysis/report/{id}/wordcloud", rt.getWordCloud).Methods(http.MethodGet)
	r.HandleFunc("/analysis/work/{workId}/reports", rt.getWorkReports).Methods(http.MethodGet)
	r.HandleFunc("/analysis/work/{workId}/reports/export", rt.exportWorkReports).Methods(http.MethodGet)

	var handler http.Handler = r
	if validator, err := newRequestValidator(); err != nil {
		rt.logger.Error("openapi_validator_disabled", "error", err)
	} else {
		handler = validator.middleware(handler)
	}

	maxInFlight := rt.cfg.APIBackpressureMaxInFlight
	wait := time.Duration(rt.cfg.APIBackpressureWaitMillis) * time.Millisecond
	handler = backpressureMiddleware(handler, maxInFlight, wait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startAnalysisRequest struct {
	WorkID       string `json:"workId"`
	FileHash     string `json:"fileHash"`
	AssignmentID string `json:"assignmentId"`
}

func (rt *Router) startAnalysis(w http.ResponseWriter, r *http.Request) {
	var req startAnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStartBodyBytes)).Decode(&req); err != nil {
		rt.recordStart("invalid")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	report, err := rt.starter.Start(r.Context(), req.WorkID, req.FileHash, req.AssignmentID)
	if err != nil {
		rt.recordStart(outcomeForError(err))
		rt.writeDomainError(w, r, err)
		return
	}
	rt.recordStart("accepted")
	writeJSON(w, http.StatusOK, report)
}

// pathParam binds a simple-style path parameter the way generated OpenAPI
// servers do, so escaped ids arrive decoded.
func pathParam(r *http.Request, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, mux.Vars(r)[name], &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", fmt.Errorf("invalid path parameter %s: %w", name, err)
	}
	return value, nil
}

func (rt *Router) getReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := rt.reports.GetReport(r.Context(), id)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) getWorkReports(w http.ResponseWriter, r *http.Request) {
	workID, err := pathParam(r, "workId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := rt.reports.GetWorkReportsSummary(r.Context(), workID)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) getWordCloud(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cloud, err := rt.reports.WordCloud(r.Context(), id)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordWordCloud(serviceName, outcomeForError(err))
		}
		rt.writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordWordCloud(serviceName, "ok")
	}
	writeJSON(w, http.StatusOK, cloud)
}

func (rt *Router) exportWorkReports(w http.ResponseWriter, r *http.Request) {
	workID, err := pathParam(r, "workId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The workbook is buffered so a failed export still gets a JSON error.
	var buf bytes.Buffer
	if err = rt.exporter.ExportWorkReports(r.Context(), workID, &buf); err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordExport(serviceName, outcomeForError(err))
		}
		rt.writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordExport(serviceName, "ok")
	}

	filename := fmt.Sprintf("reports-%s.xlsx", workID)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", filename, url.PathEscape(filename)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) recordStart(outcome string) {
	if rt.metrics != nil {
		rt.metrics.RecordAnalysisStart(serviceName, outcome)
	}
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal server error")
		return
	}
	var rejected *domain.DispatchRejectedError
	if errors.As(err, &rejected) {
		writeJSON(w, status, map[string]string{
			"error":    publicMessage(err),
			"reportId": rejected.ReportID,
		})
		return
	}
	writeError(w, status, publicMessage(err))
}

// publicMessage strips operation prefixes and keeps the semantic kind.
func publicMessage(err error) string {
	for _, kind := range []error{
		domain.ErrReportNotFound,
		domain.ErrNoFrequencyData,
		domain.ErrTemporary,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return err.Error()
}

func outcomeForError(err error) string {
	switch mapErrorToHTTPStatus(err) {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
