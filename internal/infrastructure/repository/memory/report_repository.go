package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

// ReportRepository is an in-process store. Records are copied on the way in
// and out, so callers never share state with the store.
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*domain.AnalysisReport
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{reports: make(map[string]*domain.AnalysisReport)}
}

func (r *ReportRepository) Create(_ context.Context, report *domain.AnalysisReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[report.ID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create report", fmt.Errorf("duplicate id=%s", report.ID))
	}
	r.reports[report.ID] = report.Clone()
	return nil
}

func (r *ReportRepository) GetByID(_ context.Context, id string) (*domain.AnalysisReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrReportNotFound, "get report", fmt.Errorf("id=%s", id))
	}
	return report.Clone(), nil
}

func (r *ReportRepository) Update(_ context.Context, report *domain.AnalysisReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reports[report.ID]; !ok {
		return domain.WrapError(domain.ErrReportNotFound, "update report", fmt.Errorf("id=%s", report.ID))
	}
	r.reports[report.ID] = report.Clone()
	return nil
}

func (r *ReportRepository) ListByWorkID(_ context.Context, workID string) ([]domain.AnalysisReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AnalysisReport, 0)
	for _, report := range r.reports {
		if report.WorkID == workID {
			out = append(out, *report.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
