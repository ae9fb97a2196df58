package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
	"github.com/kirillkom/plagiarism-analysis/internal/core/ports"
)

// ReportQueryUseCase is the read side. It never writes, so repeated reads of
// a terminal report return identical data.
type ReportQueryUseCase struct {
	repo     ports.ReportRepository
	renderer ports.WordCloudRenderer
}

func NewReportQueryUseCase(repo ports.ReportRepository, renderer ports.WordCloudRenderer) *ReportQueryUseCase {
	return &ReportQueryUseCase{repo: repo, renderer: renderer}
}

func (uc *ReportQueryUseCase) GetReport(ctx context.Context, reportID string) (*domain.AnalysisReport, error) {
	report, err := uc.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// ListReportsForWork returns the work's reports newest first.
func (uc *ReportQueryUseCase) ListReportsForWork(ctx context.Context, workID string) ([]domain.AnalysisReport, error) {
	reports, err := uc.repo.ListByWorkID(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	out := make([]domain.AnalysisReport, 0, len(reports))
	for _, r := range reports {
		if r.WorkID == workID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (uc *ReportQueryUseCase) GetWorkReportsSummary(ctx context.Context, workID string) (*domain.WorkReportsSummary, error) {
	reports, err := uc.ListReportsForWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	summary := &domain.WorkReportsSummary{
		WorkID:  workID,
		Reports: make([]domain.ReportInfo, 0, len(reports)),
	}
	for _, r := range reports {
		summary.Reports = append(summary.Reports, domain.ReportInfo{
			ReportID:      r.ID,
			Status:        r.Status,
			HasPlagiarism: r.HasPlagiarism,
			CreatedAt:     r.CreatedAt,
		})
	}
	return summary, nil
}

func (uc *ReportQueryUseCase) WordCloud(ctx context.Context, reportID string) (*domain.WordCloud, error) {
	report, err := uc.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if len(report.WordFrequency) == 0 {
		return nil, domain.WrapError(domain.ErrNoFrequencyData, "word cloud", errors.New("report has no word frequency"))
	}

	url, err := uc.renderer.Render(ctx, report.WordFrequency)
	if err != nil {
		return nil, fmt.Errorf("render word cloud: %w", err)
	}
	return &domain.WordCloud{ReportID: report.ID, WordCloudURL: url}, nil
}
