package ports

import (
	"context"
	"io"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

// AnalysisStarter is the inbound contract for creating analysis reports.
type AnalysisStarter interface {
	Start(ctx context.Context, workID, fileHash, assignmentID string) (*domain.AnalysisReport, error)
}

// AnalysisExecutor is the inbound contract for the background part of an analysis.
type AnalysisExecutor interface {
	Execute(ctx context.Context, task domain.AnalysisTask) (*domain.AnalysisOutcome, error)
}

// ReportReader is the inbound read model for report state.
type ReportReader interface {
	GetReport(ctx context.Context, reportID string) (*domain.AnalysisReport, error)
	ListReportsForWork(ctx context.Context, workID string) ([]domain.AnalysisReport, error)
	GetWorkReportsSummary(ctx context.Context, workID string) (*domain.WorkReportsSummary, error)
	WordCloud(ctx context.Context, reportID string) (*domain.WordCloud, error)
}

// ReportExporter renders a work's report history as a downloadable document.
type ReportExporter interface {
	ExportWorkReports(ctx context.Context, workID string, w io.Writer) error
}
