package ports

import (
	"context"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

// ReportRepository persists and reads report state. Update replaces the whole
// record atomically; GetByID returns domain.ErrReportNotFound for unknown ids.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.AnalysisReport) error
	GetByID(ctx context.Context, id string) (*domain.AnalysisReport, error)
	Update(ctx context.Context, report *domain.AnalysisReport) error
	ListByWorkID(ctx context.Context, workID string) ([]domain.AnalysisReport, error)
}

// SubmissionSource is the file storage collaborator.
type SubmissionSource interface {
	ListByAssignment(ctx context.Context, assignmentID string) ([]domain.Submission, error)
	FetchContent(ctx context.Context, workID string) ([]byte, error)
}

// FrequencyExtractor builds the ranked word profile of a text.
type FrequencyExtractor interface {
	Extract(text string) domain.WordFrequency
}

// ContentDecoder turns raw bytes into text, reporting false for non-text content.
type ContentDecoder interface {
	DecodeText(raw []byte) (string, bool)
}

// PlagiarismDetector decides the verdict for one submission.
type PlagiarismDetector interface {
	Detect(ctx context.Context, fileHash, assignmentID, ownWorkID string) domain.PlagiarismVerdict
}

// ReportArchiver writes the durable snapshot of a report and returns its locator.
type ReportArchiver interface {
	Archive(ctx context.Context, report *domain.AnalysisReport) (string, error)
}

// TaskDispatcher hands an analysis task to background execution without waiting for it.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, task domain.AnalysisTask) error
}

// TaskConsumer delivers dispatched tasks to handler until ctx is done.
type TaskConsumer interface {
	SubscribeAnalysisTasks(ctx context.Context, handler func(context.Context, domain.AnalysisTask) error) error
}

// WordCloudRenderer returns a display URL for a frequency map.
type WordCloudRenderer interface {
	Render(ctx context.Context, freq domain.WordFrequency) (string, error)
}
