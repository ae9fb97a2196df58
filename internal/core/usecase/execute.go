package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
	"github.com/kirillkom/plagiarism-analysis/internal/core/ports"
)

type ExecuteAnalysisUseCase struct {
	repo      ports.ReportRepository
	source    ports.SubmissionSource
	decoder   ports.ContentDecoder
	extractor ports.FrequencyExtractor
	detector  ports.PlagiarismDetector
	archiver  ports.ReportArchiver
	logger    *slog.Logger
	now       func() time.Time
}

func NewExecuteAnalysisUseCase(
	repo ports.ReportRepository,
	source ports.SubmissionSource,
	decoder ports.ContentDecoder,
	extractor ports.FrequencyExtractor,
	detector ports.PlagiarismDetector,
	archiver ports.ReportArchiver,
	logger *slog.Logger,
) *ExecuteAnalysisUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecuteAnalysisUseCase{
		repo:      repo,
		source:    source,
		decoder:   decoder,
		extractor: extractor,
		detector:  detector,
		archiver:  archiver,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs the background part of an analysis:
// Processing -> content -> frequency + verdict -> archive -> Completed.
// Any error, including a panic, moves the report to Failed from the last
// persisted snapshot. The returned outcome tells which path was taken.
func (uc *ExecuteAnalysisUseCase) Execute(ctx context.Context, task domain.AnalysisTask) (outcome *domain.AnalysisOutcome, err error) {
	report, err := uc.repo.GetByID(ctx, task.ReportID)
	if err != nil {
		if domain.IsKind(err, domain.ErrReportNotFound) {
			uc.logger.Warn("analysis_report_missing", "report_id", task.ReportID)
		}
		return nil, fmt.Errorf("load report: %w", err)
	}

	outcome = &domain.AnalysisOutcome{ReportID: report.ID, FinalStatus: report.Status}
	if report.Status.IsTerminal() {
		uc.logger.Info("analysis_already_final", "report_id", report.ID, "status", report.Status)
		return outcome, nil
	}

	persisted := report.Clone()
	defer func() {
		if rec := recover(); rec != nil {
			err = uc.fail(ctx, persisted, fmt.Errorf("analysis panic: %v", rec), outcome)
		}
	}()

	working := report.Clone()
	if working.Status == domain.StatusPending {
		if err := working.Transition(domain.StatusProcessing, uc.now()); err != nil {
			return outcome, uc.fail(ctx, persisted, err, outcome)
		}
		if err := uc.repo.Update(ctx, working); err != nil {
			return outcome, uc.fail(ctx, persisted, fmt.Errorf("set status=processing: %w", err), outcome)
		}
		persisted = working.Clone()
		outcome.FinalStatus = domain.StatusProcessing
	}

	outcome.Content = uc.fetchContent(ctx, working.WorkID)
	if outcome.Content.HasText() {
		freq := uc.extractor.Extract(outcome.Content.Text)
		if len(freq) > 0 {
			working.WordFrequency = freq
		}
		outcome.Verdict = uc.detector.Detect(ctx, task.FileHash, task.AssignmentID, working.WorkID)
		working.HasPlagiarism = outcome.Verdict.HasPlagiarism
		working.PlagiarismDetails = outcome.Verdict.Details
	} else {
		outcome.Verdict = domain.PlagiarismVerdict{Outcome: domain.OutcomeNoData}
	}
	outcome.WordCount = len(working.WordFrequency)

	if err := working.Transition(domain.StatusCompleted, uc.now()); err != nil {
		return outcome, uc.fail(ctx, persisted, err, outcome)
	}

	locator, err := uc.archiver.Archive(ctx, working)
	if err != nil {
		return outcome, uc.fail(ctx, persisted, fmt.Errorf("archive report: %w", err), outcome)
	}
	working.ArchivePath = &locator

	if err := uc.repo.Update(ctx, working); err != nil {
		return outcome, uc.fail(ctx, persisted, fmt.Errorf("set status=completed: %w", err), outcome)
	}

	outcome.FinalStatus = domain.StatusCompleted
	outcome.ArchivePath = locator
	return outcome, nil
}

// Abandon marks a task's report Failed without running the analysis. Reports
// that already reached a terminal state are left alone.
func (uc *ExecuteAnalysisUseCase) Abandon(ctx context.Context, task domain.AnalysisTask, reason string) error {
	report, err := uc.repo.GetByID(ctx, task.ReportID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if report.Status.IsTerminal() {
		return nil
	}
	if err := report.Transition(domain.StatusFailed, uc.now()); err != nil {
		return err
	}
	report.Error = reason
	if err := uc.repo.Update(ctx, report); err != nil {
		return fmt.Errorf("set status=failed: %w", err)
	}
	uc.logger.Warn("analysis_abandoned", "report_id", report.ID, "work_id", report.WorkID, "reason", reason)
	return nil
}

// fetchContent never fails the analysis: an unreachable store or binary
// content only means there is nothing to extract.
func (uc *ExecuteAnalysisUseCase) fetchContent(ctx context.Context, workID string) domain.ContentResult {
	raw, err := uc.source.FetchContent(ctx, workID)
	if err != nil {
		uc.logger.Warn("analysis_content_degraded", "work_id", workID, "error", err)
		return domain.ContentResult{Outcome: domain.OutcomeDegraded, Reason: err.Error()}
	}
	text, ok := uc.decoder.DecodeText(raw)
	if !ok {
		return domain.ContentResult{Outcome: domain.OutcomeNoData, Reason: "content is not text"}
	}
	return domain.ContentResult{Text: text, Outcome: domain.OutcomeOK}
}

// fail persists Failed on top of the last persisted snapshot, so partial
// results of the aborted run never reach storage. A failing persist is only
// logged; the report then stays at its last persisted state.
func (uc *ExecuteAnalysisUseCase) fail(ctx context.Context, persisted *domain.AnalysisReport, cause error, outcome *domain.AnalysisOutcome) error {
	failed := persisted.Clone()
	if err := failed.Transition(domain.StatusFailed, uc.now()); err != nil {
		uc.logger.Error("mark_failed_transition_rejected", "report_id", failed.ID, "error", err, "cause", cause)
		return cause
	}
	failed.Error = cause.Error()

	// The task context may be the reason we are here.
	if err := uc.repo.Update(context.WithoutCancel(ctx), failed); err != nil {
		uc.logger.Error("mark_failed_persist_failed", "report_id", failed.ID, "error", err, "cause", cause)
		outcome.FinalStatus = persisted.Status
		return cause
	}

	uc.logger.Warn("analysis_failed", "report_id", failed.ID, "work_id", failed.WorkID, "error", cause)
	outcome.FinalStatus = domain.StatusFailed
	return cause
}
