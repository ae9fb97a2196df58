package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
	"github.com/kirillkom/plagiarism-analysis/internal/core/ports"
)

type StartAnalysisUseCase struct {
	repo       ports.ReportRepository
	dispatcher ports.TaskDispatcher
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

func NewStartAnalysisUseCase(
	repo ports.ReportRepository,
	dispatcher ports.TaskDispatcher,
	logger *slog.Logger,
) *StartAnalysisUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &StartAnalysisUseCase{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Start persists a Pending report and hands the analysis to background
// execution. The returned report is the snapshot as created; execution may
// already have moved the stored record on by the time the caller sees it.
func (uc *StartAnalysisUseCase) Start(
	ctx context.Context,
	workID, fileHash, assignmentID string,
) (*domain.AnalysisReport, error) {
	workID = strings.TrimSpace(workID)
	if workID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "start analysis", errors.New("workId is required"))
	}

	now := uc.now()
	report := &domain.AnalysisReport{
		ID:        uc.newID(),
		WorkID:    workID,
		Status:    domain.StatusPending,
		CreatedAt: now,
	}
	if err := uc.repo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	created := report.Clone()

	task := domain.AnalysisTask{
		ReportID:     report.ID,
		WorkID:       workID,
		FileHash:     strings.TrimSpace(fileHash),
		AssignmentID: strings.TrimSpace(assignmentID),
		EnqueuedAt:   now,
	}
	if err := uc.dispatcher.Dispatch(ctx, task); err != nil {
		uc.markRejected(ctx, report, err)
		if !domain.IsKind(err, domain.ErrTemporary) {
			err = domain.WrapError(domain.ErrTemporary, "dispatch analysis", err)
		}
		return nil, &domain.DispatchRejectedError{
			ReportID: report.ID,
			Err:      fmt.Errorf("dispatch analysis task: %w", err),
		}
	}

	uc.logger.Info("analysis_started",
		"report_id", report.ID,
		"work_id", workID,
		"assignment_id", task.AssignmentID,
	)
	return created, nil
}

// markRejected is best-effort; the caller gets the dispatch error regardless.
func (uc *StartAnalysisUseCase) markRejected(ctx context.Context, report *domain.AnalysisReport, cause error) {
	if err := report.Transition(domain.StatusFailed, uc.now()); err != nil {
		uc.logger.Error("mark_rejected_transition_failed", "report_id", report.ID, "error", err)
		return
	}
	report.Error = "dispatch rejected: " + cause.Error()
	if err := uc.repo.Update(context.WithoutCancel(ctx), report); err != nil {
		uc.logger.Error("mark_rejected_persist_failed", "report_id", report.ID, "error", err)
	}
}
