package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

var executeStart = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type executeFixture struct {
	repo      *reportRepoFake
	source    *sourceFake
	extractor extractorFake
	detector  *detectorFake
	archiver  *archiverFake
}

func newExecuteFixture() *executeFixture {
	return &executeFixture{
		repo: newReportRepoFake(&domain.AnalysisReport{
			ID:        "r-1",
			WorkID:    "w-1",
			Status:    domain.StatusPending,
			CreatedAt: executeStart,
		}),
		source:    &sourceFake{content: []byte("cat dog cat")},
		extractor: extractorFake{freq: domain.WordFrequency{{Word: "cat", Count: 2}, {Word: "dog", Count: 1}}},
		detector:  &detectorFake{verdict: domain.PlagiarismVerdict{Outcome: domain.OutcomeNoData}},
		archiver:  &archiverFake{},
	}
}

func (f *executeFixture) useCase() *ExecuteAnalysisUseCase {
	uc := NewExecuteAnalysisUseCase(f.repo, f.source, decoderFake{}, f.extractor, f.detector, f.archiver, quietLogger())
	uc.now = fixedClock(executeStart.Add(time.Second))
	return uc
}

func testTask() domain.AnalysisTask {
	return domain.AnalysisTask{ReportID: "r-1", WorkID: "w-1", FileHash: "H", AssignmentID: "hw-1"}
}

func TestExecuteCompletesReport(t *testing.T) {
	f := newExecuteFixture()
	details := "Plagiarism detected: identical content was submitted earlier by student Alice (2026-02-10 08:30:15)."
	f.detector.verdict = domain.PlagiarismVerdict{HasPlagiarism: true, Details: &details, MatchedWorkID: "w-0", Outcome: domain.OutcomeOK}

	outcome, err := f.useCase().Execute(context.Background(), testTask())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.FinalStatus != domain.StatusCompleted || outcome.WordCount != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	stored := f.repo.stored("r-1")
	if stored.Status != domain.StatusCompleted || stored.CompletedAt == nil {
		t.Fatalf("expected Completed with completedAt, got %+v", stored)
	}
	if !stored.HasPlagiarism || stored.PlagiarismDetails == nil || *stored.PlagiarismDetails != details {
		t.Fatalf("verdict not persisted: %+v", stored)
	}
	if stored.ArchivePath == nil || *stored.ArchivePath != "/archive/r-1.json" {
		t.Fatalf("archive path not persisted: %+v", stored.ArchivePath)
	}
	if len(stored.WordFrequency) != 2 || stored.WordFrequency[0].Word != "cat" {
		t.Fatalf("frequency not persisted: %+v", stored.WordFrequency)
	}

	if len(f.repo.updates) != 2 || f.repo.updates[0].Status != domain.StatusProcessing {
		t.Fatalf("expected Processing then Completed updates, got %+v", f.repo.updates)
	}
	if len(f.archiver.archived) != 1 || f.archiver.archived[0].Status != domain.StatusCompleted {
		t.Fatalf("archive snapshot must carry the terminal status: %+v", f.archiver.archived)
	}
}

func TestExecuteDegradesWhenContentUnavailable(t *testing.T) {
	f := newExecuteFixture()
	f.source.fetchErr = errors.New("storage timeout")

	outcome, err := f.useCase().Execute(context.Background(), testTask())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.Content.Outcome != domain.OutcomeDegraded {
		t.Fatalf("expected degraded content, got %+v", outcome.Content)
	}
	if f.detector.calls != 0 {
		t.Fatalf("detector must not run without content")
	}

	stored := f.repo.stored("r-1")
	if stored.Status != domain.StatusCompleted || stored.WordFrequency != nil || stored.HasPlagiarism {
		t.Fatalf("expected Completed without data, got %+v", stored)
	}
	if len(f.archiver.archived) != 1 {
		t.Fatalf("report must be archived even without data")
	}
}

func TestExecuteSkipsExtractionForBinaryContent(t *testing.T) {
	f := newExecuteFixture()
	f.source.content = []byte{0x00, 0x01, 0x02}

	outcome, err := f.useCase().Execute(context.Background(), testTask())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.Content.Outcome != domain.OutcomeNoData || outcome.Verdict.Outcome != domain.OutcomeNoData {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if stored := f.repo.stored("r-1"); stored.Status != domain.StatusCompleted || stored.WordFrequency != nil {
		t.Fatalf("expected Completed without frequency, got %+v", stored)
	}
}

func TestExecuteLeavesFrequencyAbsentForEmptyExtraction(t *testing.T) {
	f := newExecuteFixture()
	f.extractor = extractorFake{freq: domain.WordFrequency{}}

	if _, err := f.useCase().Execute(context.Background(), testTask()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if stored := f.repo.stored("r-1"); stored.WordFrequency != nil {
		t.Fatalf("expected absent frequency, got %+v", stored.WordFrequency)
	}
}

func TestExecuteFailsWhenArchiveFails(t *testing.T) {
	f := newExecuteFixture()
	f.archiver.err = errors.New("disk full")

	outcome, err := f.useCase().Execute(context.Background(), testTask())
	if err == nil {
		t.Fatalf("expected error")
	}
	if outcome.FinalStatus != domain.StatusFailed {
		t.Fatalf("expected Failed outcome, got %s", outcome.FinalStatus)
	}

	stored := f.repo.stored("r-1")
	if stored.Status != domain.StatusFailed || stored.CompletedAt == nil {
		t.Fatalf("expected Failed with completedAt, got %+v", stored)
	}
	if stored.WordFrequency != nil || stored.ArchivePath != nil {
		t.Fatalf("partial results must not be persisted on failure: %+v", stored)
	}
	if stored.Error == "" {
		t.Fatalf("expected failure reason")
	}
}

func TestExecuteFailsWhenFinalPersistFails(t *testing.T) {
	f := newExecuteFixture()
	f.repo.updateErrs = []error{nil, errors.New("db down")}

	outcome, err := f.useCase().Execute(context.Background(), testTask())
	if err == nil {
		t.Fatalf("expected error")
	}
	if outcome.FinalStatus != domain.StatusFailed {
		t.Fatalf("expected Failed, got %s", outcome.FinalStatus)
	}
	if stored := f.repo.stored("r-1"); stored.Status != domain.StatusFailed {
		t.Fatalf("expected stored Failed, got %s", stored.Status)
	}
}

func TestExecuteLogsOnlyWhenFailedPersistFails(t *testing.T) {
	f := newExecuteFixture()
	f.archiver.err = errors.New("disk full")
	f.repo.updateErrs = []error{nil, errors.New("db down")}

	outcome, err := f.useCase().Execute(context.Background(), testTask())
	if err == nil {
		t.Fatalf("expected the archive error")
	}
	if outcome.FinalStatus != domain.StatusProcessing {
		t.Fatalf("expected last persisted status Processing, got %s", outcome.FinalStatus)
	}
	if stored := f.repo.stored("r-1"); stored.Status != domain.StatusProcessing {
		t.Fatalf("report must stay at its last persisted state, got %s", stored.Status)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	f := newExecuteFixture()
	f.source.fetchPanic = true

	outcome, err := f.useCase().Execute(context.Background(), testTask())
	if err == nil {
		t.Fatalf("expected error from recovered panic")
	}
	if outcome == nil || outcome.FinalStatus != domain.StatusFailed {
		t.Fatalf("expected Failed outcome, got %+v", outcome)
	}
	if stored := f.repo.stored("r-1"); stored.Status != domain.StatusFailed {
		t.Fatalf("expected stored Failed, got %s", stored.Status)
	}
}

func TestExecuteMarksFailedEvenWhenContextCancelled(t *testing.T) {
	f := newExecuteFixture()
	f.archiver.err = context.Canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.useCase().Execute(ctx, testTask()); err == nil {
		t.Fatalf("expected error")
	}
	if stored := f.repo.stored("r-1"); stored.Status != domain.StatusFailed {
		t.Fatalf("expected stored Failed, got %s", stored.Status)
	}
}

func TestExecuteIgnoresTerminalReport(t *testing.T) {
	f := newExecuteFixture()
	completedAt := executeStart
	f.repo = newReportRepoFake(&domain.AnalysisReport{ID: "r-1", WorkID: "w-1", Status: domain.StatusCompleted, CompletedAt: &completedAt})

	outcome, err := f.useCase().Execute(context.Background(), testTask())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if outcome.FinalStatus != domain.StatusCompleted || len(f.repo.updates) != 0 {
		t.Fatalf("terminal report must not be touched: %+v, updates=%d", outcome, len(f.repo.updates))
	}
}

func TestExecuteReturnsNotFoundForUnknownReport(t *testing.T) {
	f := newExecuteFixture()

	_, err := f.useCase().Execute(context.Background(), domain.AnalysisTask{ReportID: "missing"})
	if !domain.IsKind(err, domain.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestAbandonMarksPendingReportFailed(t *testing.T) {
	f := newExecuteFixture()

	if err := f.useCase().Abandon(context.Background(), testTask(), "worker pool shut down"); err != nil {
		t.Fatalf("Abandon() error = %v", err)
	}
	stored := f.repo.stored("r-1")
	if stored.Status != domain.StatusFailed || stored.CompletedAt == nil || stored.Error != "worker pool shut down" {
		t.Fatalf("expected Failed report with completion time and reason, got %+v", stored)
	}
	if f.detector.calls != 0 || len(f.archiver.archived) != 0 {
		t.Fatalf("abandoned task must not run detection or archiving")
	}
}

func TestAbandonLeavesTerminalReport(t *testing.T) {
	f := newExecuteFixture()
	completedAt := executeStart
	f.repo = newReportRepoFake(&domain.AnalysisReport{ID: "r-1", WorkID: "w-1", Status: domain.StatusCompleted, CompletedAt: &completedAt})

	if err := f.useCase().Abandon(context.Background(), testTask(), "worker pool shut down"); err != nil {
		t.Fatalf("Abandon() error = %v", err)
	}
	if len(f.repo.updates) != 0 {
		t.Fatalf("terminal report must not be touched, updates=%d", len(f.repo.updates))
	}
}
