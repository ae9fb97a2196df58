package nats

import (
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

func TestTaskCodecRoundTrip(t *testing.T) {
	enqueued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	payload, err := encodeTask(domain.AnalysisTask{
		ReportID:     "r-1",
		WorkID:       "w-1",
		FileHash:     "abc",
		AssignmentID: "hw-1",
		EnqueuedAt:   enqueued,
	})
	if err != nil {
		t.Fatalf("encodeTask() error = %v", err)
	}

	task, err := decodeTask(payload)
	if err != nil {
		t.Fatalf("decodeTask() error = %v", err)
	}
	if task.ReportID != "r-1" || task.AssignmentID != "hw-1" || !task.EnqueuedAt.Equal(enqueued) {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestDecodeTaskRejectsMissingReportID(t *testing.T) {
	_, err := decodeTask([]byte(`{"work_id":"w-1"}`))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	if _, err := decodeTask([]byte("r-1")); err == nil {
		t.Fatalf("expected error for a bare id payload")
	}
}

func TestAsDispatchErrorMarksTransientFailuresTemporary(t *testing.T) {
	if err := asDispatchError(nats.ErrNoServers); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected no-servers to be temporary, got %v", err)
	}

	permanent := errors.New("nats: invalid subject")
	if err := asDispatchError(permanent); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error to stay permanent, got %v", err)
	}
}
