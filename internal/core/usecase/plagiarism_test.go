package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

var checkTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newDetector(source *sourceFake) *PlagiarismDetector {
	d := NewPlagiarismDetector(source, quietLogger())
	d.now = fixedClock(checkTime)
	return d
}

func TestDetectPicksEarliestMatchingSubmission(t *testing.T) {
	source := &sourceFake{submissions: []domain.Submission{
		{ID: "own", StudentName: "Me", FileHash: "H", SubmittedAt: checkTime.Add(-time.Minute)},
		{ID: "later", StudentName: "Bob", FileHash: "H", SubmittedAt: time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)},
		{ID: "earliest", StudentName: "Alice", FileHash: "H", SubmittedAt: time.Date(2026, 2, 10, 8, 30, 15, 0, time.UTC)},
		{ID: "other-hash", StudentName: "Eve", FileHash: "X", SubmittedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "future", StudentName: "Tim", FileHash: "H", SubmittedAt: checkTime.Add(time.Hour)},
	}}

	verdict := newDetector(source).Detect(context.Background(), "H", "hw-1", "own")
	if !verdict.HasPlagiarism || verdict.Outcome != domain.OutcomeOK {
		t.Fatalf("expected plagiarism, got %+v", verdict)
	}
	if verdict.MatchedWorkID != "earliest" {
		t.Fatalf("expected earliest match, got %s", verdict.MatchedWorkID)
	}
	want := "Plagiarism detected: identical content was submitted earlier by student Alice (2026-02-10 08:30:15)."
	if verdict.Details == nil || *verdict.Details != want {
		t.Fatalf("unexpected details: %v", verdict.Details)
	}
}

func TestDetectBreaksTimestampTiesByID(t *testing.T) {
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	source := &sourceFake{submissions: []domain.Submission{
		{ID: "b", StudentName: "B", FileHash: "H", SubmittedAt: at},
		{ID: "a", StudentName: "A", FileHash: "H", SubmittedAt: at},
	}}

	verdict := newDetector(source).Detect(context.Background(), "H", "hw-1", "own")
	if verdict.MatchedWorkID != "a" {
		t.Fatalf("expected tie broken by id, got %s", verdict.MatchedWorkID)
	}
}

func TestDetectIgnoresOwnWorkRegardlessOfIDCase(t *testing.T) {
	source := &sourceFake{submissions: []domain.Submission{
		{ID: "3f2b8c1e-0000-4a5b-9c6d-00000000abcd", StudentName: "Me", FileHash: "H", SubmittedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}}

	verdict := newDetector(source).Detect(context.Background(), "H", "hw-1", "3F2B8C1E-0000-4A5B-9C6D-00000000ABCD")
	if verdict.HasPlagiarism || verdict.Details != nil {
		t.Fatalf("own submission must not count as a match, got %+v", verdict)
	}
	if verdict.Outcome != domain.OutcomeNoData {
		t.Fatalf("expected no_data outcome, got %s", verdict.Outcome)
	}
}

func TestDetectNoMatch(t *testing.T) {
	source := &sourceFake{submissions: []domain.Submission{
		{ID: "other", FileHash: "X", SubmittedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}

	verdict := newDetector(source).Detect(context.Background(), "H", "hw-1", "own")
	if verdict.HasPlagiarism || verdict.Details != nil {
		t.Fatalf("expected clean verdict, got %+v", verdict)
	}
	if verdict.Outcome != domain.OutcomeNoData {
		t.Fatalf("expected no_data outcome, got %s", verdict.Outcome)
	}
}

func TestDetectDegradesOnStorageError(t *testing.T) {
	source := &sourceFake{listErr: errors.New("connection refused")}

	verdict := newDetector(source).Detect(context.Background(), "H", "hw-1", "own")
	if verdict.HasPlagiarism || verdict.Details != nil {
		t.Fatalf("storage outage must never flag plagiarism: %+v", verdict)
	}
	if verdict.Outcome != domain.OutcomeDegraded {
		t.Fatalf("expected degraded outcome, got %s", verdict.Outcome)
	}
}

func TestDetectSkipsStorageWithoutHashOrAssignment(t *testing.T) {
	source := &sourceFake{}
	detector := newDetector(source)

	detector.Detect(context.Background(), "", "hw-1", "own")
	detector.Detect(context.Background(), "H", "", "own")
	if source.listCalls != 0 {
		t.Fatalf("expected no storage calls, got %d", source.listCalls)
	}
}
