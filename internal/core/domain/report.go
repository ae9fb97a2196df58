package domain

import (
	"fmt"
	"time"
)

type ReportStatus string

const (
	StatusPending    ReportStatus = "Pending"
	StatusProcessing ReportStatus = "Processing"
	StatusCompleted  ReportStatus = "Completed"
	StatusFailed     ReportStatus = "Failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s ReportStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo enforces the monotonic lifecycle
// Pending -> Processing -> {Completed, Failed}; Pending may also fail directly
// when the task could not be dispatched.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

type AnalysisReport struct {
	ID                string        `json:"id"`
	WorkID            string        `json:"workId"`
	Status            ReportStatus  `json:"status"`
	HasPlagiarism     bool          `json:"hasPlagiarism"`
	PlagiarismDetails *string       `json:"plagiarismDetails,omitempty"`
	WordFrequency     WordFrequency `json:"wordFrequency,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	CompletedAt       *time.Time    `json:"completedAt,omitempty"`
	ArchivePath       *string       `json:"archivePath,omitempty"`
	Error             string        `json:"error,omitempty"`
}

// Transition moves the report to next and stamps CompletedAt when next is terminal.
func (r *AnalysisReport) Transition(next ReportStatus, now time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return WrapError(ErrInvalidTransition, "report transition", fmt.Errorf("%s -> %s", r.Status, next))
	}
	r.Status = next
	if next.IsTerminal() {
		completedAt := now.UTC()
		r.CompletedAt = &completedAt
	}
	return nil
}

// Clone returns a deep copy, so callers can mutate a working copy without
// touching the last persisted snapshot.
func (r *AnalysisReport) Clone() *AnalysisReport {
	if r == nil {
		return nil
	}
	out := *r
	if r.PlagiarismDetails != nil {
		details := *r.PlagiarismDetails
		out.PlagiarismDetails = &details
	}
	if r.CompletedAt != nil {
		completedAt := *r.CompletedAt
		out.CompletedAt = &completedAt
	}
	if r.ArchivePath != nil {
		path := *r.ArchivePath
		out.ArchivePath = &path
	}
	out.WordFrequency = r.WordFrequency.Clone()
	return &out
}

type ReportInfo struct {
	ReportID      string       `json:"reportId"`
	Status        ReportStatus `json:"status"`
	HasPlagiarism bool         `json:"hasPlagiarism"`
	CreatedAt     time.Time    `json:"createdAt"`
}

type WorkReportsSummary struct {
	WorkID  string       `json:"workId"`
	Reports []ReportInfo `json:"reports"`
}

// AnalysisTask is the unit of background work handed to a dispatcher.
type AnalysisTask struct {
	ReportID     string    `json:"report_id"`
	WorkID       string    `json:"work_id"`
	FileHash     string    `json:"file_hash"`
	AssignmentID string    `json:"assignment_id"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

type WordCloud struct {
	ReportID     string `json:"reportId"`
	WordCloudURL string `json:"wordCloudUrl"`
}
