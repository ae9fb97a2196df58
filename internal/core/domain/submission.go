package domain

import "time"

// Submission is a stored work as reported by the file storage service.
type Submission struct {
	ID           string    `json:"id"`
	StudentName  string    `json:"studentName"`
	AssignmentID string    `json:"assignmentId"`
	FileName     string    `json:"fileName,omitempty"`
	FileHash     string    `json:"fileHash"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Outcome tells which path a pipeline stage took.
type Outcome string

const (
	// OutcomeOK means the stage produced data.
	OutcomeOK Outcome = "ok"
	// OutcomeNoData means the stage ran but found nothing to report
	// (non-text content, no hash match).
	OutcomeNoData Outcome = "no_data"
	// OutcomeDegraded means an optional collaborator failed and the stage
	// fell back to an empty result.
	OutcomeDegraded Outcome = "degraded"
)

type ContentResult struct {
	Text    string
	Outcome Outcome
	Reason  string
}

func (c ContentResult) HasText() bool {
	return c.Outcome == OutcomeOK
}

type PlagiarismVerdict struct {
	HasPlagiarism bool
	Details       *string
	MatchedWorkID string
	Outcome       Outcome
}

// AnalysisOutcome summarizes one execution for callers that need to assert on
// the degradation path taken.
type AnalysisOutcome struct {
	ReportID    string
	FinalStatus ReportStatus
	Content     ContentResult
	Verdict     PlagiarismVerdict
	WordCount   int
	ArchivePath string
}
