package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
	"github.com/kirillkom/plagiarism-analysis/internal/core/ports"
)

const submittedAtLayout = "2006-01-02 15:04:05"

// PlagiarismDetector flags a work whose content hash matches an earlier
// submission of the same assignment. A storage outage yields a clean verdict.
type PlagiarismDetector struct {
	source ports.SubmissionSource
	logger *slog.Logger
	now    func() time.Time
}

func NewPlagiarismDetector(source ports.SubmissionSource, logger *slog.Logger) *PlagiarismDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlagiarismDetector{
		source: source,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (d *PlagiarismDetector) Detect(ctx context.Context, fileHash, assignmentID, ownWorkID string) domain.PlagiarismVerdict {
	if fileHash == "" || assignmentID == "" {
		return domain.PlagiarismVerdict{Outcome: domain.OutcomeNoData}
	}

	submissions, err := d.source.ListByAssignment(ctx, assignmentID)
	if err != nil {
		d.logger.Warn("plagiarism_check_degraded",
			"assignment_id", assignmentID,
			"work_id", ownWorkID,
			"error", err,
		)
		return domain.PlagiarismVerdict{Outcome: domain.OutcomeDegraded}
	}

	checkedAt := d.now()
	match, ok := earliestMatch(submissions, fileHash, ownWorkID, checkedAt)
	if !ok {
		return domain.PlagiarismVerdict{Outcome: domain.OutcomeNoData}
	}

	details := fmt.Sprintf(
		"Plagiarism detected: identical content was submitted earlier by student %s (%s).",
		match.StudentName,
		match.SubmittedAt.Format(submittedAtLayout),
	)
	return domain.PlagiarismVerdict{
		HasPlagiarism: true,
		Details:       &details,
		MatchedWorkID: match.ID,
		Outcome:       domain.OutcomeOK,
	}
}

// earliestMatch picks the oldest submission with the same hash, ties by id.
func earliestMatch(submissions []domain.Submission, fileHash, ownWorkID string, before time.Time) (domain.Submission, bool) {
	var (
		best  domain.Submission
		found bool
	)
	for _, s := range submissions {
		// Work ids are GUIDs; storage and callers may disagree on letter case.
		if strings.EqualFold(s.ID, ownWorkID) || s.FileHash != fileHash || !s.SubmittedAt.Before(before) {
			continue
		}
		if !found ||
			s.SubmittedAt.Before(best.SubmittedAt) ||
			(s.SubmittedAt.Equal(best.SubmittedAt) && s.ID < best.ID) {
			best = s
			found = true
		}
	}
	return best, found
}
