package domain

import (
	"errors"
	"fmt"
)

var (
	ErrReportNotFound    = errors.New("report not found")
	ErrNoFrequencyData   = errors.New("word frequency data not available")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// DispatchRejectedError is returned by Start when the report was persisted
// but its task could not be handed off. ReportID points at the Failed report.
type DispatchRejectedError struct {
	ReportID string
	Err      error
}

func (e *DispatchRejectedError) Error() string {
	return fmt.Sprintf("report %s: %v", e.ReportID, e.Err)
}

func (e *DispatchRejectedError) Unwrap() error {
	return e.Err
}
