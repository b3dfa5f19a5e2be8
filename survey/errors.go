package survey

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound covers a missing survey, question or response.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned when the caller does not own the
	// survey a mutating or read-side operation targets.
	ErrPermissionDenied = errors.New("access denied")

	// ErrMismatchedSurvey is returned when a submitted answer targets a
	// question that belongs to a different survey.
	ErrMismatchedSurvey = errors.New("question doesn't belong to this survey")
)

// ValidationError carries every answer-rule violation found in a
// submission. The whole submission fails as one unit, so all reasons are
// collected before the error is raised.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "answer validation failed: " + strings.Join(e.Reasons, "; ")
}
