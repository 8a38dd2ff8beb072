package analysis

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("job not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrFileTooLarge       = errors.New("file too large")
	ErrQueueNotConfigured = errors.New("job queue not configured")
)

// FieldError names one rejected input field.
type FieldError struct {
	Field string
	Issue string
}

// ValidationError is returned before any job row is written.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Issue)
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// IsPermanent reports whether a processing error must not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition)
}
