package resumes

import (
	"errors"
	"strings"
)

var ErrNotFound = errors.New("resume not found")

// FieldError names one rejected input field.
type FieldError struct {
	Field string
	Issue string
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Issue)
	}
	return "invalid resume: " + strings.Join(parts, ", ")
}
