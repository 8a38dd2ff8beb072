// Package analysis owns the analysis job lifecycle: admission, persistence,
// background processing and status reads.
package analysis

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// SourceKind is the input modality of a job.
type SourceKind string

const (
	SourceCV     SourceKind = "cv"
	SourceGitHub SourceKind = "github"
)

// ParseSourceKind maps the request value to a SourceKind. Empty means cv.
func ParseSourceKind(raw string) (SourceKind, error) {
	switch SourceKind(raw) {
	case "", SourceCV:
		return SourceCV, nil
	case SourceGitHub:
		return SourceGitHub, nil
	default:
		return "", fmt.Errorf("unknown source type %q", raw)
	}
}

// Job is one analysis request and its lifecycle record.
type Job struct {
	ID             string
	OwnerID        string
	SourceType     SourceKind
	SourceInput    string
	JobDescription string
	SourceFileKey  string
	Status         Status
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
