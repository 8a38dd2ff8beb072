package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cv-analyzer/internal/billing"
	"cv-analyzer/internal/github"
	"cv-analyzer/internal/queue"
	"cv-analyzer/internal/resultcache"
	"cv-analyzer/internal/shared/metrics"
	"cv-analyzer/internal/shared/storage/object"
	"cv-analyzer/internal/shared/telemetry"
)

const maxJobDescriptionChars = 20000

// Gate is the plan admission check.
type Gate interface {
	Check(ctx context.Context, ownerID string) (billing.Subscription, error)
}

// Service admits jobs and serves their status.
type Service struct {
	Repo           Repo
	Gate           Gate
	Store          object.Store
	Queue          queue.Client
	Cache          resultcache.Cache
	MaxUploadBytes int64
}

// CreateInput is the analyze request after transport decoding. File is nil
// when no upload was attached.
type CreateInput struct {
	OwnerID        string
	SourceType     string
	GitHubURL      string
	JobDescription string
	File           io.Reader
	FileName       string
	FileSize       int64
}

// Create validates the request, applies the plan gate, stores any upload,
// persists a PENDING job and dispatches it. It never waits for processing.
func (s *Service) Create(ctx context.Context, in CreateInput) (Job, error) {
	if s.Queue == nil {
		return Job{}, ErrQueueNotConfigured
	}
	kind, err := s.validate(in)
	if err != nil {
		return Job{}, err
	}

	if s.Gate != nil {
		if _, err := s.Gate.Check(ctx, in.OwnerID); err != nil {
			return Job{}, err
		}
	}

	job := Job{
		ID:             uuid.NewString(),
		OwnerID:        in.OwnerID,
		SourceType:     kind,
		JobDescription: strings.TrimSpace(in.JobDescription),
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	switch kind {
	case SourceCV:
		stored, err := s.Store.Save(ctx, in.OwnerID, in.FileName, in.File)
		if err != nil {
			return Job{}, fmt.Errorf("store upload: %w", err)
		}
		job.SourceInput = in.FileName
		job.SourceFileKey = stored.Key
	case SourceGitHub:
		job.SourceInput = strings.TrimSpace(in.GitHubURL)
	}

	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	metrics.IncJobsReceived()

	requestID := telemetry.RequestIDFromContext(ctx)
	if err := s.Queue.Send(ctx, queue.NewMessage(job.ID, requestID)); err != nil {
		telemetry.Error("analysis.dispatch_failed", map[string]any{
			"request_id": requestID,
			"job_id":     job.ID,
			"error":      err.Error(),
		})
		return Job{}, fmt.Errorf("dispatch job: %w", err)
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":  requestID,
		"user_id":     job.OwnerID,
		"job_id":      job.ID,
		"source_type": string(job.SourceType),
		"status":      string(StatusPending),
	})
	return job, nil
}

func (s *Service) validate(in CreateInput) (SourceKind, error) {
	var issues []FieldError
	kind, err := ParseSourceKind(strings.TrimSpace(in.SourceType))
	if err != nil {
		issues = append(issues, FieldError{Field: "source_type", Issue: "must be cv or github"})
	}
	switch kind {
	case SourceCV:
		if in.File == nil {
			issues = append(issues, FieldError{Field: "file", Issue: "required when source_type is cv"})
		} else if strings.TrimSpace(in.FileName) == "" {
			issues = append(issues, FieldError{Field: "file", Issue: "file name is required"})
		}
	case SourceGitHub:
		if strings.TrimSpace(in.GitHubURL) == "" {
			issues = append(issues, FieldError{Field: "github_url", Issue: "required when source_type is github"})
		} else if _, err := github.Classify(in.GitHubURL); err != nil {
			issues = append(issues, FieldError{Field: "github_url", Issue: err.Error()})
		}
	}
	if len([]rune(in.JobDescription)) > maxJobDescriptionChars {
		issues = append(issues, FieldError{Field: "job_description", Issue: fmt.Sprintf("must be at most %d characters", maxJobDescriptionChars)})
	}
	if len(issues) > 0 {
		return "", &ValidationError{Fields: issues}
	}
	if kind == SourceCV && s.MaxUploadBytes > 0 && in.FileSize > s.MaxUploadBytes {
		return "", ErrFileTooLarge
	}
	return kind, nil
}

// Get returns the owner's job. Jobs of other owners are reported as ErrNotFound.
func (s *Service) Get(ctx context.Context, ownerID, jobID string) (Job, error) {
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if job.OwnerID != ownerID {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// Status returns the job and, when COMPLETED, its cached result. The result
// is nil once the cache entry has expired.
func (s *Service) Status(ctx context.Context, ownerID, jobID string) (Job, json.RawMessage, error) {
	job, err := s.Get(ctx, ownerID, jobID)
	if err != nil {
		return Job{}, nil, err
	}
	if job.Status != StatusCompleted || s.Cache == nil {
		return job, nil, nil
	}
	payload, found, err := s.Cache.Get(ctx, job.ID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Job{}, nil, err
		}
		telemetry.Warn("analysis.cache_read_failed", map[string]any{
			"request_id": telemetry.RequestIDFromContext(ctx),
			"job_id":     job.ID,
			"error":      err.Error(),
		})
		return job, nil, nil
	}
	if !found {
		return job, nil, nil
	}
	return job, json.RawMessage(payload), nil
}

// List returns the owner's jobs ordered newest-first.
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]Job, error) {
	if ownerID == "" {
		return nil, errors.New("ownerID is required")
	}
	return s.Repo.ListByOwner(ctx, ownerID, limit, offset)
}

// Counts returns total and completed job counts.
func (s *Service) Counts(ctx context.Context) (int, int, error) {
	return s.Repo.Counts(ctx)
}
