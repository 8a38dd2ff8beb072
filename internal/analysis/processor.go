package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cv-analyzer/internal/extract"
	"cv-analyzer/internal/github"
	"cv-analyzer/internal/llm"
	"cv-analyzer/internal/resultcache"
	"cv-analyzer/internal/shared/metrics"
	"cv-analyzer/internal/shared/storage/object"
	"cv-analyzer/internal/shared/telemetry"
)

// Scraper fetches a GitHub profile or repository.
type Scraper interface {
	Scrape(ctx context.Context, githubURL string) (github.Profile, error)
}

// Analyzer scores source text. It always returns a usable result.
type Analyzer interface {
	Analyze(ctx context.Context, text, jobDescription, sourceKind string) llm.Outcome
}

// UsageRecorder counts one completed analysis per job id.
type UsageRecorder interface {
	Register(ctx context.Context, ownerID, jobID string) (bool, error)
}

// Processor runs one job end to end.
type Processor struct {
	Repo      Repo
	Store     object.Store
	Scraper   Scraper
	Analyzer  Analyzer
	Cache     resultcache.Cache
	Usage     UsageRecorder
	ResultTTL time.Duration
}

type resultPayload struct {
	llm.Result
	SourceMeta map[string]any `json:"source_meta"`
}

// Process executes one attempt. A source error ends the job as FAILED and
// returns nil. Any other error is returned for the retry harness; the job
// stays PROCESSING until MarkFailed is called.
func (p *Processor) Process(ctx context.Context, jobID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	startedAt := time.Now()

	job, err := p.Repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		telemetry.Info("analysis.skip_terminal", map[string]any{
			"request_id": telemetry.RequestIDFromContext(ctx),
			"job_id":     job.ID,
			"status":     string(job.Status),
		})
		return nil
	}
	if job.Status == StatusPending {
		if err := p.Repo.Transition(ctx, job.ID, StatusPending, StatusProcessing, ""); err != nil {
			return fmt.Errorf("start job %s: %w", job.ID, err)
		}
		job.Status = StatusProcessing
		metrics.IncJobsStarted()
		logStatus(ctx, job, "PENDING->PROCESSING")
	}

	text, meta, err := p.loadSource(ctx, job)
	if err != nil {
		switch {
		case github.IsScrapeError(err):
			return p.fail(ctx, job, err.Error())
		case errors.Is(err, object.ErrNotFound):
			return p.fail(ctx, job, "uploaded file is no longer available")
		}
		return err
	}

	outcome := p.Analyzer.Analyze(ctx, text, job.JobDescription, string(job.SourceType))
	payload, err := json.Marshal(resultPayload{Result: outcome.Result, SourceMeta: meta})
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := p.Cache.Put(ctx, job.ID, payload, p.ResultTTL); err != nil {
		return fmt.Errorf("cache result: %w", err)
	}
	if p.Usage != nil {
		if _, err := p.Usage.Register(ctx, job.OwnerID, job.ID); err != nil {
			return fmt.Errorf("register usage: %w", err)
		}
	}
	if err := p.Repo.Transition(ctx, job.ID, StatusProcessing, StatusCompleted, ""); err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}

	metrics.IncJobsCompleted()
	metrics.ObserveJobDurationMs(float64(time.Since(startedAt).Milliseconds()))
	job.Status = StatusCompleted
	logStatus(ctx, job, "PROCESSING->COMPLETED")
	return nil
}

func (p *Processor) loadSource(ctx context.Context, job Job) (string, map[string]any, error) {
	meta := map[string]any{
		"kind":  string(job.SourceType),
		"input": job.SourceInput,
	}
	switch job.SourceType {
	case SourceGitHub:
		profile, err := p.Scraper.Scrape(ctx, job.SourceInput)
		if err != nil {
			return "", nil, err
		}
		meta["github"] = profile.Meta()
		return github.ToText(profile), meta, nil
	case SourceCV:
		text, err := extract.FromStore(ctx, p.Store, job.SourceFileKey, job.SourceInput)
		if err != nil {
			return "", nil, err
		}
		return text, meta, nil
	default:
		return "", nil, fmt.Errorf("unsupported source type %q", job.SourceType)
	}
}

// MarkFailed records cause on a job that has not reached a terminal state.
func (p *Processor) MarkFailed(ctx context.Context, jobID string, cause error) error {
	job, err := p.Repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}
	message := "analysis failed"
	if cause != nil && cause.Error() != "" {
		message = cause.Error()
	}
	if job.Status == StatusPending {
		if err := p.Repo.Transition(ctx, job.ID, StatusPending, StatusProcessing, ""); err != nil {
			return err
		}
		job.Status = StatusProcessing
	}
	return p.fail(ctx, job, message)
}

func (p *Processor) fail(ctx context.Context, job Job, message string) error {
	if message == "" {
		message = "analysis failed"
	}
	if err := p.Repo.Transition(ctx, job.ID, StatusProcessing, StatusFailed, message); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil
		}
		return fmt.Errorf("fail job %s: %w", job.ID, err)
	}
	metrics.IncJobsFailed()
	job.Status = StatusFailed
	job.ErrorMessage = message
	logStatus(ctx, job, "PROCESSING->FAILED")
	return nil
}

func logStatus(ctx context.Context, job Job, transition string) {
	fields := map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"user_id":           job.OwnerID,
		"job_id":            job.ID,
		"source_type":       string(job.SourceType),
		"status":            string(job.Status),
		"status_transition": transition,
	}
	if job.Status == StatusFailed {
		fields["error"] = job.ErrorMessage
		telemetry.Warn("analysis.status", fields)
		return
	}
	telemetry.Info("analysis.status", fields)
}
