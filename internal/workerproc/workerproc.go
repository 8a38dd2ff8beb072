// Package workerproc parses job messages and runs the analysis processor
// under the retry policy.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"cv-analyzer/internal/analysis"
	"cv-analyzer/internal/queue"
	"cv-analyzer/internal/shared/metrics"
	"cv-analyzer/internal/shared/telemetry"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingJobID indicates a message missing the job id.
type ErrMissingJobID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingJobID) Error() string { return "missing job id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	JobID     string
	RequestID string
	Attempts  int
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process job"
	}
	return "process job: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.JobID) == "" {
		return msg, meta, ErrMissingJobID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// Processor is the job body run by the harness.
type Processor interface {
	Process(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, cause error) error
}

// Policy controls retries of unexpected processing errors.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Backoff returns the delay before retry number attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<uint(attempt-1))
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run processes msg, retrying unexpected errors up to policy.MaxRetries times.
// Permanent errors are not retried and do not touch the job. When retries
// are exhausted the job is marked FAILED with the last error. If ctx is
// canceled first the job is left as is and the returned error wraps ctx.Err()
// so the message can be redelivered.
func Run(ctx context.Context, proc Processor, msg queue.Message, policy Policy) error {
	if proc == nil {
		return errors.New("job processor not configured")
	}
	if strings.TrimSpace(msg.JobID) == "" {
		return ErrMissingJobID{RequestID: msg.RequestID}
	}
	ctx = telemetry.WithRequestID(ctx, msg.RequestID)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if ctx.Err() != nil {
				break
			}
			delay := policy.Backoff(attempt)
			metrics.IncJobsRetried()
			telemetry.Warn("worker.job.retry", map[string]any{
				"request_id": msg.RequestID,
				"job_id":     msg.JobID,
				"attempt":    attempt + 1,
				"backoff_ms": delay.Milliseconds(),
				"error":      lastErr.Error(),
			})
			if err := policy.sleep(ctx, delay); err != nil {
				break
			}
		}
		attempts++
		lastErr = proc.Process(ctx, msg.JobID)
		if lastErr == nil {
			return nil
		}
		if analysis.IsPermanent(lastErr) {
			telemetry.Error("worker.job.failed", map[string]any{
				"request_id": msg.RequestID,
				"job_id":     msg.JobID,
				"attempts":   attempts,
				"retryable":  false,
				"error":      lastErr.Error(),
			})
			return ErrProcess{JobID: msg.JobID, RequestID: msg.RequestID, Attempts: attempts, Err: lastErr}
		}
	}

	if err := ctx.Err(); err != nil {
		telemetry.Warn("worker.job.interrupted", map[string]any{
			"request_id": msg.RequestID,
			"job_id":     msg.JobID,
			"attempts":   attempts,
			"error":      lastErr.Error(),
		})
		return ErrProcess{JobID: msg.JobID, RequestID: msg.RequestID, Attempts: attempts, Err: err}
	}

	telemetry.Error("worker.job.failed", map[string]any{
		"request_id": msg.RequestID,
		"job_id":     msg.JobID,
		"attempts":   attempts,
		"retryable":  true,
		"error":      lastErr.Error(),
	})
	if err := proc.MarkFailed(telemetry.BackgroundWithRequestID(ctx), msg.JobID, lastErr); err != nil {
		telemetry.Error("worker.job.mark_failed_error", map[string]any{
			"request_id": msg.RequestID,
			"job_id":     msg.JobID,
			"error":      err.Error(),
		})
	}
	return ErrProcess{JobID: msg.JobID, RequestID: msg.RequestID, Attempts: attempts, Err: lastErr}
}
