package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cv-analyzer/internal/shared/telemetry"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("queue closed")

// InProcess runs handlers on a bounded pool of goroutines inside the API
// process. Send never waits for the handler.
type InProcess struct {
	handler Handler
	sem     chan struct{}

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewInProcess creates a pool that runs at most concurrency handlers at once.
func NewInProcess(concurrency int, handler Handler) *InProcess {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &InProcess{handler: handler, sem: make(chan struct{}, concurrency)}
}

func (q *InProcess) Send(ctx context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	q.wg.Add(1)
	jobCtx := telemetry.BackgroundWithRequestID(ctx)
	go func() {
		defer q.wg.Done()
		q.sem <- struct{}{}
		defer func() { <-q.sem }()
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("queue.handler.panic", map[string]any{
					"job_id":     msg.JobID,
					"request_id": msg.RequestID,
					"panic":      fmt.Sprint(r),
				})
			}
		}()
		if err := q.handler(jobCtx, msg); err != nil {
			telemetry.Warn("queue.handler.error", map[string]any{
				"job_id":     msg.JobID,
				"request_id": msg.RequestID,
				"error":      err.Error(),
			})
		}
	}()
	return nil
}

// Close stops accepting messages and waits for running handlers or ctx.
func (q *InProcess) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Client = (*InProcess)(nil)
