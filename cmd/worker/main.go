package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cv-analyzer/internal/bootstrap"
	"cv-analyzer/internal/queue"
	"cv-analyzer/internal/shared/config"
	"cv-analyzer/internal/shared/telemetry"
	"cv-analyzer/internal/workerproc"
)

const (
	receiveBatch       = 10
	receiveWaitSeconds = 20
	shutdownTimeout    = 30 * time.Second
	cancelGrace        = 5 * time.Second
)

// jobRunner runs one decoded message under the retry policy.
type jobRunner func(ctx context.Context, msg queue.Message) error

type sqsSource interface {
	Receive(ctx context.Context, max int32, waitSeconds int32) ([]queue.Delivery, error)
	Delete(ctx context.Context, receiptHandle string) error
}

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = app.Close(closeCtx)
	}()

	workers := newPool(cfg.WorkerConcurrency)

	telemetry.Info("worker.started", map[string]any{
		"backend":     cfg.QueueBackend,
		"concurrency": cap(workers.sem),
		"max_retries": app.Policy.MaxRetries,
	})

	switch {
	case app.SQS != nil:
		pollSQS(ctx, app.SQS, app.RunJob, workers)
	case app.NATS != nil:
		sub, err := app.NATS.Subscribe(func(body []byte) {
			workers.dispatch(ctx, func(jobCtx context.Context) {
				_ = runBody(jobCtx, app.RunJob, string(body))
			})
		})
		if err != nil {
			telemetry.Error("worker.subscribe_failed", map[string]any{"error": err.Error()})
			return
		}
		<-ctx.Done()
		_ = sub.Drain()
	default:
		telemetry.Error("worker.no_queue", map[string]any{
			"backend": cfg.QueueBackend,
			"hint":    "set QUEUE_BACKEND=sqs or QUEUE_BACKEND=nats",
		})
		return
	}

	telemetry.Info("worker.draining", map[string]any{"timeout_s": shutdownTimeout.Seconds()})
	if !workers.drain(shutdownTimeout, cancelGrace) {
		telemetry.Warn("worker.drain_timeout", map[string]any{"grace_s": cancelGrace.Seconds()})
	}
}

func pollSQS(ctx context.Context, src sqsSource, run jobRunner, workers *pool) {
	for ctx.Err() == nil {
		deliveries, err := src.Receive(ctx, receiveBatch, receiveWaitSeconds)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}
		for _, d := range deliveries {
			if !workers.dispatch(ctx, func(jobCtx context.Context) {
				handleDelivery(jobCtx, src, run, d)
			}) {
				return
			}
		}
	}
}

// pool bounds concurrent jobs. Jobs run on a context that survives the
// shutdown signal and is canceled only when draining runs out of time.
type pool struct {
	sem    chan struct{}
	wg     sync.WaitGroup
	jobs   context.Context
	cancel context.CancelFunc
}

func newPool(size int) *pool {
	jobs, cancel := context.WithCancel(context.Background())
	return &pool{sem: make(chan struct{}, max(1, size)), jobs: jobs, cancel: cancel}
}

// dispatch runs fn on its own goroutine once a slot is free. It returns false
// if ctx ends first.
func (p *pool) dispatch(ctx context.Context, fn func(context.Context)) bool {
	select {
	case <-ctx.Done():
		return false
	case p.sem <- struct{}{}:
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		fn(p.jobs)
	}()
	return true
}

// drain waits up to timeout for running jobs. After that it cancels them and
// waits up to grace for them to return.
func (p *pool) drain(timeout, grace time.Duration) bool {
	defer p.cancel()
	if waitTimeout(&p.wg, timeout) {
		return true
	}
	p.cancel()
	waitTimeout(&p.wg, grace)
	return false
}

// handleDelivery runs one SQS message and deletes it unless the job was
// canceled by a drain timeout, in which case SQS redelivers it after
// visibility expires.
func handleDelivery(ctx context.Context, src sqsSource, run jobRunner, d queue.Delivery) {
	err := runBody(ctx, run, d.Body)
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}
	if d.ReceiptHandle == "" {
		telemetry.Error("worker.delete_failed", map[string]any{"message_id": d.MessageID, "error": "missing receipt handle"})
		return
	}
	if err := src.Delete(context.WithoutCancel(ctx), d.ReceiptHandle); err != nil {
		telemetry.Error("worker.delete_failed", map[string]any{"message_id": d.MessageID, "error": err.Error()})
	}
}

func runBody(ctx context.Context, run jobRunner, body string) error {
	msg, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		telemetry.Error("worker.message.invalid", map[string]any{
			"body_len":    meta.BodyLen,
			"body_sha256": meta.BodySHA,
			"error":       err.Error(),
		})
		return err
	}
	telemetry.Info("worker.job.received", map[string]any{"job_id": msg.JobID, "request_id": msg.RequestID})
	if err := run(ctx, msg); err != nil {
		return err
	}
	telemetry.Info("worker.job.done", map[string]any{"job_id": msg.JobID, "request_id": msg.RequestID})
	return nil
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
