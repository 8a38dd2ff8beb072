package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cv-analyzer/internal/queue"
	"cv-analyzer/internal/workerproc"
)

type fakeSQS struct {
	mu      sync.Mutex
	batches [][]queue.Delivery
	deleted []string
}

func (f *fakeSQS) Receive(ctx context.Context, max int32, waitSeconds int32) ([]queue.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

func (f *fakeSQS) Delete(ctx context.Context, receiptHandle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, receiptHandle)
	return nil
}

func (f *fakeSQS) deletedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func delivery(t *testing.T, jobID, receipt string) queue.Delivery {
	t.Helper()
	body, err := queue.EncodeMessage(queue.NewMessage(jobID, "req-"+jobID))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return queue.Delivery{Body: string(body), ReceiptHandle: receipt, MessageID: "m-" + jobID}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	var ran []string
	run := func(_ context.Context, msg queue.Message) error {
		ran = append(ran, msg.JobID)
		return nil
	}

	handleDelivery(context.Background(), client, run, delivery(t, "job-1", "r1"))

	if len(ran) != 1 || ran[0] != "job-1" {
		t.Fatalf("expected job-1 to run, got %v", ran)
	}
	if got := client.deletedHandles(); len(got) != 1 || got[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", got)
	}
}

func TestWorkerDeletesAfterRetriesExhausted(t *testing.T) {
	client := &fakeSQS{}
	run := func(_ context.Context, msg queue.Message) error {
		return workerproc.ErrProcess{JobID: msg.JobID, Attempts: 4, Err: errors.New("boom")}
	}

	handleDelivery(context.Background(), client, run, delivery(t, "job-2", "r2"))

	if got := client.deletedHandles(); len(got) != 1 {
		t.Fatalf("expected delete once the job is final, got %v", got)
	}
}

func TestWorkerKeepsMessageWhenCanceled(t *testing.T) {
	client := &fakeSQS{}
	run := func(_ context.Context, msg queue.Message) error {
		return workerproc.ErrProcess{JobID: msg.JobID, Attempts: 1, Err: context.Canceled}
	}

	handleDelivery(context.Background(), client, run, delivery(t, "job-3", "r3"))

	if got := client.deletedHandles(); len(got) != 0 {
		t.Fatalf("expected no delete, got %v", got)
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	run := func(context.Context, queue.Message) error {
		t.Fatalf("runner must not be called for invalid payloads")
		return nil
	}

	handleDelivery(context.Background(), client, run, queue.Delivery{Body: "{bad-json", ReceiptHandle: "r4"})

	if got := client.deletedHandles(); len(got) != 1 {
		t.Fatalf("expected delete, got %v", got)
	}
}

func TestPollSQSBoundsConcurrencyAndDrains(t *testing.T) {
	client := &fakeSQS{batches: [][]queue.Delivery{
		{delivery(t, "a", "ra"), delivery(t, "b", "rb")},
		{delivery(t, "c", "rc")},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	done := map[string]bool{}
	run := func(_ context.Context, msg queue.Message) error {
		mu.Lock()
		done[msg.JobID] = true
		finished := len(done) == 3
		mu.Unlock()
		if finished {
			cancel()
		}
		return nil
	}

	workers := newPool(1)
	pollSQS(ctx, client, run, workers)
	workers.wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(done) != 3 {
		t.Fatalf("expected 3 jobs, got %v", done)
	}
	if got := client.deletedHandles(); len(got) != 3 {
		t.Fatalf("expected 3 deletes, got %v", got)
	}
}

type blockingProcessor struct {
	mu     sync.Mutex
	marked bool
}

func (p *blockingProcessor) Process(ctx context.Context, jobID string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (p *blockingProcessor) MarkFailed(context.Context, string, error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marked = true
	return nil
}

func TestDrainTimeoutCancelsJobsAndKeepsMessage(t *testing.T) {
	client := &fakeSQS{}
	proc := &blockingProcessor{}
	policy := workerproc.Policy{MaxRetries: 3, BaseDelay: time.Millisecond}
	run := func(ctx context.Context, msg queue.Message) error {
		return workerproc.Run(ctx, proc, msg, policy)
	}

	workers := newPool(1)
	if !workers.dispatch(context.Background(), func(jobCtx context.Context) {
		handleDelivery(jobCtx, client, run, delivery(t, "job-5", "r5"))
	}) {
		t.Fatal("dispatch refused the job")
	}

	if workers.drain(20*time.Millisecond, 2*time.Second) {
		t.Fatal("expected drain to time out on a blocked job")
	}
	workers.wg.Wait()

	if got := client.deletedHandles(); len(got) != 0 {
		t.Fatalf("expected message to be kept for redelivery, got deletes %v", got)
	}
	proc.mu.Lock()
	defer proc.mu.Unlock()
	if proc.marked {
		t.Fatal("interrupted job must not be marked failed")
	}
}

func TestDrainReturnsWhenJobsFinish(t *testing.T) {
	workers := newPool(2)
	var canceled bool
	workers.dispatch(context.Background(), func(jobCtx context.Context) {
		canceled = jobCtx.Err() != nil
	})
	if !workers.drain(time.Second, time.Second) {
		t.Fatal("expected drain to finish in time")
	}
	if canceled {
		t.Fatal("job context canceled before the drain deadline")
	}
}
