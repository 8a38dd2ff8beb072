package telemetry

import (
	"context"
	"testing"
)

func TestBackgroundWithRequestIDKeepsIDButNotCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(WithRequestID(context.Background(), "req-1"))
	cancel()

	bg := BackgroundWithRequestID(ctx)
	if bg.Err() != nil {
		t.Fatalf("expected detached context")
	}
	if got := RequestIDFromContext(bg); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := RequestIDFromContext(BackgroundWithRequestID(context.Background())); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}
