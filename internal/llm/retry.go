package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"cv-analyzer/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// retryingProvider retries a single transient failure after a short delay.
type retryingProvider struct {
	base  Provider
	delay time.Duration
}

func withRetry(base Provider) Provider {
	if base == nil {
		return nil
	}
	return retryingProvider{base: base, delay: retryBaseDelay}
}

func (r retryingProvider) Name() string { return r.base.Name() }

func (r retryingProvider) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := r.base.Generate(ctx, prompt)
	if err == nil || !shouldRetry(err) {
		return out, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"provider": r.base.Name(),
		"attempt":  1,
		"error":    err.Error(),
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return r.base.Generate(ctx, prompt)
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server_error") ||
		strings.Contains(msg, "status code: 429") || strings.Contains(msg, "resource_exhausted") {
		return true
	}
	for _, marker := range []string{"connection reset", "connection refused", "broken pipe", "tls handshake timeout", "eof"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
