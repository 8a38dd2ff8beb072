package llm

import (
	"context"
	"time"

	"cv-analyzer/internal/shared/metrics"
	"cv-analyzer/internal/shared/telemetry"
)

// Analyzer calls the configured provider and never fails: any problem yields MockResult.
type Analyzer struct {
	provider Provider
	timeout  time.Duration
}

// NewAnalyzer wraps provider with a single transient retry. A nil provider means
// no credential is configured.
func NewAnalyzer(provider Provider, timeout time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Analyzer{provider: withRetry(provider), timeout: timeout}
}

// Analyze returns the normalized result for text.
func (a *Analyzer) Analyze(ctx context.Context, text, jobDescription, sourceKind string) Outcome {
	if a == nil || a.provider == nil {
		return a.fallback(ctx, jobDescription, sourceKind, "", FallbackNotConfigured, nil)
	}

	name := a.provider.Name()
	result, err := a.call(ctx, text, jobDescription, sourceKind)
	if err != nil {
		return a.fallback(ctx, jobDescription, sourceKind, name, FallbackCallFailed, err)
	}
	return Outcome{Result: result, Provider: name}
}

func (a *Analyzer) call(ctx context.Context, text, jobDescription, sourceKind string) (res Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{value: rec}
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.provider.Generate(callCtx, BuildPrompt(text, jobDescription, sourceKind))
	if err != nil {
		return Result{}, err
	}
	payload, err := ExtractJSON(reply)
	if err != nil {
		return Result{}, err
	}
	return Normalize(payload)
}

func (a *Analyzer) fallback(ctx context.Context, jobDescription, sourceKind, provider, reason string, err error) Outcome {
	fields := map[string]any{
		"reason":      reason,
		"source_kind": sourceKind,
		"provider":    provider,
	}
	if reqID := telemetry.RequestIDFromContext(ctx); reqID != "" {
		fields["request_id"] = reqID
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	telemetry.Warn("analysis.llm_fallback", fields)
	metrics.IncLLMFallback(reason)

	return Outcome{
		Result:   MockResult(jobDescription, sourceKind),
		Provider: provider,
		Fallback: reason,
		Err:      err,
	}
}

type panicError struct{ value any }

func (p *panicError) Error() string { return "provider panic" }
