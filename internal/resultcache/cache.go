// Package resultcache stores completed analysis results for a bounded time.
package resultcache

import (
	"context"
	"time"
)

const keyPrefix = "cv_analyzer:analyze_result:"

// Key namespaces a job id.
func Key(jobID string) string {
	return keyPrefix + jobID
}

// Cache holds serialized results keyed by job id.
// Implementations must be safe for concurrent use.
type Cache interface {
	Put(ctx context.Context, jobID string, payload []byte, ttl time.Duration) error
	Get(ctx context.Context, jobID string) ([]byte, bool, error)
	Ping(ctx context.Context) error
}
