package health

import (
	"context"
	"time"
)

// Pinger is satisfied by the database handle and the result cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Check is the result of one dependency probe.
type Check struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Report is the health payload.
type Report struct {
	Status    string    `json:"status"`
	Database  Check     `json:"database"`
	Cache     Check     `json:"cache"`
	Timestamp time.Time `json:"timestamp"`
}

// Healthy reports whether the service can take traffic. A cache outage degrades
// result reads but does not fail the check.
func (r Report) Healthy() bool {
	return r.Status == "ok"
}

// Service encapsulates health-related checks.
type Service struct {
	db      Pinger
	cache   Pinger
	timeout time.Duration
}

// NewService constructs a new health service. db is nil when running on
// in-memory repositories.
func NewService(db, cache Pinger) *Service {
	return &Service{db: db, cache: cache, timeout: 2 * time.Second}
}

// Status probes the configured dependencies.
func (s *Service) Status(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := Report{Status: "ok", Timestamp: time.Now().UTC()}
	report.Database = probe(ctx, s.db)
	report.Cache = probe(ctx, s.cache)
	if !report.Database.OK {
		report.Status = "degraded"
	}
	return report
}

func probe(ctx context.Context, p Pinger) Check {
	if p == nil {
		return Check{OK: true}
	}
	if err := p.Ping(ctx); err != nil {
		return Check{OK: false, Error: err.Error()}
	}
	return Check{OK: true}
}
