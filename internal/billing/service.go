package billing

import (
	"context"
	"fmt"
)

type store interface {
	GetOrCreate(ctx context.Context, ownerID string) (Subscription, error)
	// Register records the usage event for jobID and increments the
	// counter. It returns false when the event already existed.
	Register(ctx context.Context, ownerID, jobID string) (bool, error)
	CountPro(ctx context.Context) (int, error)
}

// Service applies plan rules on top of a subscription store.
type Service struct {
	store     store
	freeLimit int
}

// NewService constructs a Service with an in-memory store.
func NewService(freeLimit int) *Service {
	return newService(newMemoryStore(), freeLimit)
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore *PGStore, freeLimit int) *Service {
	return newService(pgStore, freeLimit)
}

// A negative freeLimit means unset; zero disables free analyses.
func newService(s store, freeLimit int) *Service {
	if freeLimit < 0 {
		freeLimit = DefaultFreeLimit
	}
	return &Service{store: s, freeLimit: freeLimit}
}

// FreeLimit returns the configured free plan ceiling.
func (s *Service) FreeLimit() int {
	return s.freeLimit
}

// Ensure returns the owner's subscription, creating a free one if absent.
func (s *Service) Ensure(ctx context.Context, ownerID string) (Subscription, error) {
	return s.store.GetOrCreate(ctx, ownerID)
}

// Check is the admission gate. It returns ErrLimitReached when the owner
// may not start another analysis.
func (s *Service) Check(ctx context.Context, ownerID string) (Subscription, error) {
	sub, err := s.store.GetOrCreate(ctx, ownerID)
	if err != nil {
		return Subscription{}, fmt.Errorf("load subscription: %w", err)
	}
	if !CanRun(sub, s.freeLimit) {
		return sub, ErrLimitReached
	}
	return sub, nil
}

// Register counts one completed analysis. Calling it twice for the same
// job id has no further effect.
func (s *Service) Register(ctx context.Context, ownerID, jobID string) (bool, error) {
	return s.store.Register(ctx, ownerID, jobID)
}

// CountPro returns the number of pro subscriptions.
func (s *Service) CountPro(ctx context.Context) (int, error) {
	return s.store.CountPro(ctx)
}

// EnsureSubscription creates the owner's free subscription when missing.
func (s *Service) EnsureSubscription(ctx context.Context, ownerID string) error {
	_, err := s.store.GetOrCreate(ctx, ownerID)
	return err
}
