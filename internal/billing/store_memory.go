package billing

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu     sync.Mutex
	subs   map[string]Subscription
	events map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		subs:   make(map[string]Subscription),
		events: make(map[string]string),
	}
}

func (s *memoryStore) GetOrCreate(ctx context.Context, ownerID string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return Subscription{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(ownerID), nil
}

func (s *memoryStore) ensureLocked(ownerID string) Subscription {
	sub, ok := s.subs[ownerID]
	if !ok {
		now := time.Now().UTC()
		sub = Subscription{
			OwnerID:     ownerID,
			Plan:        PlanFree,
			PeriodStart: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.subs[ownerID] = sub
	}
	return sub
}

func (s *memoryStore) Register(ctx context.Context, ownerID, jobID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.events[jobID]; seen {
		return false, nil
	}
	s.events[jobID] = ownerID
	sub := s.ensureLocked(ownerID)
	sub.AnalysesUsed++
	sub.UpdatedAt = time.Now().UTC()
	s.subs[ownerID] = sub
	return true, nil
}

func (s *memoryStore) CountPro(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.subs {
		if sub.Plan == PlanPro {
			n++
		}
	}
	return n, nil
}

// setPlan is used by tests to upgrade an owner.
func (s *memoryStore) setPlan(ownerID string, plan Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.ensureLocked(ownerID)
	sub.Plan = plan
	s.subs[ownerID] = sub
}
