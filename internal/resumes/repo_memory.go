package resumes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for local runs and tests.
type MemoryRepo struct {
	mu          sync.RWMutex
	nextID      int64
	nextVersion int64
	resumes     map[int64]Resume
	versions    map[int64][]Version
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		resumes:  make(map[int64]Resume),
		versions: make(map[int64][]Version),
	}
}

func (m *MemoryRepo) Create(ctx context.Context, r *Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now().UTC()
	r.ID = m.nextID
	r.CreatedAt = now
	r.UpdatedAt = now
	m.resumes[r.ID] = *r
	m.appendVersion(*r, now)
	r.Versions = m.versionsFor(r.ID)
	return nil
}

func (m *MemoryRepo) Update(ctx context.Context, r *Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.resumes[r.ID]
	if !ok || existing.OwnerID != r.OwnerID {
		return ErrNotFound
	}
	now := time.Now().UTC()
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = now
	m.resumes[r.ID] = *r
	m.appendVersion(*r, now)
	r.Versions = m.versionsFor(r.ID)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id int64) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resumes[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	r.Versions = m.versionsFor(id)
	return r, nil
}

func (m *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := []Resume{}
	for id, r := range m.resumes {
		if r.OwnerID == ownerID {
			r.Versions = m.versionsFor(id)
			items = append(items, r)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	return items, nil
}

// appendVersion must be called with m.mu held.
func (m *MemoryRepo) appendVersion(r Resume, at time.Time) {
	m.nextVersion++
	v := r.snapshot()
	v.ID = m.nextVersion
	v.CreatedAt = at
	m.versions[r.ID] = append(m.versions[r.ID], v)
}

func (m *MemoryRepo) versionsFor(id int64) []Version {
	stored := m.versions[id]
	out := make([]Version, len(stored))
	for i, v := range stored {
		out[len(stored)-1-i] = v
	}
	return out
}
