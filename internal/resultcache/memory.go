package resultcache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemoryEntries = 4096

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is a size-bounded in-process Cache with per-entry expiry.
type MemoryCache struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

// NewMemoryCache keeps at most size entries; size <= 0 uses a default.
func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = defaultMemoryEntries
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		panic(err)
	}
	return &MemoryCache{entries: entries, now: time.Now}
}

func (c *MemoryCache) Put(ctx context.Context, jobID string, payload []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := memoryEntry{payload: append([]byte(nil), payload...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries.Add(Key(jobID), entry)
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, jobID string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	key := Key(jobID)
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.entries.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (c *MemoryCache) Ping(ctx context.Context) error {
	return ctx.Err()
}

var _ Cache = (*MemoryCache)(nil)
