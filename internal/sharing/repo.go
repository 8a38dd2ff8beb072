package sharing

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

type Repo interface {
	Create(ctx context.Context, link *Link) error
	GetByToken(ctx context.Context, token string) (Link, error)
}

// MemoryRepo is an in-memory Repo for local runs and tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	nextID  int64
	byToken map[string]Link
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byToken: make(map[string]Link)}
}

func (r *MemoryRepo) Create(ctx context.Context, link *Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	link.ID = r.nextID
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	r.byToken[link.Token] = *link
	return nil
}

func (r *MemoryRepo) GetByToken(ctx context.Context, token string) (Link, error) {
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.byToken[token]
	if !ok {
		return Link{}, ErrNotFound
	}
	return link, nil
}

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, link *Link) error {
	return r.DB.QueryRowContext(ctx, `
INSERT INTO share_links (resume_id, token, expires_at)
VALUES ($1, $2, $3)
RETURNING id, created_at`, link.ResumeID, link.Token, link.ExpiresAt).Scan(&link.ID, &link.CreatedAt)
}

func (r *PGRepo) GetByToken(ctx context.Context, token string) (Link, error) {
	var link Link
	var expires sql.NullTime
	err := r.DB.QueryRowContext(ctx, `
SELECT id, resume_id, token, created_at, expires_at
FROM share_links
WHERE token = $1`, token).Scan(&link.ID, &link.ResumeID, &link.Token, &link.CreatedAt, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Link{}, ErrNotFound
		}
		return Link{}, err
	}
	if expires.Valid {
		t := expires.Time
		link.ExpiresAt = &t
	}
	return link, nil
}
