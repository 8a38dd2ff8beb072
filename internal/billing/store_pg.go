package billing

import (
	"context"
	"database/sql"

	"cv-analyzer/internal/shared/storage/db"
)

// PGStore persists subscriptions and usage events in Postgres.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed subscription store.
func NewPGStore(database *sql.DB) *PGStore {
	return &PGStore{DB: database}
}

func (s *PGStore) GetOrCreate(ctx context.Context, ownerID string) (Subscription, error) {
	if _, err := s.DB.ExecContext(ctx, `
INSERT INTO subscriptions (owner_id, plan) VALUES ($1, 'free')
ON CONFLICT (owner_id) DO NOTHING`, ownerID); err != nil {
		return Subscription{}, err
	}
	var sub Subscription
	var plan string
	row := s.DB.QueryRowContext(ctx, `
SELECT owner_id, plan, analyses_used, period_start, created_at, updated_at
FROM subscriptions WHERE owner_id = $1`, ownerID)
	if err := row.Scan(&sub.OwnerID, &plan, &sub.AnalysesUsed, &sub.PeriodStart, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return Subscription{}, err
	}
	sub.Plan = Plan(plan)
	return sub, nil
}

func (s *PGStore) Register(ctx context.Context, ownerID, jobID string) (bool, error) {
	var inserted int64
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO subscriptions (owner_id, plan) VALUES ($1, 'free')
ON CONFLICT (owner_id) DO NOTHING`, ownerID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
INSERT INTO analysis_usage_events (owner_id, job_id) VALUES ($1, $2)
ON CONFLICT (job_id) DO NOTHING`, ownerID, jobID)
		if err != nil {
			return err
		}
		if inserted, err = res.RowsAffected(); err != nil || inserted == 0 {
			return err
		}
		_, err = tx.ExecContext(ctx, `
UPDATE subscriptions SET analyses_used = analyses_used + 1, updated_at = NOW()
WHERE owner_id = $1`, ownerID)
		return err
	})
	if err != nil {
		return false, err
	}
	return inserted > 0, nil
}

func (s *PGStore) CountPro(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions WHERE plan = 'pro'`).Scan(&n)
	return n, err
}
