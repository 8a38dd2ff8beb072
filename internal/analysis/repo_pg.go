package analysis

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO analysis_jobs (
	id, owner_id, source_type, source_input, job_description, source_file_key, status, error_message, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.OwnerID,
		string(job.SourceType),
		job.SourceInput,
		job.JobDescription,
		job.SourceFileKey,
		string(job.Status),
		job.ErrorMessage,
		job.CreatedAt,
	)
	return err
}

const selectJob = `
SELECT id, owner_id, source_type, source_input, job_description, source_file_key,
       status, error_message, created_at, updated_at
FROM analysis_jobs`

// GetByID returns a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	job, err := scanJob(r.DB.QueryRowContext(ctx, selectJob+` WHERE id = $1 LIMIT 1`, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// ListByOwner returns the owner's jobs newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, selectJob+`
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Transition performs a compare-and-set on the status column.
func (r *PGRepo) Transition(ctx context.Context, jobID string, from, to Status, errorMessage string) error {
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	if to != StatusFailed {
		errorMessage = ""
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE analysis_jobs
SET status = $1, error_message = $2, updated_at = NOW()
WHERE id = $3 AND status = $4`, string(to), errorMessage, jobID, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, jobID); err != nil {
		return err
	}
	return ErrInvalidTransition
}

// Counts returns the total and completed job counts.
func (r *PGRepo) Counts(ctx context.Context) (int, int, error) {
	var total, completed int
	err := r.DB.QueryRowContext(ctx, `
SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'COMPLETED') FROM analysis_jobs`).Scan(&total, &completed)
	return total, completed, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var sourceType, status string
	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&sourceType,
		&job.SourceInput,
		&job.JobDescription,
		&job.SourceFileKey,
		&status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return Job{}, err
	}
	job.SourceType = SourceKind(sourceType)
	job.Status = Status(status)
	return job, nil
}
