package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cv-analyzer/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, res *Resume) error {
	content, analysis, err := encodeDocs(res.Content, res.LatestAnalysis)
	if err != nil {
		return err
	}
	var v Version
	err = db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
INSERT INTO resumes (owner_id, title, content, latest_analysis)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at`, res.OwnerID, res.Title, content, analysis).
			Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert resume: %w", err)
		}
		v, err = insertVersion(ctx, tx, res.ID, content, analysis)
		return err
	})
	if err != nil {
		return err
	}
	v.Content, v.AnalysisSnapshot = res.Content, res.LatestAnalysis
	res.Versions = []Version{v}
	return nil
}

func (r *PGRepo) Update(ctx context.Context, res *Resume) error {
	content, analysis, err := encodeDocs(res.Content, res.LatestAnalysis)
	if err != nil {
		return err
	}
	err = db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
UPDATE resumes
SET title = $1, content = $2, latest_analysis = $3, updated_at = NOW()
WHERE id = $4 AND owner_id = $5
RETURNING created_at, updated_at`, res.Title, content, analysis, res.ID, res.OwnerID).
			Scan(&res.CreatedAt, &res.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update resume: %w", err)
		}
		_, err = insertVersion(ctx, tx, res.ID, content, analysis)
		return err
	})
	if err != nil {
		return err
	}
	res.Versions, err = r.versions(ctx, `WHERE resume_id = $1`, res.ID)
	return err
}

const selectResume = `
SELECT id, owner_id, title, content, latest_analysis, created_at, updated_at
FROM resumes`

func (r *PGRepo) Get(ctx context.Context, id int64) (Resume, error) {
	res, err := scanResume(r.DB.QueryRowContext(ctx, selectResume+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	res.Versions, err = r.versions(ctx, `WHERE resume_id = $1`, id)
	if err != nil {
		return Resume{}, err
	}
	return res, nil
}

func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Resume, error) {
	rows, err := r.DB.QueryContext(ctx, selectResume+`
WHERE owner_id = $1
ORDER BY updated_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Resume{}
	index := map[int64]int{}
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		res.Versions = []Version{}
		index[res.ID] = len(items)
		items = append(items, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	versions, err := r.versions(ctx, `WHERE resume_id IN (SELECT id FROM resumes WHERE owner_id = $1)`, ownerID)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if i, ok := index[v.ResumeID]; ok {
			items[i].Versions = append(items[i].Versions, v)
		}
	}
	return items, nil
}

func (r *PGRepo) versions(ctx context.Context, where string, arg any) ([]Version, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, resume_id, content, analysis_snapshot, created_at
FROM resume_versions `+where+`
ORDER BY created_at DESC, id DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Version{}
	for rows.Next() {
		var v Version
		var content, analysis []byte
		if err := rows.Scan(&v.ID, &v.ResumeID, &content, &analysis, &v.CreatedAt); err != nil {
			return nil, err
		}
		if v.Content, err = decodeDoc(content); err != nil {
			return nil, err
		}
		if v.AnalysisSnapshot, err = decodeDoc(analysis); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func insertVersion(ctx context.Context, tx *sql.Tx, resumeID int64, content, analysis string) (Version, error) {
	v := Version{ResumeID: resumeID}
	err := tx.QueryRowContext(ctx, `
INSERT INTO resume_versions (resume_id, content, analysis_snapshot)
VALUES ($1, $2, $3)
RETURNING id, created_at`, resumeID, content, analysis).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return Version{}, fmt.Errorf("insert resume version: %w", err)
	}
	return v, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var res Resume
	var content, analysis []byte
	if err := row.Scan(&res.ID, &res.OwnerID, &res.Title, &content, &analysis, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return Resume{}, err
	}
	var err error
	if res.Content, err = decodeDoc(content); err != nil {
		return Resume{}, err
	}
	if res.LatestAnalysis, err = decodeDoc(analysis); err != nil {
		return Resume{}, err
	}
	return res, nil
}

func encodeDocs(content, analysis map[string]any) (string, string, error) {
	c, err := encodeDoc(content)
	if err != nil {
		return "", "", err
	}
	a, err := encodeDoc(analysis)
	if err != nil {
		return "", "", err
	}
	return c, a, nil
}

func encodeDoc(doc map[string]any) (string, error) {
	if doc == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode resume document: %w", err)
	}
	return string(raw), nil
}

func decodeDoc(raw []byte) (map[string]any, error) {
	doc := map[string]any{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode resume document: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
