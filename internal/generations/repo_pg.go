package generations

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, user_id, user_email, job_title, company_name, match_score,
    original_name, status, analysis_outcome, render_outcome, storage_key, created_at`

func (r *PGRepo) Create(ctx context.Context, entry Entry) error {
	const query = `
INSERT INTO generation_logs (
    id, user_id, user_email, job_title, company_name, match_score,
    original_name, status, analysis_outcome, render_outcome, storage_key, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.DB.ExecContext(ctx, query,
		entry.ID,
		nullableString(entry.UserID),
		entry.UserEmail,
		entry.JobTitle,
		entry.CompanyName,
		entry.MatchScore,
		entry.OriginalFileName,
		entry.Status,
		entry.AnalysisOutcome,
		entry.RenderOutcome,
		nullableString(entry.StorageKey),
		entry.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID, entryID string) (Entry, error) {
	query := `
SELECT ` + selectColumns + `
FROM generation_logs
WHERE id = $1
LIMIT 1`
	entry, err := scanEntry(r.DB.QueryRowContext(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	if entry.UserID == "" || entry.UserID != userID {
		return Entry{}, ErrForbidden
	}
	return entry, nil
}

// ListByUser lists entries ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT ` + selectColumns + `
FROM generation_logs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, entryID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM generation_logs WHERE id = $1`, entryID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	var userID, storageKey sql.NullString
	err := row.Scan(
		&entry.ID,
		&userID,
		&entry.UserEmail,
		&entry.JobTitle,
		&entry.CompanyName,
		&entry.MatchScore,
		&entry.OriginalFileName,
		&entry.Status,
		&entry.AnalysisOutcome,
		&entry.RenderOutcome,
		&storageKey,
		&entry.CreatedAt,
	)
	if err != nil {
		return Entry{}, err
	}
	entry.UserID = userID.String
	entry.StorageKey = storageKey.String
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
