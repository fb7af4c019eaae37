package users

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PGRepo struct {
	DB *sql.DB
}

// Upsert inserts or refreshes identity fields. Plan and credits are left alone
// on conflict.
func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, name, plan, credits_used, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  name = EXCLUDED.name,
  updated_at = now()`
	plan := user.Plan
	if plan == "" {
		plan = PlanFree
	}
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		plan,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, email, name, plan, credits_used, created_at, updated_at
FROM users
WHERE id = $1
LIMIT 1`
	var user User
	var updatedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Plan,
		&user.CreditsUsed,
		&user.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if updatedAt.Valid {
		user.UpdatedAt = updatedAt.Time
	} else {
		user.UpdatedAt = time.Now().UTC()
	}
	return user, nil
}

// IncrementCredits relies on the row-level atomicity of a single UPDATE; when
// no row matches it tells a missing user apart from a full counter.
func (r *PGRepo) IncrementCredits(ctx context.Context, userID string, ceiling int) (int, error) {
	const query = `
UPDATE users
SET credits_used = credits_used + 1, updated_at = now()
WHERE id = $1 AND credits_used < $2
RETURNING credits_used`
	var used int
	err := r.DB.QueryRowContext(ctx, query, userID, ceiling).Scan(&used)
	if err == nil {
		return used, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	err = r.DB.QueryRowContext(ctx, `SELECT credits_used FROM users WHERE id = $1`, userID).Scan(&used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return used, ErrLimitReached
}

var _ Store = (*PGRepo)(nil)
