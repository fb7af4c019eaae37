package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("user not found")

	// ErrLimitReached is returned by IncrementCredits when the counter is already at the ceiling.
	ErrLimitReached = errors.New("credit limit reached")
)

// Repo is the user/credit store. IncrementCredits must be a single atomic
// conditional update: it adds one credit only while credits_used < ceiling and
// returns the new counter.
type Repo interface {
	GetByID(ctx context.Context, userID string) (User, error)
	IncrementCredits(ctx context.Context, userID string, ceiling int) (int, error)
}

// Store is a Repo that can also provision users from verified identities.
// Upsert creates the record on first sight and afterwards only refreshes
// email and name; plan and credits are never reset.
type Store interface {
	Repo
	Upsert(ctx context.Context, user User) error
}
