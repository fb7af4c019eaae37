package users

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

// Upsert creates a user with the given plan and counter, or refreshes the
// identity fields of an existing one. Plan and credits are left alone on update.
func (r *MemoryRepo) Upsert(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.users[user.ID]; ok {
		existing.Email = user.Email
		existing.Name = user.Name
		existing.UpdatedAt = now
		r.users[user.ID] = existing
		return nil
	}
	if user.Plan == "" {
		user.Plan = PlanFree
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) IncrementCredits(ctx context.Context, userID string, ceiling int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return 0, ErrNotFound
	}
	if user.CreditsUsed >= ceiling {
		return user.CreditsUsed, ErrLimitReached
	}
	user.CreditsUsed++
	user.UpdatedAt = time.Now().UTC()
	r.users[userID] = user
	return user.CreditsUsed, nil
}

var _ Store = (*MemoryRepo)(nil)
