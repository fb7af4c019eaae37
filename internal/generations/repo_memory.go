package generations

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores log entries in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Entry
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Entry)}
}

func (r *MemoryRepo) Create(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[entry.ID] = entry
	return nil
}

// GetByID returns ErrForbidden when the entry exists but is not owned by userID.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, entryID string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byID[entryID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if entry.UserID == "" || entry.UserID != userID {
		return Entry{}, ErrForbidden
	}
	return entry, nil
}

// ListByUser returns entries newest first with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	var entries []Entry
	for _, e := range r.byID {
		if userID != "" && e.UserID == userID {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	if len(entries) == 0 || offset >= len(entries) {
		return []Entry{}, nil
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	end := len(entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return entries[offset:end], nil
}

func (r *MemoryRepo) Delete(ctx context.Context, entryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[entryID]; !ok {
		return ErrNotFound
	}
	delete(r.byID, entryID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
