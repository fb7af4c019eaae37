package generations

import "context"

// Repo defines persistence operations for generation log entries.
type Repo interface {
	Create(ctx context.Context, entry Entry) error
	GetByID(ctx context.Context, userID, entryID string) (Entry, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error)
	Delete(ctx context.Context, entryID string) error
}
