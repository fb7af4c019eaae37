package generations

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/storage/object"
	"jobfit-backend/internal/shared/telemetry"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	anonymousOwner  = "anonymous"
)

// Service records generations and serves the caller's history. Store is
// optional; without it documents are not archived.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	now   func() time.Time
}

// NewService constructs a Service. store may be nil.
func NewService(repo Repo, store object.ObjectStore) *Service {
	return &Service{Repo: repo, Store: store, now: time.Now}
}

// Record writes exactly one log entry and archives the output document when a
// store is configured. Failures are logged and never returned: the caller has
// already produced its response.
func (s *Service) Record(ctx context.Context, entry Entry, document []byte) Entry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = StatusSuccess
	}
	if strings.TrimSpace(entry.UserEmail) == "" || entry.UserID == "" {
		entry.UserEmail = AnonymousEmail
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock().UTC()
	}

	if s.Store != nil && len(document) > 0 {
		owner := entry.UserID
		if owner == "" {
			owner = anonymousOwner
		}
		key, _, err := s.Store.Save(ctx, owner, "optimized_"+entry.OriginalFileName, docxContentType, bytes.NewReader(document))
		if err != nil {
			warn("generation.archive_failed", entry, err)
		} else {
			entry.StorageKey = key
		}
	}

	if s.Repo == nil {
		return entry
	}
	if err := s.Repo.Create(ctx, entry); err != nil {
		warn("generation.log_failed", entry, err)
		s.discardArchive(ctx, entry)
		entry.StorageKey = ""
	}
	return entry
}

// List returns the caller's entries newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Delete removes one of the caller's entries and its archived document. Credits
// are never refunded.
func (s *Service) Delete(ctx context.Context, userID, entryID string) error {
	entry, err := s.Repo.GetByID(ctx, userID, entryID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, entry.ID); err != nil {
		return err
	}
	s.discardArchive(ctx, entry)
	return nil
}

// OpenDocument streams the archived output document of one of the caller's entries.
func (s *Service) OpenDocument(ctx context.Context, userID, entryID string) (Entry, io.ReadCloser, error) {
	entry, err := s.Repo.GetByID(ctx, userID, entryID)
	if err != nil {
		return Entry{}, nil, err
	}
	if !entry.Archived() || s.Store == nil {
		return Entry{}, nil, ErrNotArchived
	}
	rc, err := s.Store.Open(ctx, entry.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Entry{}, nil, ErrNotArchived
		}
		return Entry{}, nil, err
	}
	return entry, rc, nil
}

func (s *Service) discardArchive(ctx context.Context, entry Entry) {
	if s.Store == nil || entry.StorageKey == "" {
		return
	}
	if err := s.Store.Delete(ctx, entry.StorageKey); err != nil && !errors.Is(err, object.ErrNotFound) {
		warn("generation.archive_delete_failed", entry, err)
	}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func warn(msg string, entry Entry, err error) {
	metrics.IncPersistenceWarning()
	telemetry.Warn(msg, map[string]any{
		"generation_id": entry.ID,
		"user_id":       entry.UserID,
		"error":         err.Error(),
	})
}
