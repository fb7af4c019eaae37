package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open and Delete when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore archives generated documents and streams them back for download.
type ObjectStore interface {
	Save(ctx context.Context, ownerKey, fileName, contentType string, r io.Reader) (storageKey string, sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
