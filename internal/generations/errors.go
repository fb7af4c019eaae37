package generations

import "errors"

var (
	// ErrNotFound indicates the log entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the entry belongs to another user.
	ErrForbidden = errors.New("forbidden")

	// ErrNotArchived indicates the entry has no stored document.
	ErrNotArchived = errors.New("document not archived")
)
