package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxFileNameRunes = 120

var ErrInvalidFileName = errors.New("invalid file name")

// OwnerDir returns the hashed directory an owner's archived documents live under.
func OwnerDir(owner string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(owner)))
	return hex.EncodeToString(sum[:16])
}

// SanitizeFileName flattens path separators, drops control characters and
// rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(name) {
		if n == maxFileNameRunes {
			break
		}
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsControl(r):
			continue
		default:
			b.WriteRune(r)
		}
		n++
	}
	if b.Len() == 0 {
		return "", ErrInvalidFileName
	}
	return b.String(), nil
}

// ObjectName prefixes a sanitized file name with a random id so archives never collide.
func ObjectName(fileName string) (string, error) {
	clean, err := SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + clean, nil
}

// AttachmentName makes a file name safe for a quoted Content-Disposition value.
func AttachmentName(fileName string) string {
	clean, err := SanitizeFileName(fileName)
	if err != nil {
		return "document.docx"
	}
	return strings.Map(func(r rune) rune {
		if r == '"' || r == ';' {
			return '_'
		}
		return r
	}, clean)
}
