package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client sends one prompt to a generative text service and returns its raw text reply.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// UpstreamServiceError reports a failed call to the generative service.
// Message carries the upstream text unchanged so callers can surface it.
type UpstreamServiceError struct {
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *UpstreamServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("upstream status %d", e.StatusCode)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }

// IsUpstream reports whether err is an UpstreamServiceError and returns it.
func IsUpstream(err error) (*UpstreamServiceError, bool) {
	var up *UpstreamServiceError
	if errors.As(err, &up) {
		return up, true
	}
	return nil, false
}

// ErrNotConfigured is returned by UnconfiguredClient.
var ErrNotConfigured = errors.New("GEMINI_API_KEY is not configured")

// UnconfiguredClient is used when no API key is set, so dev servers still boot.
type UnconfiguredClient struct{}

// Generate always fails with an UpstreamServiceError wrapping ErrNotConfigured.
func (UnconfiguredClient) Generate(context.Context, string) (string, error) {
	return "", &UpstreamServiceError{Message: ErrNotConfigured.Error(), Err: ErrNotConfigured}
}
