package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"jobfit-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

type retrying struct {
	base       Client
	maxRetries int
	baseDelay  time.Duration
}

// WithRetry retries transient upstream failures up to maxRetries times with
// doubling delays. maxRetries <= 0 returns base unchanged.
func WithRetry(base Client, maxRetries int) Client {
	if base == nil || maxRetries <= 0 {
		return base
	}
	return retrying{base: base, maxRetries: maxRetries, baseDelay: retryBaseDelay}
}

func (r retrying) Generate(ctx context.Context, prompt string) (string, error) {
	delay := r.baseDelay
	for attempt := 0; ; attempt++ {
		text, err := r.base.Generate(ctx, prompt)
		if err == nil || attempt >= r.maxRetries || !shouldRetry(err) {
			return text, err
		}
		telemetry.Warn("llm.retry", map[string]any{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		delay *= 2
	}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if up, ok := IsUpstream(err); ok {
		if up.StatusCode == http.StatusTooManyRequests || up.StatusCode >= 500 {
			return true
		}
		if up.StatusCode != 0 {
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof")
}
