package usage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/telemetry"
	"jobfit-backend/internal/users"
)

// Subject is the quota view of one caller for the lifetime of a request.
// Anonymous subjects carry no quota.
type Subject struct {
	UserID      string
	Email       string
	Plan        string
	CreditsUsed int
	Ceiling     int
	Anonymous   bool
}

// Enforcer gates generations on the caller's plan ceiling.
type Enforcer struct {
	Users users.Repo
}

func NewEnforcer(repo users.Repo) *Enforcer {
	return &Enforcer{Users: repo}
}

// Check resolves the caller and rejects them when the counter is already at the
// ceiling. An empty id or an id without a user record is anonymous.
func (e *Enforcer) Check(ctx context.Context, userID string) (Subject, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || e == nil || e.Users == nil {
		return Subject{Anonymous: true}, nil
	}
	user, err := e.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Subject{Anonymous: true}, nil
		}
		return Subject{}, fmt.Errorf("load user: %w", err)
	}
	subject := Subject{
		UserID:      user.ID,
		Email:       user.Email,
		Plan:        user.Plan,
		CreditsUsed: user.CreditsUsed,
		Ceiling:     Ceiling(user.Plan),
	}
	if subject.CreditsUsed >= subject.Ceiling {
		metrics.IncQuotaRejected()
		return subject, &QuotaExceededError{Ceiling: subject.Ceiling}
	}
	return subject, nil
}

// Consume takes one credit with a single conditional increment. Losing a race
// for the last credit yields QuotaExceededError; any other store failure is
// logged as a persistence warning and swallowed.
func (e *Enforcer) Consume(ctx context.Context, subject Subject) error {
	if subject.Anonymous || e == nil || e.Users == nil {
		return nil
	}
	used, err := e.Users.IncrementCredits(ctx, subject.UserID, subject.Ceiling)
	switch {
	case err == nil:
		telemetry.Info("quota.consumed", map[string]any{
			"user_id":      subject.UserID,
			"credits_used": used,
			"limit":        subject.Ceiling,
		})
		return nil
	case errors.Is(err, users.ErrLimitReached):
		metrics.IncQuotaRejected()
		return &QuotaExceededError{Ceiling: subject.Ceiling}
	default:
		metrics.IncPersistenceWarning()
		telemetry.Warn("quota.consume_failed", map[string]any{
			"user_id": subject.UserID,
			"error":   err.Error(),
		})
		return nil
	}
}

// Snapshot returns the caller's plan, counter and limit.
func (e *Enforcer) Snapshot(ctx context.Context, userID string) (Usage, error) {
	user, err := e.Users.GetByID(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Plan: user.Plan, CreditsUsed: user.CreditsUsed, Limit: Ceiling(user.Plan)}, nil
}
