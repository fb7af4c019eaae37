package users

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryRepoIncrementCreditsStopsAtCeiling(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if err := repo.Upsert(ctx, User{ID: "user-1", Email: "a@example.com"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	const ceiling = 5
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementCredits(ctx, "user-1", ceiling)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrLimitReached):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != ceiling || rejected != 15 {
		t.Fatalf("expected %d accepted and 15 rejected, got %d/%d", ceiling, accepted, rejected)
	}
	user, err := repo.GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.CreditsUsed != ceiling {
		t.Fatalf("expected %d credits used, got %d", ceiling, user.CreditsUsed)
	}
	if user.Plan != PlanFree {
		t.Fatalf("expected default plan %s, got %s", PlanFree, user.Plan)
	}
}

func TestMemoryRepoUnknownUser(t *testing.T) {
	repo := NewMemoryRepo()
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.IncrementCredits(context.Background(), "missing", 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoUpsertKeepsCounter(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_ = repo.Upsert(ctx, User{ID: "user-1", Plan: PlanPro, CreditsUsed: 19})
	used, err := repo.IncrementCredits(ctx, "user-1", 20)
	if err != nil {
		t.Fatalf("IncrementCredits: %v", err)
	}
	if used != 20 {
		t.Fatalf("expected 20, got %d", used)
	}
}

func TestMemoryRepoUpsertRefreshesIdentityOnly(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_ = repo.Upsert(ctx, User{ID: "user-1", Email: "old@example.com", Plan: PlanPro, CreditsUsed: 7})
	if err := repo.Upsert(ctx, User{ID: "user-1", Email: "new@example.com", Name: "Jordan"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := repo.GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "new@example.com" || got.Name != "Jordan" {
		t.Fatalf("expected identity refreshed, got %+v", got)
	}
	if got.Plan != PlanPro || got.CreditsUsed != 7 {
		t.Fatalf("plan and credits must survive a refresh, got %+v", got)
	}
}
