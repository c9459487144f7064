package quota

import (
	"context"
	"testing"

	"ai-interviewer/internal/domain"
	"ai-interviewer/internal/store"
)

func newGate(t *testing.T) (*Gate, store.Repository, *domain.User) {
	t.Helper()
	repo, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	u := &domain.User{TelegramID: 1}
	if err := repo.UpsertUser(context.Background(), u); err != nil {
		t.Fatalf("failed to upsert user: %v", err)
	}
	return New(repo), repo, u
}

func TestFreshUserGetsDemo(t *testing.T) {
	gate, _, u := newGate(t)

	access, err := gate.CheckAccess(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !access.Allowed || access.Mode != domain.ModeDemo {
		t.Fatalf("fresh user should get demo, got %+v", access)
	}
}

func TestCreditsWinOverDemo(t *testing.T) {
	gate, _, u := newGate(t)
	ctx := context.Background()

	if _, err := gate.AddCredits(ctx, u.ID, 3); err != nil {
		t.Fatalf("add credits failed: %v", err)
	}

	access, err := gate.CheckAccess(ctx, u.ID)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !access.Allowed || access.Mode != domain.ModeFull {
		t.Fatalf("credits should select full mode, got %+v", access)
	}
	if access.Balance != 3 {
		t.Fatalf("balance = %d, want 3", access.Balance)
	}
}

func TestDeniedAfterDemoSpent(t *testing.T) {
	gate, repo, u := newGate(t)
	ctx := context.Background()

	sess := &domain.Session{UserID: u.ID, Role: "designer", Experience: "middle", Mode: domain.ModeDemo}
	if err := repo.CreateSessionConsuming(ctx, sess); err != nil {
		t.Fatalf("demo start failed: %v", err)
	}

	access, err := gate.CheckAccess(ctx, u.ID)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if access.Allowed {
		t.Fatalf("spent demo without credits must deny, got %+v", access)
	}
	if !access.DemoUsed {
		t.Fatalf("denial should report the demo as used")
	}
}
