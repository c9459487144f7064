package quota

import (
	"context"
	"fmt"

	"ai-interviewer/internal/domain"
	"ai-interviewer/internal/store"
)

// Access is the read-only result of a quota check. A denial is a normal
// business outcome, never an error.
type Access struct {
	Allowed  bool
	Mode     domain.SessionMode
	Balance  int
	DemoUsed bool
}

// Gate decides whether a user may start a session. The check here is
// advisory; the authoritative consume happens atomically inside the
// session-creation transaction, so a race between check and consume can
// only abort the start, never double-spend.
type Gate struct {
	repo store.Repository
}

func New(repo store.Repository) *Gate {
	return &Gate{repo: repo}
}

// CheckAccess reports whether and in which mode the user may start. Paid
// credits win over the free demo.
func (g *Gate) CheckAccess(ctx context.Context, userID int64) (Access, error) {
	balance, err := g.repo.GetOrCreateBalance(ctx, userID)
	if err != nil {
		return Access{}, fmt.Errorf("check access: %w", err)
	}

	if balance.CreditBalance > 0 {
		return Access{
			Allowed:  true,
			Mode:     domain.ModeFull,
			Balance:  balance.CreditBalance,
			DemoUsed: balance.DemoUsed,
		}, nil
	}
	if !balance.DemoUsed {
		return Access{Allowed: true, Mode: domain.ModeDemo}, nil
	}
	return Access{DemoUsed: true}, nil
}

// AddCredits is the single entry point for purchases and promo-code
// redemptions alike; a promo redemption is just a zero-cost purchase.
func (g *Gate) AddCredits(ctx context.Context, userID int64, n int) (*domain.Balance, error) {
	return g.repo.AddCredits(ctx, userID, n)
}
