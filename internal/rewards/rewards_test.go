package rewards

import (
	"context"
	"errors"
	"testing"
	"time"

	"tier-rewards-go/internal/events"
	"tier-rewards-go/internal/ledger"
	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/store"
	"tier-rewards-go/internal/tiers"
	"tier-rewards-go/internal/workflow"

	"github.com/shopspring/decimal"
)

const today = models.Date("2025-03-02")

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T, u *models.User) (*Service, *workflow.Workflow, *events.Recorder) {
	t.Helper()
	records := store.NewMemoryStore()
	if err := records.UpsertUsers(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	rec := &events.Recorder{}
	l := ledger.New(records, tiers.DefaultCatalog())
	w := workflow.New(l, nil, nil, rec)
	return New(l, w, rec), w, rec
}

func memberWithTiers() *models.User {
	u := models.NewUser("u1", "alice", "AAAAAA", "", time.Now())
	u.Balance = d("40")
	u.UnlockedTiers = []int{1, 2}
	u.TierUnlockDates = map[int]models.Date{1: today.AddDays(-3), 2: today}
	return u
}

func TestSummary(t *testing.T) {
	s, w, _ := setup(t, memberWithTiers())
	ctx := context.Background()

	summary, err := s.Summary(ctx, "u1", today)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	// Tier 2 is the highest; tier 1 was unlocked on an earlier day.
	if len(summary.EligibleTiers) != 1 || summary.EligibleTiers[0] != 2 {
		t.Errorf("eligible = %v, want [2]", summary.EligibleTiers)
	}
	if !summary.Payout.Equal(d("3.6")) {
		t.Errorf("payout = %s, want 3.6", summary.Payout)
	}
	if summary.HasPending || !summary.CanSpin {
		t.Errorf("unexpected flags %+v", summary)
	}

	if _, err := w.CreateDeposit(ctx, "u1", d("10")); err != nil {
		t.Fatalf("CreateDeposit failed: %v", err)
	}
	summary, _ = s.Summary(ctx, "u1", today)
	if !summary.HasPending {
		t.Errorf("expected pending request to show")
	}
}

func TestCollect(t *testing.T) {
	s, _, rec := setup(t, memberWithTiers())
	ctx := context.Background()

	result, err := s.Collect(ctx, "u1", today)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if !result.Payout.Equal(d("3.6")) || !result.User.WithdrawableProfit.Equal(d("3.6")) {
		t.Errorf("unexpected claim %+v", result)
	}
	if _, err := s.Collect(ctx, "u1", today); !errors.Is(err, ledger.ErrNothingToClaim) {
		t.Errorf("expected ErrNothingToClaim, got %v", err)
	}
	claims := rec.Events(events.ClaimCollected)
	if len(claims) != 1 || len(claims[0].Tiers) != 1 {
		t.Errorf("expected one claim event, got %+v", claims)
	}

	summary, _ := s.Summary(ctx, "u1", today)
	if len(summary.EligibleTiers) != 0 || !summary.Payout.IsZero() {
		t.Errorf("summary after collect = %+v", summary)
	}
}

func TestTiersView(t *testing.T) {
	s, _, _ := setup(t, memberWithTiers())
	statuses, err := s.Tiers(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Tiers failed: %v", err)
	}
	if len(statuses) != len(tiers.DefaultCatalog().Tiers) {
		t.Fatalf("got %d statuses", len(statuses))
	}
	if !statuses[1].Primary || statuses[0].Primary || !statuses[0].Unlocked || statuses[2].Unlocked {
		t.Errorf("unexpected statuses %+v", statuses[:3])
	}
}
