package promo

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

	"github.com/shopspring/decimal"
)

const today = models.Date("2025-03-02")

func setup(t *testing.T, draw Draw) (*Granter, *store.MemoryStore, *events.Recorder) {
	t.Helper()
	records := store.NewMemoryStore()
	u := models.NewUser("u1", "alice", "AAAAAA", "", time.Now())
	if err := records.UpsertUsers(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	rec := &events.Recorder{}
	l := ledger.New(records, tiers.DefaultCatalog())
	return New(l, rec, WithDraw(draw)), records, rec
}

func TestSpinOncePerDay(t *testing.T) {
	g, records, rec := setup(t, func(int) int { return 0 })
	ctx := context.Background()

	result, err := g.Spin(ctx, "u1", today)
	if err != nil {
		t.Fatalf("Spin failed: %v", err)
	}
	if result.PrizeIndex != 0 || !result.Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("unexpected prize %d / %s", result.PrizeIndex, result.Amount)
	}

	if _, err := g.Spin(ctx, "u1", today); !errors.Is(err, ErrAlreadyGrantedToday) {
		t.Fatalf("expected ErrAlreadyGrantedToday, got %v", err)
	}

	u, _ := records.GetUserById(ctx, "u1")
	if !u.Balance.Equal(decimal.RequireFromString("0.5")) || !u.WithdrawableProfit.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("spin credited %s / %s, want 0.5 / 0.5", u.Balance, u.WithdrawableProfit)
	}
	if u.LastSpinDate != today {
		t.Errorf("LastSpinDate = %q", u.LastSpinDate)
	}
	if CanSpin(u, today) || !CanSpin(u, today.AddDays(1)) {
		t.Errorf("CanSpin mismatch")
	}
	if len(rec.Events(events.SpinGranted)) != 1 {
		t.Errorf("expected one spin event")
	}

	if _, err := g.Spin(ctx, "u1", today.AddDays(1)); err != nil {
		t.Errorf("next day spin failed: %v", err)
	}
}

func TestSpinDrawsOnlyWeightedPrizes(t *testing.T) {
	catalog := tiers.DefaultCatalog()
	want := map[int]string{0: "0.5", 1: "1"}

	total := 0
	for _, p := range catalog.Prizes {
		total += p.Weight
	}
	for n := 0; n < total; n++ {
		n := n
		g, _, _ := setup(t, func(int) int { return n })
		result, err := g.Spin(context.Background(), "u1", today)
		if err != nil {
			t.Fatalf("draw %d: %v", n, err)
		}
		amount, ok := want[result.PrizeIndex]
		if !ok {
			t.Fatalf("draw %d picked unweighted prize %d", n, result.PrizeIndex)
		}
		if !result.Amount.Equal(decimal.RequireFromString(amount)) {
			t.Errorf("draw %d: amount %s, want %s", n, result.Amount, amount)
		}
	}
}

func TestSpinUnknownUser(t *testing.T) {
	g, _, rec := setup(t, func(int) int { return 0 })
	if _, err := g.Spin(context.Background(), "missing", today); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Errorf("failed spin emitted events")
	}
}
