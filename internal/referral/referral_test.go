package referral

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

func addUser(t *testing.T, records store.RecordStore, id, code, referredBy string) {
	t.Helper()
	u := models.NewUser(id, "user_"+id, code, referredBy, time.Now())
	if err := records.UpsertUsers(context.Background(), u); err != nil {
		t.Fatalf("add user %s: %v", id, err)
	}
}

func balances(t *testing.T, records store.RecordStore, id string) (decimal.Decimal, decimal.Decimal) {
	t.Helper()
	u, err := records.GetUserById(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %s: %v", id, err)
	}
	return u.Balance, u.WithdrawableProfit
}

func TestDistributeThreeLevels(t *testing.T) {
	records := store.NewMemoryStore()
	addUser(t, records, "r3", "CODE03", "")
	addUser(t, records, "r2", "CODE02", "CODE03")
	addUser(t, records, "r1", "CODE01", "CODE02")
	addUser(t, records, "dep", "CODE00", "CODE01")
	addUser(t, records, "top", "CODE04", "")

	rec := &events.Recorder{}
	d := NewDistributor(ledger.New(records, tiers.DefaultCatalog()), rec)

	credits, err := d.Distribute(context.Background(), "dep", decimal.NewFromInt(100), "tx1")
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if len(credits) != 3 {
		t.Fatalf("expected 3 credits, got %d", len(credits))
	}

	want := map[string]int64{"r1": 12, "r2": 5, "r3": 2}
	for id, amount := range want {
		bal, wd := balances(t, records, id)
		if !bal.Equal(decimal.NewFromInt(amount)) || !wd.Equal(decimal.NewFromInt(amount)) {
			t.Errorf("%s got balance %s withdrawable %s, want %d", id, bal, wd, amount)
		}
	}
	if bal, _ := balances(t, records, "dep"); !bal.IsZero() {
		t.Errorf("depositor should not be credited, got %s", bal)
	}
	if got := len(rec.Events(events.ReferralCredited)); got != 3 {
		t.Errorf("expected 3 referral events, got %d", got)
	}
}

func TestDistributeStopsAtMissingLink(t *testing.T) {
	records := store.NewMemoryStore()
	addUser(t, records, "r3", "CODE03", "")
	addUser(t, records, "r1", "CODE01", "GONE02")
	addUser(t, records, "dep", "CODE00", "CODE01")

	d := NewDistributor(ledger.New(records, tiers.DefaultCatalog()), nil)
	credits, err := d.Distribute(context.Background(), "dep", decimal.NewFromInt(100), "tx1")
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if len(credits) != 1 || credits[0].UserId != "r1" {
		t.Fatalf("expected only level 1 credit, got %+v", credits)
	}
	if bal, _ := balances(t, records, "r3"); !bal.IsZero() {
		t.Errorf("level 3 credited past a missing level 2: %s", bal)
	}
}

func TestDistributeWithoutReferrer(t *testing.T) {
	records := store.NewMemoryStore()
	addUser(t, records, "dep", "CODE00", "")

	d := NewDistributor(ledger.New(records, tiers.DefaultCatalog()), nil)
	credits, err := d.Distribute(context.Background(), "dep", decimal.NewFromInt(100), "tx1")
	if err != nil || len(credits) != 0 {
		t.Errorf("expected no credits and no error, got %v, %v", credits, err)
	}
}

func TestValidateLink(t *testing.T) {
	records := store.NewMemoryStore()
	addUser(t, records, "a", "AAAAAA", "")
	addUser(t, records, "b", "BBBBBB", "AAAAAA")
	addUser(t, records, "c", "CCCCCC", "BBBBBB")
	ctx := context.Background()

	tests := []struct {
		name    string
		code    string
		newCode string
		want    error
	}{
		{"no referrer", "", "NEWNEW", nil},
		{"valid chain", "CCCCCC", "NEWNEW", nil},
		{"unknown code", "ZZZZZZ", "NEWNEW", ErrUnknownReferralCode},
		{"self referral", "AAAAAA", "AAAAAA", ErrReferralCycle},
		{"ancestor cycle", "CCCCCC", "AAAAAA", ErrReferralCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateLink(ctx, records, tt.code, tt.newCode); !errors.Is(err, tt.want) {
				t.Errorf("ValidateLink(%q, %q) = %v, want %v", tt.code, tt.newCode, err, tt.want)
			}
		})
	}
}

func TestNetworkLevels(t *testing.T) {
	records := store.NewMemoryStore()
	addUser(t, records, "root", "ROOT00", "")
	addUser(t, records, "l1a", "L1A000", "ROOT00")
	addUser(t, records, "l1b", "L1B000", "ROOT00")
	addUser(t, records, "l2", "L20000", "L1A000")
	addUser(t, records, "l3", "L30000", "L20000")
	addUser(t, records, "l4", "L40000", "L30000")

	levels, err := Network(context.Background(), records, tiers.DefaultCatalog(), "root")
	if err != nil {
		t.Fatalf("Network failed: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	counts := []int{levels[0].Count, levels[1].Count, levels[2].Count}
	if counts[0] != 2 || counts[1] != 1 || counts[2] != 1 {
		t.Errorf("unexpected level counts %v", counts)
	}
	if !levels[1].Rate.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("level 2 rate = %s", levels[1].Rate)
	}
}

func TestLinkRoundTrip(t *testing.T) {
	link := Link("https://rewards.example.com/", "AB12CD")
	if link != "https://rewards.example.com/#register?ref=AB12CD" {
		t.Fatalf("unexpected link %q", link)
	}
	code, err := ParseLink(link)
	if err != nil || code != "AB12CD" {
		t.Errorf("ParseLink = %q, %v", code, err)
	}

	for _, bad := range []string{"https://rewards.example.com/#login?ref=AB12CD", "https://rewards.example.com/#register", "https://rewards.example.com/#register?x=1"} {
		if _, err := ParseLink(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestNewCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := NewCode()
		if len(code) != 6 {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
				t.Fatalf("code %q contains %q", code, r)
			}
		}
	}
}
