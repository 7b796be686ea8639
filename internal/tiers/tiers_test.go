package tiers

import (
	"reflect"
	"testing"

	"tier-rewards-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	yesterday models.Date = "2025-03-01"
	today     models.Date = "2025-03-02"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEvaluateUnlocksEveryAffordableTier(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name     string
		balance  string
		unlocked []int
		newly    []int
		merged   []int
	}{
		{"below first tier", "9.99", nil, nil, []int{}},
		{"exactly first price", "10", nil, []int{1}, []int{1}},
		{"jump several tiers", "95", nil, []int{1, 2, 3}, []int{1, 2, 3}},
		{"only missing tiers", "40", []int{1}, []int{2}, []int{1, 2}},
		{"already unlocked", "40", []int{1, 2}, nil, []int{1, 2}},
		{"keeps tiers above balance", "0", []int{1, 2}, nil, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newly, merged, dates := Evaluate(catalog, d(tt.balance), tt.unlocked, map[int]models.Date{}, today)
			if !reflect.DeepEqual(newly, tt.newly) {
				t.Errorf("newly = %v, want %v", newly, tt.newly)
			}
			if !reflect.DeepEqual(merged, tt.merged) {
				t.Errorf("merged = %v, want %v", merged, tt.merged)
			}
			for _, id := range tt.newly {
				if dates[id] != today {
					t.Errorf("tier %d unlock date = %q, want %q", id, dates[id], today)
				}
			}
		})
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	catalog := DefaultCatalog()
	original := map[int]models.Date{1: yesterday}

	_, merged, dates := Evaluate(catalog, d("250"), []int{1}, original, today)
	newly, again, againDates := Evaluate(catalog, d("250"), merged, dates, today)
	if len(newly) != 0 {
		t.Errorf("second evaluation unlocked %v", newly)
	}
	if !reflect.DeepEqual(again, merged) || !reflect.DeepEqual(againDates, dates) {
		t.Errorf("second evaluation changed state")
	}
	if dates[1] != yesterday {
		t.Errorf("existing unlock date overwritten: %q", dates[1])
	}
	if len(original) != 1 {
		t.Errorf("input map mutated: %v", original)
	}
}

func TestEligibleHighestAndSameDay(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name     string
		unlocked []int
		dates    map[int]models.Date
		claimed  []int
		lastDate models.Date
		want     []int
		payout   string
	}{
		{
			name:     "highest plus same-day lower tier",
			unlocked: []int{1, 2},
			dates:    map[int]models.Date{1: today, 2: yesterday},
			want:     []int{1, 2},
			payout:   "4.8", // 10*0.12 + 30*0.12
		},
		{
			name:     "dormant lower tier",
			unlocked: []int{1, 2, 3},
			dates:    map[int]models.Date{1: yesterday, 2: yesterday, 3: yesterday},
			want:     []int{3},
			payout:   "10.8",
		},
		{
			name:     "already claimed today",
			unlocked: []int{1, 2},
			dates:    map[int]models.Date{1: today, 2: today},
			claimed:  []int{2},
			lastDate: today,
			want:     []int{1},
			payout:   "1.2",
		},
		{
			name:     "claims from an earlier day are ignored",
			unlocked: []int{2},
			dates:    map[int]models.Date{2: yesterday},
			claimed:  []int{2},
			lastDate: yesterday,
			want:     []int{2},
			payout:   "3.6",
		},
		{
			name:   "nothing unlocked",
			want:   []int{},
			payout: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{
				UnlockedTiers:     tt.unlocked,
				TierUnlockDates:   tt.dates,
				ClaimedTiersToday: tt.claimed,
				LastClaimDate:     tt.lastDate,
			}
			got, payout := Eligible(catalog, user, today)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("eligible = %v, want %v", got, tt.want)
			}
			if !payout.Equal(d(tt.payout)) {
				t.Errorf("payout = %s, want %s", payout, tt.payout)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	catalog := DefaultCatalog()
	user := &models.User{
		Balance:         d("45"),
		UnlockedTiers:   []int{1, 2},
		TierUnlockDates: map[int]models.Date{1: yesterday, 2: today},
	}

	status := Status(catalog, user)
	if len(status) != len(catalog.Tiers) {
		t.Fatalf("expected %d entries, got %d", len(catalog.Tiers), len(status))
	}
	if !status[0].Unlocked || status[0].Primary {
		t.Errorf("tier 1 should be unlocked and secondary: %+v", status[0])
	}
	if !status[1].Primary || status[1].UnlockDate != today {
		t.Errorf("tier 2 should be primary: %+v", status[1])
	}
	if !status[1].Progress.Equal(d("100")) {
		t.Errorf("progress should cap at 100, got %s", status[1].Progress)
	}
	if !status[2].Progress.Equal(d("50")) {
		t.Errorf("tier 3 progress = %s, want 50", status[2].Progress)
	}
	if !status[6].DailyPayout.Equal(d("300")) {
		t.Errorf("tier 7 daily payout = %s, want 300", status[6].DailyPayout)
	}
}
