/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package tiers holds the pure tier rules: which tiers a balance unlocks,
// which unlocked tiers may be claimed on a given day, and the catalog view.
package tiers

import (
	"sort"

	"tier-rewards-go/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DefaultCatalog returns the built-in rewards catalog.
func DefaultCatalog() *models.Catalog {
	pct := decimal.RequireFromString("0.12")
	prices := []int64{10, 30, 90, 230, 508, 1200, 2500}
	tiers := make([]models.TierDefinition, len(prices))
	for i, p := range prices {
		tiers[i] = models.TierDefinition{Id: i + 1, UnlockPrice: decimal.NewFromInt(p), DailyPayoutPercent: pct}
	}

	// Only the two lowest prizes carry weight.
	prizes := []models.Prize{
		{Amount: decimal.RequireFromString("0.5"), Weight: 1},
		{Amount: decimal.NewFromInt(1), Weight: 1},
		{Amount: decimal.NewFromInt(2)},
		{Amount: decimal.NewFromInt(3)},
		{Amount: decimal.NewFromInt(4)},
		{Amount: decimal.NewFromInt(10)},
		{Amount: decimal.NewFromInt(15)},
	}

	return &models.Catalog{
		Tiers:  tiers,
		Prizes: prizes,
		ReferralRates: []decimal.Decimal{
			decimal.RequireFromString("0.12"),
			decimal.RequireFromString("0.05"),
			decimal.RequireFromString("0.02"),
		},
		MinWithdrawal: decimal.NewFromInt(10),
		MinAddressLen: 10,
		Networks: []models.Network{
			{Name: "BEP-20", PrimeNetworkId: "bnb", PrimeNetworkType: "mainnet", PrimeSymbol: "USDT"},
			{Name: "ERC-20", PrimeNetworkId: "ethereum", PrimeNetworkType: "mainnet", PrimeSymbol: "USDT"},
			{Name: "TRC-20", PrimeNetworkId: "tron", PrimeNetworkType: "mainnet", PrimeSymbol: "USDT"},
		},
		DepositNetwork: "BEP-20",
	}
}

// byPrice returns the catalog tiers in ascending unlock-price order.
func byPrice(catalog *models.Catalog) []models.TierDefinition {
	sorted := append([]models.TierDefinition(nil), catalog.Tiers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UnlockPrice.LessThan(sorted[j].UnlockPrice)
	})
	return sorted
}

// Evaluate returns the tiers newly unlocked by balance together with the
// merged unlock set and unlock dates. Inputs are not modified. Running it
// again with the returned state and the same balance unlocks nothing.
func Evaluate(catalog *models.Catalog, balance decimal.Decimal, unlocked []int,
	dates map[int]models.Date, today models.Date) (newly []int, merged []int, mergedDates map[int]models.Date) {

	have := make(map[int]struct{}, len(unlocked))
	for _, id := range unlocked {
		have[id] = struct{}{}
	}
	merged = append([]int(nil), unlocked...)
	mergedDates = make(map[int]models.Date, len(dates)+1)
	for k, v := range dates {
		mergedDates[k] = v
	}

	for _, t := range byPrice(catalog) {
		if _, ok := have[t.Id]; ok {
			continue
		}
		if t.UnlockPrice.GreaterThan(balance) {
			continue
		}
		have[t.Id] = struct{}{}
		newly = append(newly, t.Id)
		merged = append(merged, t.Id)
		mergedDates[t.Id] = today
	}
	return newly, models.SortedInts(merged), mergedDates
}

// Eligible returns the tiers the user may claim today, ordered by id, and
// their combined payout. The highest unlocked tier is always eligible; a
// lower tier is eligible only on the day it was unlocked. Tiers already
// claimed today are excluded.
func Eligible(catalog *models.Catalog, user *models.User, today models.Date) ([]int, decimal.Decimal) {
	claimed := make(map[int]struct{})
	for _, id := range user.ClaimedOn(today) {
		claimed[id] = struct{}{}
	}

	highest := user.HighestTier()
	eligible := []int{}
	payout := decimal.Zero
	for _, id := range models.SortedInts(user.UnlockedTiers) {
		if _, done := claimed[id]; done {
			continue
		}
		if id != highest && user.TierUnlockDates[id] != today {
			continue
		}
		def, ok := catalog.Tier(id)
		if !ok {
			continue
		}
		eligible = append(eligible, id)
		payout = payout.Add(def.DailyPayout())
	}
	return eligible, payout
}

// Status describes every catalog tier relative to the user, in catalog order.
func Status(catalog *models.Catalog, user *models.User) []models.TierStatus {
	highest := user.HighestTier()
	out := make([]models.TierStatus, 0, len(catalog.Tiers))
	for _, t := range catalog.Tiers {
		progress := hundred
		if t.UnlockPrice.IsPositive() {
			progress = decimal.Min(hundred, user.Balance.Div(t.UnlockPrice).Mul(hundred)).Round(2)
		}
		unlocked := user.HasTier(t.Id)
		out = append(out, models.TierStatus{
			Tier:        t,
			Unlocked:    unlocked,
			Primary:     unlocked && t.Id == highest,
			UnlockDate:  user.TierUnlockDates[t.Id],
			DailyPayout: t.DailyPayout(),
			Progress:    progress,
		})
	}
	return out
}
