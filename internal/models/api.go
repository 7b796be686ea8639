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

package models

import "github.com/shopspring/decimal"

// TierStatus describes one catalog tier from a user's point of view
type TierStatus struct {
	Tier        TierDefinition  `json:"tier"`
	Unlocked    bool            `json:"unlocked"`
	Primary     bool            `json:"primary"` // highest unlocked tier
	UnlockDate  Date            `json:"unlock_date,omitempty"`
	DailyPayout decimal.Decimal `json:"daily_payout"`
	Progress    decimal.Decimal `json:"progress"` // percent toward unlock, capped at 100
}

// DashboardSummary is the per-day view of a user's rewards state
type DashboardSummary struct {
	Balance            decimal.Decimal `json:"balance"`
	WithdrawableProfit decimal.Decimal `json:"withdrawable_profit"`
	EligibleTiers      []int           `json:"eligible_tiers"`
	Payout             decimal.Decimal `json:"payout"`
	HasPending         bool            `json:"has_pending"`
	CanSpin            bool            `json:"can_spin"`
}

// ClaimResult is returned after collecting daily payouts
type ClaimResult struct {
	Tiers  []int           `json:"tiers"`
	Payout decimal.Decimal `json:"payout"`
	User   *User           `json:"user"`
}

// SpinResult is returned after a promotional grant
type SpinResult struct {
	PrizeIndex int             `json:"prize_index"`
	Amount     decimal.Decimal `json:"amount"`
	User       *User           `json:"user"`
}

// ReferralLevel lists the users at one depth below a referrer
type ReferralLevel struct {
	Level int             `json:"level"`
	Rate  decimal.Decimal `json:"rate"`
	Users []ReferralUser  `json:"users"`
	Count int             `json:"count"`
}

// ReferralUser is the public projection of a referred user
type ReferralUser struct {
	Id           string `json:"id"`
	Username     string `json:"username"`
	ReferralCode string `json:"referral_code"`
	HighestTier  int    `json:"highest_tier"`
}

// UserOverview is the admin listing row
type UserOverview struct {
	User          *User `json:"user"`
	ReferralCount int   `json:"referral_count"`
}
