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

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// User represents a member account and its financial state
type User struct {
	Id                 string          `json:"id"`
	Username           string          `json:"username"`
	PasswordHash       string          `json:"-"`
	Balance            decimal.Decimal `json:"balance"`
	WithdrawableProfit decimal.Decimal `json:"withdrawable_profit"`
	UnlockedTiers      []int           `json:"unlocked_tiers"`
	TierUnlockDates    map[int]Date    `json:"tier_unlock_dates"`
	ClaimedTiersToday  []int           `json:"claimed_tiers_today"`
	LastClaimDate      Date            `json:"last_claim_date,omitempty"`
	LastSpinDate       Date            `json:"last_spin_date,omitempty"`
	ReferralCode       string          `json:"referral_code"`
	ReferredBy         string          `json:"referred_by,omitempty"`
	IsAdmin            bool            `json:"is_admin"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Version is the optimistic concurrency token. Zero means the record
	// has never been stored.
	Version int64 `json:"version"`
}

// HasTier reports whether tierId is unlocked for the user.
func (u *User) HasTier(tierId int) bool {
	for _, id := range u.UnlockedTiers {
		if id == tierId {
			return true
		}
	}
	return false
}

// HighestTier returns the highest unlocked tier id, or 0 if none.
func (u *User) HighestTier() int {
	highest := 0
	for _, id := range u.UnlockedTiers {
		if id > highest {
			highest = id
		}
	}
	return highest
}

// ClaimedOn returns the tiers already claimed on the given date. The stored
// set only applies to LastClaimDate; any other day starts empty.
func (u *User) ClaimedOn(today Date) []int {
	if u.LastClaimDate != today {
		return nil
	}
	return u.ClaimedTiersToday
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (u *User) Clone() *User {
	c := *u
	c.UnlockedTiers = append([]int(nil), u.UnlockedTiers...)
	c.ClaimedTiersToday = append([]int(nil), u.ClaimedTiersToday...)
	c.TierUnlockDates = make(map[int]Date, len(u.TierUnlockDates))
	for k, v := range u.TierUnlockDates {
		c.TierUnlockDates[k] = v
	}
	return &c
}

// NewUser returns a freshly registered user with zero balances and empty sets.
func NewUser(id, username, referralCode, referredBy string, now time.Time) *User {
	return &User{
		Id:                 id,
		Username:           username,
		Balance:            decimal.Zero,
		WithdrawableProfit: decimal.Zero,
		UnlockedTiers:      []int{},
		TierUnlockDates:    map[int]Date{},
		ClaimedTiersToday:  []int{},
		ReferralCode:       referralCode,
		ReferredBy:         referredBy,
		CreatedAt:          now.UTC(),
		UpdatedAt:          now.UTC(),
	}
}

// SortedInts returns a sorted, de-duplicated copy of ids.
func SortedInts(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

type TransactionKind string

const (
	KindDeposit  TransactionKind = "DEPOSIT"
	KindWithdraw TransactionKind = "WITHDRAW"
)

type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusApproved TransactionStatus = "APPROVED"
	StatusRejected TransactionStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Transaction represents a deposit or withdrawal request
type Transaction struct {
	Id                 string            `json:"id"`
	UserId             string            `json:"user_id"`
	Username           string            `json:"username"` // display only, ownership is UserId
	Amount             decimal.Decimal   `json:"amount"`
	Kind               TransactionKind   `json:"kind"`
	Status             TransactionStatus `json:"status"`
	Network            string            `json:"network,omitempty"`
	DestinationAddress string            `json:"destination_address,omitempty"`
	Timestamp          time.Time         `json:"timestamp"`
	ResolvedAt         *time.Time        `json:"resolved_at,omitempty"`
	Version            int64             `json:"version"`
}

// Clone returns a copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.ResolvedAt != nil {
		r := *t.ResolvedAt
		c.ResolvedAt = &r
	}
	return &c
}
