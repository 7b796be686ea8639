// Package journal mirrors every ledger movement into an external
// double-entry ledger. The record store remains the source of truth.
package journal

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

type MovementKind string

const (
	DepositCredit      MovementKind = "deposit_credit"
	WithdrawalReserve  MovementKind = "withdrawal_reserve"
	WithdrawalReversal MovementKind = "withdrawal_reversal"
	ReferralBonus      MovementKind = "referral_bonus"
	DailyClaim         MovementKind = "daily_claim"
	SpinGrant          MovementKind = "spin_grant"
	ManualBalance      MovementKind = "manual_balance"
	ManualWithdrawable MovementKind = "manual_withdrawable"
)

// Movement is the effective change applied to one user. Deltas are the
// post-clamp differences, so they always reconcile with the stored record.
type Movement struct {
	Reference         string // unique per movement, used for idempotency
	UserId            string
	Kind              MovementKind
	BalanceDelta      decimal.Decimal
	WithdrawableDelta decimal.Decimal
	TransactionId     string
}

// Locked is the change to the non-withdrawable share of the balance.
func (m Movement) Locked() decimal.Decimal {
	return m.BalanceDelta.Sub(m.WithdrawableDelta)
}

// IsZero reports whether the movement changed nothing.
func (m Movement) IsZero() bool {
	return m.BalanceDelta.IsZero() && m.WithdrawableDelta.IsZero()
}

type Journal interface {
	Record(ctx context.Context, m Movement) error
}

// Nop drops every movement.
type Nop struct{}

func (Nop) Record(context.Context, Movement) error { return nil }

// Memory keeps movements in process.
type Memory struct {
	mu        sync.Mutex
	movements []Movement
}

func (j *Memory) Record(_ context.Context, m Movement) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.movements = append(j.movements, m)
	return nil
}

func (j *Memory) Movements() []Movement {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Movement(nil), j.movements...)
}
