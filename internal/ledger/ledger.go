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

// Package ledger owns every change to a user's monetary fields. All
// mutations are serialized per user and written with an optimistic version
// check, retrying when another writer got there first.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tier-rewards-go/internal/journal"
	"tier-rewards-go/internal/lock"
	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/session"
	"tier-rewards-go/internal/store"
	"tier-rewards-go/internal/tiers"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrNothingToClaim = errors.New("nothing to collect today")

	ErrInsufficientWithdrawable = errors.New("amount exceeds withdrawable profit")
)

const defaultMaxRetries = 5

// Entry labels a mutation for the journal mirror.
type Entry struct {
	Kind          journal.MovementKind
	Reference     string // generated when empty
	TransactionId string
}

type Ledger struct {
	records    store.RecordStore
	catalog    *models.Catalog
	locker     lock.Locker
	journal    journal.Journal
	maxRetries int
	now        func() time.Time
}

type Option func(*Ledger)

func WithLocker(locker lock.Locker) Option {
	return func(l *Ledger) { l.locker = locker }
}

func WithJournal(j journal.Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

func WithMaxRetries(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(records store.RecordStore, catalog *models.Catalog, opts ...Option) *Ledger {
	l := &Ledger{
		records:    records,
		catalog:    catalog,
		locker:     lock.NewKeyedMutex(),
		journal:    journal.Nop{},
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Catalog() *models.Catalog { return l.catalog }

func (l *Ledger) Records() store.RecordStore { return l.records }

// Now returns the ledger clock in UTC.
func (l *Ledger) Now() time.Time { return l.now().UTC() }

// Today returns the current UTC calendar day according to the ledger clock.
func (l *Ledger) Today() models.Date { return models.DateOf(l.now()) }

// Mutate applies fn to a fresh copy of the user and persists the result.
// fn may run more than once when the write loses a version race; it must
// derive everything from the user it is given. An error from fn aborts
// without writing.
func (l *Ledger) Mutate(ctx context.Context, userId string, entry Entry, fn func(u *models.User) error) (*models.User, error) {
	unlock, err := l.locker.Lock(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to lock user %s: %w", userId, err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		current, err := l.records.GetUserById(ctx, userId)
		if err != nil {
			return nil, err
		}
		before := current.Clone()

		if err := fn(current); err != nil {
			return nil, err
		}

		err = l.records.UpsertUsers(ctx, current)
		if err == nil {
			l.afterWrite(ctx, before, current, entry)
			return current, nil
		}
		if !errors.Is(err, store.ErrConcurrentModification) || attempt >= l.maxRetries {
			return nil, err
		}
		zap.L().Warn("Retrying user mutation after version conflict",
			zap.String("user_id", userId),
			zap.Int("attempt", attempt))
	}
}

func (l *Ledger) afterWrite(ctx context.Context, before, after *models.User, entry Entry) {
	if s := session.FromContext(ctx); s != nil {
		s.Observe(ctx, after)
	}

	m := journal.Movement{
		Reference:         entry.Reference,
		UserId:            after.Id,
		Kind:              entry.Kind,
		BalanceDelta:      after.Balance.Sub(before.Balance),
		WithdrawableDelta: after.WithdrawableProfit.Sub(before.WithdrawableProfit),
		TransactionId:     entry.TransactionId,
	}
	if m.IsZero() {
		return
	}
	if m.Reference == "" {
		m.Reference = uuid.NewString()
	}
	if err := l.journal.Record(ctx, m); err != nil {
		zap.L().Warn("Failed to mirror ledger movement",
			zap.String("user_id", after.Id),
			zap.String("kind", string(entry.Kind)),
			zap.String("reference", m.Reference),
			zap.Error(err))
	}
}

// AdjustBalance adds delta to the balance, and to the withdrawable profit
// when affectsWithdrawable is set. Both clamp at zero. Any tier the new
// balance affords is unlocked with today's date.
func (l *Ledger) AdjustBalance(ctx context.Context, userId string, delta decimal.Decimal, affectsWithdrawable bool, entry Entry) (*models.User, error) {
	today := l.Today()
	user, err := l.Mutate(ctx, userId, entry, func(u *models.User) error {
		u.Balance = clampZero(u.Balance.Add(delta))
		if affectsWithdrawable {
			u.WithdrawableProfit = clampZero(u.WithdrawableProfit.Add(delta))
		}
		l.unlockTiers(u, today)
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Balance adjusted",
		zap.String("user_id", userId),
		zap.String("delta", delta.String()),
		zap.Bool("affects_withdrawable", affectsWithdrawable),
		zap.String("balance", user.Balance.String()),
		zap.String("withdrawable", user.WithdrawableProfit.String()))
	return user, nil
}

// Reserve debits amount from balance and withdrawable profit, failing
// without a write when the stored withdrawable profit is below amount.
func (l *Ledger) Reserve(ctx context.Context, userId string, amount decimal.Decimal, entry Entry) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	today := l.Today()
	return l.Mutate(ctx, userId, entry, func(u *models.User) error {
		if amount.GreaterThan(u.WithdrawableProfit) {
			return ErrInsufficientWithdrawable
		}
		u.Balance = clampZero(u.Balance.Sub(amount))
		u.WithdrawableProfit = clampZero(u.WithdrawableProfit.Sub(amount))
		l.unlockTiers(u, today)
		return nil
	})
}

// CreditBonus adds amount to both balance and withdrawable profit without
// evaluating tiers.
func (l *Ledger) CreditBonus(ctx context.Context, userId string, amount decimal.Decimal, entry Entry) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return l.Mutate(ctx, userId, entry, func(u *models.User) error {
		AddBonus(u, amount)
		return nil
	})
}

// AdjustWithdrawable changes only the withdrawable profit, clamped at zero.
func (l *Ledger) AdjustWithdrawable(ctx context.Context, userId string, delta decimal.Decimal, entry Entry) (*models.User, error) {
	return l.Mutate(ctx, userId, entry, func(u *models.User) error {
		u.WithdrawableProfit = clampZero(u.WithdrawableProfit.Add(delta))
		return nil
	})
}

// Claim records tierIds as claimed today and credits payout as withdrawable
// profit. The claimed set is reset first when the last claim was on another day.
func (l *Ledger) Claim(ctx context.Context, userId string, payout decimal.Decimal, tierIds []int, today models.Date) (*models.User, error) {
	entry := Entry{Kind: journal.DailyClaim, Reference: claimReference(userId, today, tierIds)}
	return l.Mutate(ctx, userId, entry, func(u *models.User) error {
		applyClaim(u, payout, tierIds, today)
		return nil
	})
}

// ClaimEligible computes the claimable tiers on the stored state and claims
// them in the same write, so two concurrent collections cannot both pay.
func (l *Ledger) ClaimEligible(ctx context.Context, userId string, today models.Date) (*models.ClaimResult, error) {
	var (
		claimed []int
		payout  decimal.Decimal
	)
	entry := Entry{Kind: journal.DailyClaim}
	user, err := l.Mutate(ctx, userId, entry, func(u *models.User) error {
		claimed, payout = tiers.Eligible(l.catalog, u, today)
		if len(claimed) == 0 {
			return ErrNothingToClaim
		}
		applyClaim(u, payout, claimed, today)
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Daily payout collected",
		zap.String("user_id", userId),
		zap.Ints("tiers", claimed),
		zap.String("payout", payout.String()))
	return &models.ClaimResult{Tiers: claimed, Payout: payout, User: user}, nil
}

func applyClaim(u *models.User, payout decimal.Decimal, tierIds []int, today models.Date) {
	if u.LastClaimDate != today {
		u.ClaimedTiersToday = []int{}
	}
	u.ClaimedTiersToday = models.SortedInts(append(u.ClaimedTiersToday, tierIds...))
	AddBonus(u, payout)
	u.LastClaimDate = today
}

func (l *Ledger) unlockTiers(u *models.User, today models.Date) {
	newly, merged, dates := tiers.Evaluate(l.catalog, u.Balance, u.UnlockedTiers, u.TierUnlockDates, today)
	u.UnlockedTiers = merged
	u.TierUnlockDates = dates
	if len(newly) > 0 {
		zap.L().Info("Tiers unlocked",
			zap.String("user_id", u.Id),
			zap.Ints("tiers", newly))
	}
}

// AddBonus credits amount to both balance and withdrawable profit of u.
func AddBonus(u *models.User, amount decimal.Decimal) {
	u.Balance = u.Balance.Add(amount)
	u.WithdrawableProfit = u.WithdrawableProfit.Add(amount)
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func claimReference(userId string, today models.Date, tierIds []int) string {
	return fmt.Sprintf("claim:%s:%s:%v", userId, today, models.SortedInts(tierIds))
}
