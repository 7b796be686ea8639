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

// Package workflow runs the deposit and withdrawal request lifecycle:
// PENDING on creation, then exactly one transition to APPROVED or REJECTED
// with its ledger side effects.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tier-rewards-go/internal/events"
	"tier-rewards-go/internal/journal"
	"tier-rewards-go/internal/ledger"
	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/payout"
	"tier-rewards-go/internal/referral"
	"tier-rewards-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrAlreadyResolved          = errors.New("transaction already resolved")
	ErrBelowMinimum             = errors.New("amount below minimum withdrawal")
	ErrInsufficientWithdrawable = ledger.ErrInsufficientWithdrawable
	ErrInvalidDestination       = errors.New("invalid destination address")
	ErrInvalidAmount            = ledger.ErrInvalidAmount
	ErrUnknownNetwork           = errors.New("unknown withdrawal network")
	ErrInvalidOutcome           = errors.New("outcome must be APPROVED or REJECTED")
)

type Workflow struct {
	records     store.RecordStore
	ledger      *ledger.Ledger
	distributor *referral.Distributor
	payout      payout.Dispatcher
	publisher   events.Publisher
}

func New(l *ledger.Ledger, distributor *referral.Distributor, dispatcher payout.Dispatcher, publisher events.Publisher) *Workflow {
	if dispatcher == nil {
		dispatcher = payout.Manual{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Workflow{
		records:     l.Records(),
		ledger:      l,
		distributor: distributor,
		payout:      dispatcher,
		publisher:   publisher,
	}
}

// CreateDeposit records a pending deposit. Nothing is credited until it is approved.
func (w *Workflow) CreateDeposit(ctx context.Context, userId string, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	user, err := w.records.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}

	tx := w.newTransaction(user, amount, models.KindDeposit)
	tx.Network = w.ledger.Catalog().DepositNetwork
	if err := w.records.UpsertTransactions(ctx, tx); err != nil {
		return nil, fmt.Errorf("unable to record deposit: %w", err)
	}

	zap.L().Info("Deposit requested",
		zap.String("transaction_id", tx.Id),
		zap.String("user_id", userId),
		zap.String("amount", amount.String()))
	w.emit(ctx, events.TransactionCreated, tx)
	return tx, nil
}

// CreateWithdrawal validates the request, reserves the funds immediately,
// then records the pending withdrawal.
func (w *Workflow) CreateWithdrawal(ctx context.Context, userId string, amount decimal.Decimal, network, destination string) (*models.Transaction, error) {
	catalog := w.ledger.Catalog()
	destination = strings.TrimSpace(destination)

	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if amount.LessThan(catalog.MinWithdrawal) {
		return nil, ErrBelowMinimum
	}
	user, err := w.records.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(user.WithdrawableProfit) {
		return nil, ErrInsufficientWithdrawable
	}
	if len(destination) < catalog.MinAddressLen {
		return nil, ErrInvalidDestination
	}
	if _, ok := catalog.Network(network); !ok {
		return nil, ErrUnknownNetwork
	}

	tx := w.newTransaction(user, amount, models.KindWithdraw)
	tx.Network = network
	tx.DestinationAddress = destination

	entry := ledger.Entry{Kind: journal.WithdrawalReserve, Reference: tx.Id + ":reserve", TransactionId: tx.Id}
	if _, err := w.ledger.Reserve(ctx, userId, amount, entry); err != nil {
		return nil, err
	}

	if err := w.records.UpsertTransactions(ctx, tx); err != nil {
		// Give the reservation back so the funds are not stranded without a request.
		refund := ledger.Entry{Kind: journal.WithdrawalReversal, Reference: tx.Id + ":unreserve", TransactionId: tx.Id}
		if _, refundErr := w.ledger.AdjustBalance(ctx, userId, amount, true, refund); refundErr != nil {
			zap.L().Error("Failed to release reservation after record failure",
				zap.String("transaction_id", tx.Id),
				zap.String("user_id", userId),
				zap.Error(refundErr))
		}
		return nil, fmt.Errorf("unable to record withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal requested",
		zap.String("transaction_id", tx.Id),
		zap.String("user_id", userId),
		zap.String("amount", amount.String()),
		zap.String("network", network))
	w.emit(ctx, events.TransactionCreated, tx)
	return tx, nil
}

// Resolve moves a pending transaction to outcome. The status write is
// version checked, so of several concurrent resolvers exactly one applies
// the side effects and the rest get ErrAlreadyResolved. An approved
// withdrawal is paid out before the status is written; a payout failure
// leaves the transaction pending. Side effects after the status write are
// not rolled back if they fail.
func (w *Workflow) Resolve(ctx context.Context, transactionId string, outcome models.TransactionStatus) (*models.Transaction, error) {
	if !outcome.Terminal() {
		return nil, ErrInvalidOutcome
	}

	tx, err := w.records.GetTransactionById(ctx, transactionId)
	if err != nil {
		return nil, err
	}
	if tx.Status.Terminal() {
		return nil, ErrAlreadyResolved
	}

	if tx.Kind == models.KindWithdraw && outcome == models.StatusApproved {
		if err := w.payout.Dispatch(ctx, tx); err != nil {
			return nil, fmt.Errorf("payout failed, transaction left pending: %w", err)
		}
	}

	resolvedAt := w.ledger.Now()
	tx.Status = outcome
	tx.ResolvedAt = &resolvedAt
	if err := w.records.UpsertTransactions(ctx, tx); err != nil {
		if errors.Is(err, store.ErrConcurrentModification) {
			return nil, ErrAlreadyResolved
		}
		return nil, fmt.Errorf("unable to update transaction status: %w", err)
	}

	if err := w.applyOutcome(ctx, tx); err != nil {
		zap.L().Error("Transaction resolved but side effects incomplete",
			zap.String("transaction_id", tx.Id),
			zap.String("status", string(tx.Status)),
			zap.Error(err))
		return tx, err
	}

	zap.L().Info("Transaction resolved",
		zap.String("transaction_id", tx.Id),
		zap.String("kind", string(tx.Kind)),
		zap.String("status", string(tx.Status)),
		zap.String("amount", tx.Amount.String()))

	kind := events.TransactionApproved
	if outcome == models.StatusRejected {
		kind = events.TransactionRejected
	}
	w.emit(ctx, kind, tx)
	return tx, nil
}

func (w *Workflow) applyOutcome(ctx context.Context, tx *models.Transaction) error {
	switch {
	case tx.Kind == models.KindDeposit && tx.Status == models.StatusApproved:
		entry := ledger.Entry{Kind: journal.DepositCredit, Reference: tx.Id + ":credit", TransactionId: tx.Id}
		if _, err := w.ledger.AdjustBalance(ctx, tx.UserId, tx.Amount, false, entry); err != nil {
			return fmt.Errorf("unable to credit deposit: %w", err)
		}
		if w.distributor != nil {
			if _, err := w.distributor.Distribute(ctx, tx.UserId, tx.Amount, tx.Id); err != nil {
				return fmt.Errorf("unable to distribute referral commissions: %w", err)
			}
		}
	case tx.Kind == models.KindWithdraw && tx.Status == models.StatusRejected:
		entry := ledger.Entry{Kind: journal.WithdrawalReversal, Reference: tx.Id + ":reversal", TransactionId: tx.Id}
		if _, err := w.ledger.AdjustBalance(ctx, tx.UserId, tx.Amount, true, entry); err != nil {
			return fmt.Errorf("unable to reverse withdrawal: %w", err)
		}
	}
	// Approved withdrawals were reserved at submission; rejected deposits
	// never credited anything.
	return nil
}

// HasPending reports whether the user has any unresolved request.
func (w *Workflow) HasPending(ctx context.Context, userId string) (bool, error) {
	txs, err := w.records.GetUserTransactions(ctx, userId)
	if err != nil {
		return false, err
	}
	for _, tx := range txs {
		if tx.Status == models.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (w *Workflow) newTransaction(user *models.User, amount decimal.Decimal, kind models.TransactionKind) *models.Transaction {
	return &models.Transaction{
		Id:        uuid.NewString(),
		UserId:    user.Id,
		Username:  user.Username,
		Amount:    amount,
		Kind:      kind,
		Status:    models.StatusPending,
		Timestamp: w.ledger.Now().Truncate(time.Millisecond),
	}
}

func (w *Workflow) emit(ctx context.Context, kind events.Kind, tx *models.Transaction) {
	events.Emit(ctx, w.publisher, events.Event{
		Kind:          kind,
		UserId:        tx.UserId,
		TransactionId: tx.Id,
		Amount:        tx.Amount,
	})
}
