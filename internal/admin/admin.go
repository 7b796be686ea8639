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


package admin

import (
	"context"
	"fmt"

	"tier-rewards-go/internal/journal"
	"tier-rewards-go/internal/ledger"
	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service holds the operator actions. Callers are expected to have checked
// the admin role already.
type Service struct {
	ledger   *ledger.Ledger
	workflow *workflow.Workflow
}

func New(l *ledger.Ledger, w *workflow.Workflow) *Service {
	return &Service{ledger: l, workflow: w}
}

// ListTransactions returns every request, newest first.
func (s *Service) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return s.ledger.Records().GetTransactions(ctx)
}

// ListUsers returns every user with the number of accounts they referred directly.
func (s *Service) ListUsers(ctx context.Context) ([]models.UserOverview, error) {
	users, err := s.ledger.Records().GetUsers(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(users))
	for _, u := range users {
		if u.ReferredBy != "" {
			counts[u.ReferredBy]++
		}
	}
	out := make([]models.UserOverview, 0, len(users))
	for _, u := range users {
		out = append(out, models.UserOverview{User: u, ReferralCount: counts[u.ReferralCode]})
	}
	return out, nil
}

// Resolve approves or rejects a pending request.
func (s *Service) Resolve(ctx context.Context, transactionId string, outcome models.TransactionStatus) (*models.Transaction, error) {
	return s.workflow.Resolve(ctx, transactionId, outcome)
}

// AdjustBalanceManual changes the balance only, clamped at zero, and
// unlocks whatever tiers the new balance affords.
func (s *Service) AdjustBalanceManual(ctx context.Context, userId string, delta decimal.Decimal) (*models.User, error) {
	entry := ledger.Entry{Kind: journal.ManualBalance, Reference: "manual:" + uuid.NewString()}
	user, err := s.ledger.AdjustBalance(ctx, userId, delta, false, entry)
	if err != nil {
		return nil, fmt.Errorf("unable to adjust balance: %w", err)
	}
	return user, nil
}

// AdjustWithdrawableManual changes the withdrawable profit only, clamped at zero.
func (s *Service) AdjustWithdrawableManual(ctx context.Context, userId string, delta decimal.Decimal) (*models.User, error) {
	entry := ledger.Entry{Kind: journal.ManualWithdrawable, Reference: "manual:" + uuid.NewString()}
	user, err := s.ledger.AdjustWithdrawable(ctx, userId, delta, entry)
	if err != nil {
		return nil, fmt.Errorf("unable to adjust withdrawable profit: %w", err)
	}

	zap.L().Info("Withdrawable profit adjusted",
		zap.String("user_id", userId),
		zap.String("delta", delta.String()),
		zap.String("withdrawable", user.WithdrawableProfit.String()))
	return user, nil
}
