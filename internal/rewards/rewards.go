// Package rewards serves the per-day member view: what can be collected
// today, and collecting it.
package rewards

import (
	"context"
	"fmt"

	"tier-rewards-go/internal/events"
	"tier-rewards-go/internal/ledger"
	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/promo"
	"tier-rewards-go/internal/tiers"
	"tier-rewards-go/internal/workflow"
)

type Service struct {
	ledger    *ledger.Ledger
	workflow  *workflow.Workflow
	publisher events.Publisher
}

func New(l *ledger.Ledger, w *workflow.Workflow, publisher events.Publisher) *Service {
	return &Service{ledger: l, workflow: w, publisher: publisher}
}

// Summary reads the user's stored state and reports today's claimable
// payout, spin availability and whether a request is still pending.
func (s *Service) Summary(ctx context.Context, userId string, today models.Date) (*models.DashboardSummary, error) {
	user, err := s.ledger.Records().GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	pending, err := s.workflow.HasPending(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to check pending requests: %w", err)
	}

	eligible, payout := tiers.Eligible(s.ledger.Catalog(), user, today)
	return &models.DashboardSummary{
		Balance:            user.Balance,
		WithdrawableProfit: user.WithdrawableProfit,
		EligibleTiers:      eligible,
		Payout:             payout,
		HasPending:         pending,
		CanSpin:            promo.CanSpin(user, today),
	}, nil
}

// Tiers returns the catalog as seen by the user.
func (s *Service) Tiers(ctx context.Context, userId string) ([]models.TierStatus, error) {
	user, err := s.ledger.Records().GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	return tiers.Status(s.ledger.Catalog(), user), nil
}

// Collect claims every tier eligible today. It fails with
// ledger.ErrNothingToClaim when there is nothing left.
func (s *Service) Collect(ctx context.Context, userId string, today models.Date) (*models.ClaimResult, error) {
	result, err := s.ledger.ClaimEligible(ctx, userId, today)
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.publisher, events.Event{
		Kind:   events.ClaimCollected,
		UserId: userId,
		Amount: result.Payout,
		Tiers:  result.Tiers,
	})
	return result, nil
}
