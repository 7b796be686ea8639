// Package payout sends approved withdrawals to their destination.
package payout

import (
	"context"

	"tier-rewards-go/internal/models"

	"go.uber.org/zap"
)

// Dispatcher pays out an approved withdrawal. It must be idempotent per
// transaction id: a resolution retried after a failure dispatches again.
type Dispatcher interface {
	Dispatch(ctx context.Context, tx *models.Transaction) error
}

// Manual leaves the transfer to an operator working out of band.
type Manual struct{}

func (Manual) Dispatch(_ context.Context, tx *models.Transaction) error {
	zap.L().Info("Withdrawal approved for manual payout",
		zap.String("transaction_id", tx.Id),
		zap.String("user_id", tx.UserId),
		zap.String("amount", tx.Amount.String()),
		zap.String("network", tx.Network),
		zap.String("destination", tx.DestinationAddress))
	return nil
}
