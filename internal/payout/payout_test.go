package payout

import (
	"context"
	"testing"

	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/tiers"

	"github.com/shopspring/decimal"
)

func TestWithdrawalRequestMapsNetwork(t *testing.T) {
	p := &Prime{portfolioId: "portfolio-1", walletId: "wallet-1", catalog: tiers.DefaultCatalog()}
	tx := &models.Transaction{
		Id:                 "tx-42",
		Kind:               models.KindWithdraw,
		Amount:             decimal.RequireFromString("15.5"),
		Network:            "TRC-20",
		DestinationAddress: "TXYZabcdef123456",
	}

	req, err := p.withdrawalRequest(tx)
	if err != nil {
		t.Fatalf("withdrawalRequest failed: %v", err)
	}
	if req.IdempotencyKey != "tx-42" {
		t.Errorf("idempotency key = %q, want transaction id", req.IdempotencyKey)
	}
	if req.Amount != "15.5" || req.Symbol != "USDT" {
		t.Errorf("unexpected amount/symbol %q %q", req.Amount, req.Symbol)
	}
	if req.BlockchainAddress == nil || req.BlockchainAddress.Address != tx.DestinationAddress {
		t.Fatalf("destination not mapped: %+v", req.BlockchainAddress)
	}
	if req.BlockchainAddress.Network == nil || req.BlockchainAddress.Network.Id != "tron" {
		t.Errorf("network not mapped: %+v", req.BlockchainAddress.Network)
	}
}

func TestWithdrawalRequestRejectsBadInput(t *testing.T) {
	p := &Prime{portfolioId: "portfolio-1", walletId: "wallet-1", catalog: tiers.DefaultCatalog()}

	tests := []struct {
		name string
		tx   *models.Transaction
	}{
		{"deposit", &models.Transaction{Id: "d1", Kind: models.KindDeposit, Network: "BEP-20"}},
		{"unknown network", &models.Transaction{Id: "w1", Kind: models.KindWithdraw, Network: "SOL"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.withdrawalRequest(tt.tx); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestManualDispatchSucceeds(t *testing.T) {
	if err := (Manual{}).Dispatch(context.Background(), &models.Transaction{Id: "w1"}); err != nil {
		t.Errorf("manual dispatch failed: %v", err)
	}
}

func TestNewPrimeRequiresConfig(t *testing.T) {
	if _, err := NewPrime(models.PrimeConfig{}, tiers.DefaultCatalog()); err == nil {
		t.Errorf("expected missing credentials error")
	}
	if _, err := NewPrime(models.PrimeConfig{AccessKey: "a", Passphrase: "b", SigningKey: "c"}, tiers.DefaultCatalog()); err == nil {
		t.Errorf("expected missing portfolio error")
	}
}
