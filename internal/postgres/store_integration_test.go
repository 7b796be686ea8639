package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestStoreVersioning(t *testing.T) {
	if os.Getenv("RUN_POSTGRES_INTEGRATION") != "true" {
		t.Skip("set RUN_POSTGRES_INTEGRATION=true to run this integration test")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL must be set")
	}

	ctx := context.Background()
	s, err := NewStore(ctx, models.DatabaseConfig{PostgresURL: dbURL, PingTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	suffix := uuid.NewString()[:8]
	u := models.NewUser("it-"+suffix, "it_user_"+suffix, "IT"+suffix, "", time.Now())
	u.UnlockedTiers = []int{1}
	u.TierUnlockDates = map[int]models.Date{1: "2025-03-01"}
	if err := s.UpsertUsers(ctx, u); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	stale, err := s.GetUserByUsername(ctx, "IT_USER_"+suffix)
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}

	u.Balance = decimal.RequireFromString("12.34")
	if err := s.UpsertUsers(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}

	stale.Balance = decimal.NewFromInt(1)
	if err := s.UpsertUsers(ctx, stale); !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	got, err := s.GetUserById(ctx, u.Id)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("12.34")) || got.TierUnlockDates[1] != "2025-03-01" {
		t.Errorf("unexpected stored user: %+v", got)
	}

	tx := &models.Transaction{
		Id: "it-tx-" + suffix, UserId: u.Id, Username: u.Username,
		Amount: decimal.NewFromInt(50), Kind: models.KindDeposit, Status: models.StatusPending,
		Network: "BEP-20", Timestamp: time.Now().UTC(),
	}
	if err := s.UpsertTransactions(ctx, tx); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	tx.Status = models.StatusApproved
	if err := s.UpsertTransactions(ctx, tx); err != nil {
		t.Fatalf("update transaction: %v", err)
	}
	reloaded, err := s.GetTransactionById(ctx, tx.Id)
	if err != nil {
		t.Fatalf("reload transaction: %v", err)
	}
	if reloaded.Status != models.StatusApproved || reloaded.Version != 2 {
		t.Errorf("unexpected transaction state: %+v", reloaded)
	}
}
