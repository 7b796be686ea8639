package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestObserveOnlyTracksOwnUser(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	alice := models.NewUser("u1", "alice", "AAAAAA", "", time.Now())
	s := New("sess1", alice, cache)

	bob := models.NewUser("u2", "bob", "BBBBBB", "", time.Now())
	bob.Balance = decimal.NewFromInt(50)
	s.Observe(ctx, bob)
	if s.Snapshot().Id != "u1" {
		t.Fatalf("snapshot switched to another user")
	}
	if _, err := cache.Get(ctx, "sess1"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected no cached snapshot yet, got %v", err)
	}

	updated := alice.Clone()
	updated.Balance = decimal.NewFromInt(10)
	s.Observe(ctx, updated)
	if !s.Snapshot().Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("snapshot not refreshed: %s", s.Snapshot().Balance)
	}
	cached, err := cache.Get(ctx, "sess1")
	if err != nil || !cached.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("cache not refreshed: %v %v", cached, err)
	}

	if err := s.End(ctx); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if _, err := cache.Get(ctx, "sess1"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected cleared cache, got %v", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no session on a bare context")
	}
	s := New("sess1", models.NewUser("u1", "alice", "AAAAAA", "", time.Now()), nil)
	if FromContext(WithSession(context.Background(), s)) != s {
		t.Errorf("session not recovered from context")
	}
}

func TestRefresherReloadsFromStore(t *testing.T) {
	ctx := context.Background()
	records := store.NewMemoryStore()
	alice := models.NewUser("u1", "alice", "AAAAAA", "", time.Now())
	if err := records.UpsertUsers(ctx, alice); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	s := New("sess1", alice, NewMemoryCache())

	alice.Balance = decimal.NewFromInt(77)
	if err := records.UpsertUsers(ctx, alice); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	NewRefresher(records, time.Second).RefreshOnce(ctx, s)
	if !s.Snapshot().Balance.Equal(decimal.NewFromInt(77)) {
		t.Errorf("expected refreshed balance 77, got %s", s.Snapshot().Balance)
	}
}

func TestRefresherStopsOnCancel(t *testing.T) {
	records := store.NewMemoryStore()
	s := New("sess1", models.NewUser("u1", "alice", "AAAAAA", "", time.Now()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewRefresher(records, 5*time.Millisecond).Run(ctx, s)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}
