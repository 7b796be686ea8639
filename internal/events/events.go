// Package events publishes ledger lifecycle events. Publishing is
// best effort: failures are logged and never fail the operation that
// produced the event.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Kind string

const (
	TransactionCreated  Kind = "transaction.created"
	TransactionApproved Kind = "transaction.approved"
	TransactionRejected Kind = "transaction.rejected"
	ReferralCredited    Kind = "referral.credited"
	ClaimCollected      Kind = "claim.collected"
	SpinGranted         Kind = "spin.granted"
)

// Event is one lifecycle notification, keyed by the affected user.
type Event struct {
	Kind          Kind            `json:"kind"`
	UserId        string          `json:"user_id"`
	TransactionId string          `json:"transaction_id,omitempty"`
	SourceUserId  string          `json:"source_user_id,omitempty"` // depositor for referral credits
	Level         int             `json:"level,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Tiers         []int           `json:"tiers,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Emit publishes e, stamping OccurredAt when unset, and logs any failure.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, e); err != nil {
		zap.L().Warn("Failed to publish event",
			zap.String("kind", string(e.Kind)),
			zap.String("user_id", e.UserId),
			zap.Error(err))
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns the recorded events, optionally filtered by kind.
func (r *Recorder) Events(kinds ...Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(kinds) == 0 {
		return append([]Event(nil), r.events...)
	}
	var out []Event
	for _, e := range r.events {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
