package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
)

func TestKafkaPublisherEncodesEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, ProducerConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e Event
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.Kind != ReferralCredited || e.Level != 2 || !e.Amount.Equal(decimal.NewFromInt(5)) {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	p := NewKafkaPublisher(producer, "rewards.events")
	err := p.Publish(context.Background(), Event{
		Kind:         ReferralCredited,
		UserId:       "ref2",
		SourceUserId: "depositor",
		Level:        2,
		Amount:       decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

type failingPublisher struct{ Nop }

func (failingPublisher) Publish(context.Context, Event) error { return sarama.ErrOutOfBrokers }

func TestEmitSwallowsFailures(t *testing.T) {
	// Must not panic or propagate.
	Emit(context.Background(), failingPublisher{}, Event{Kind: SpinGranted, UserId: "u1"})
	Emit(context.Background(), nil, Event{Kind: SpinGranted, UserId: "u1"})
}

func TestRecorderFiltersByKind(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	Emit(ctx, r, Event{Kind: TransactionCreated, UserId: "u1"})
	Emit(ctx, r, Event{Kind: TransactionApproved, UserId: "u1"})
	Emit(ctx, r, Event{Kind: TransactionCreated, UserId: "u2"})

	if got := len(r.Events()); got != 3 {
		t.Errorf("expected 3 events, got %d", got)
	}
	created := r.Events(TransactionCreated)
	if len(created) != 2 {
		t.Fatalf("expected 2 created events, got %d", len(created))
	}
	if created[0].OccurredAt.IsZero() {
		t.Errorf("expected OccurredAt to be stamped")
	}
}
