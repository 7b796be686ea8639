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


// Package promo grants the once-per-day promotional spin.
package promo

import (
	"context"
	"errors"
	"math/rand/v2"

	"tier-rewards-go/internal/events"
	"tier-rewards-go/internal/journal"
	"tier-rewards-go/internal/ledger"
	"tier-rewards-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrAlreadyGrantedToday = errors.New("spin already used today")
	ErrNoPrizes            = errors.New("prize table has no drawable entries")
)

// Draw returns a value in [0, n).
type Draw func(n int) int

type Option func(*Granter)

// WithDraw replaces the random source used to pick a prize.
func WithDraw(draw Draw) Option {
	return func(g *Granter) { g.draw = draw }
}

type Granter struct {
	ledger    *ledger.Ledger
	publisher events.Publisher
	draw      Draw
}

func New(l *ledger.Ledger, publisher events.Publisher, opts ...Option) *Granter {
	g := &Granter{ledger: l, publisher: publisher, draw: rand.IntN}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Spin draws a prize and credits it as withdrawable bonus. The draw only
// considers prizes with a positive weight; the default table weights the
// two lowest amounts and displays the rest.
func (g *Granter) Spin(ctx context.Context, userId string, today models.Date) (*models.SpinResult, error) {
	index, amount, err := g.pick()
	if err != nil {
		return nil, err
	}

	entry := ledger.Entry{Kind: journal.SpinGrant, Reference: "spin:" + userId + ":" + today.String()}
	user, err := g.ledger.Mutate(ctx, userId, entry, func(u *models.User) error {
		if u.LastSpinDate == today {
			return ErrAlreadyGrantedToday
		}
		ledger.AddBonus(u, amount)
		u.LastSpinDate = today
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Spin granted",
		zap.String("user_id", userId),
		zap.Int("prize_index", index),
		zap.String("amount", amount.String()))
	events.Emit(ctx, g.publisher, events.Event{
		Kind:   events.SpinGranted,
		UserId: userId,
		Amount: amount,
	})
	return &models.SpinResult{PrizeIndex: index, Amount: amount, User: user}, nil
}

// CanSpin reports whether the user has a spin left for today.
func CanSpin(u *models.User, today models.Date) bool {
	return u.LastSpinDate != today
}

func (g *Granter) pick() (int, decimal.Decimal, error) {
	prizes := g.ledger.Catalog().Prizes
	total := 0
	for _, p := range prizes {
		if p.Weight > 0 {
			total += p.Weight
		}
	}
	if total == 0 {
		return 0, decimal.Zero, ErrNoPrizes
	}

	n := g.draw(total)
	for i, p := range prizes {
		if p.Weight <= 0 {
			continue
		}
		if n < p.Weight {
			return i, p.Amount, nil
		}
		n -= p.Weight
	}
	// Draw outside [0, total); fall back to the last drawable prize.
	for i := len(prizes) - 1; i >= 0; i-- {
		if prizes[i].Weight > 0 {
			return i, prizes[i].Amount, nil
		}
	}
	return 0, decimal.Zero, ErrNoPrizes
}
