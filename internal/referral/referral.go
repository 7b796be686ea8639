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

package referral

import (
	"context"
	"errors"
	"fmt"

	"tier-rewards-go/internal/events"
	"tier-rewards-go/internal/journal"
	"tier-rewards-go/internal/ledger"
	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrReferralCycle       = errors.New("referral link would create a cycle")
	ErrUnknownReferralCode = errors.New("unknown referral code")
)

// Credit is one commission paid by Distribute.
type Credit struct {
	Level  int
	UserId string
	Amount decimal.Decimal
}

type Distributor struct {
	records   store.RecordStore
	ledger    *ledger.Ledger
	publisher events.Publisher
}

func NewDistributor(l *ledger.Ledger, publisher events.Publisher) *Distributor {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Distributor{records: l.Records(), ledger: l, publisher: publisher}
}

// Distribute pays commissions on an approved deposit up the referral chain,
// one configured rate per level. The chain is resolved from the store at
// call time and walked strictly in order: a missing link ends the cascade.
// Credits already paid are not rolled back if a later level fails.
func (d *Distributor) Distribute(ctx context.Context, depositorId string, amount decimal.Decimal, transactionId string) ([]Credit, error) {
	depositor, err := d.records.GetUserById(ctx, depositorId)
	if err != nil {
		return nil, err
	}

	var credits []Credit
	code := depositor.ReferredBy
	for i, rate := range d.ledger.Catalog().ReferralRates {
		level := i + 1
		if code == "" {
			break
		}
		referrer, err := d.records.GetUserByReferralCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("Referral chain ends at missing code",
				zap.String("code", code),
				zap.Int("level", level))
			break
		}
		if err != nil {
			return credits, fmt.Errorf("unable to resolve level %d referrer: %w", level, err)
		}

		commission := amount.Mul(rate)
		entry := ledger.Entry{
			Kind:          journal.ReferralBonus,
			Reference:     fmt.Sprintf("%s:referral:%d", transactionId, level),
			TransactionId: transactionId,
		}
		if _, err := d.ledger.CreditBonus(ctx, referrer.Id, commission, entry); err != nil {
			return credits, fmt.Errorf("unable to credit level %d referrer: %w", level, err)
		}

		credits = append(credits, Credit{Level: level, UserId: referrer.Id, Amount: commission})
		events.Emit(ctx, d.publisher, events.Event{
			Kind:          events.ReferralCredited,
			UserId:        referrer.Id,
			TransactionId: transactionId,
			SourceUserId:  depositorId,
			Level:         level,
			Amount:        commission,
		})
		zap.L().Info("Referral commission credited",
			zap.String("referrer_id", referrer.Id),
			zap.String("depositor_id", depositorId),
			zap.Int("level", level),
			zap.String("amount", commission.String()))

		code = referrer.ReferredBy
	}
	return credits, nil
}

// ValidateLink checks that a new user with newUserCode may be referred by
// code: the code must exist and the chain above it must not reach newUserCode.
func ValidateLink(ctx context.Context, records store.RecordStore, code, newUserCode string) error {
	if code == "" {
		return nil
	}
	seen := make(map[string]struct{})
	for current := code; current != ""; {
		if current == newUserCode {
			return ErrReferralCycle
		}
		if _, ok := seen[current]; ok {
			// Pre-existing loop above us that does not include the new user.
			return nil
		}
		seen[current] = struct{}{}

		u, err := records.GetUserByReferralCode(ctx, current)
		if errors.Is(err, store.ErrNotFound) {
			if current == code {
				return ErrUnknownReferralCode
			}
			return nil
		}
		if err != nil {
			return err
		}
		current = u.ReferredBy
	}
	return nil
}

// Network lists the users one, two and three levels below userId.
func Network(ctx context.Context, records store.RecordStore, catalog *models.Catalog, userId string) ([]models.ReferralLevel, error) {
	root, err := records.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	users, err := records.GetUsers(ctx)
	if err != nil {
		return nil, err
	}

	byReferrer := make(map[string][]*models.User)
	for _, u := range users {
		if u.ReferredBy != "" {
			byReferrer[u.ReferredBy] = append(byReferrer[u.ReferredBy], u)
		}
	}

	visited := map[string]struct{}{root.Id: {}}
	frontier := []string{root.ReferralCode}
	levels := make([]models.ReferralLevel, 0, len(catalog.ReferralRates))
	for i, rate := range catalog.ReferralRates {
		level := models.ReferralLevel{Level: i + 1, Rate: rate, Users: []models.ReferralUser{}}
		var next []string
		for _, code := range frontier {
			for _, u := range byReferrer[code] {
				if _, ok := visited[u.Id]; ok {
					continue
				}
				visited[u.Id] = struct{}{}
				level.Users = append(level.Users, models.ReferralUser{
					Id:           u.Id,
					Username:     u.Username,
					ReferralCode: u.ReferralCode,
					HighestTier:  u.HighestTier(),
				})
				next = append(next, u.ReferralCode)
			}
		}
		level.Count = len(level.Users)
		levels = append(levels, level)
		frontier = next
	}
	return levels, nil
}
