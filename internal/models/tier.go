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

package models

import "github.com/shopspring/decimal"

// TierDefinition is an immutable priced membership level
type TierDefinition struct {
	Id                 int             `json:"id"`
	UnlockPrice        decimal.Decimal `json:"unlock_price"`
	DailyPayoutPercent decimal.Decimal `json:"daily_payout_percent"` // fraction, 0.12 = 12%
}

// DailyPayout is the amount one claim of this tier credits.
func (t TierDefinition) DailyPayout() decimal.Decimal {
	return t.UnlockPrice.Mul(t.DailyPayoutPercent)
}

// Prize is one entry of the promotional spin table. Weight zero entries are
// displayed but never drawn.
type Prize struct {
	Amount decimal.Decimal `json:"amount"`
	Weight int             `json:"weight"`
}

// Network is a transfer network accepted for withdrawals
type Network struct {
	Name string `json:"name"` // e.g. "BEP-20"

	// Prime payout mapping
	PrimeNetworkId   string `json:"-"`
	PrimeNetworkType string `json:"-"`
	PrimeSymbol      string `json:"-"`
}

// Catalog is the static rewards configuration
type Catalog struct {
	Tiers          []TierDefinition
	Prizes         []Prize
	ReferralRates  []decimal.Decimal // index 0 = level 1
	MinWithdrawal  decimal.Decimal
	MinAddressLen  int
	Networks       []Network
	DepositNetwork string
}

// Tier returns the definition for id.
func (c *Catalog) Tier(id int) (TierDefinition, bool) {
	for _, t := range c.Tiers {
		if t.Id == id {
			return t, true
		}
	}
	return TierDefinition{}, false
}

// Network returns the configured network with the given name.
func (c *Catalog) Network(name string) (Network, bool) {
	for _, n := range c.Networks {
		if n.Name == name {
			return n, true
		}
	}
	return Network{}, false
}
