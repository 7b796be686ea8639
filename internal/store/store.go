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

package store

import (
	"context"
	"errors"

	"tier-rewards-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("record not found")
	ErrAlreadyExists          = errors.New("record already exists")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// RecordStore defines the contract that every backend (SQLite, Postgres, memory) must satisfy.
//
// Upserts are versioned. A record with Version 0 is inserted and fails with
// ErrAlreadyExists when its id, username or referral code is taken. A record
// with Version N replaces the stored record only if the stored version is
// still N; otherwise the call fails with ErrConcurrentModification. On
// success the passed records carry their new version. Each upsert call is
// applied atomically.
type RecordStore interface {
	// --- Users ---
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	GetUsers(ctx context.Context) ([]*models.User, error)
	UpsertUsers(ctx context.Context, users ...*models.User) error

	// --- Transactions ---
	GetTransactionById(ctx context.Context, transactionId string) (*models.Transaction, error)
	GetTransactions(ctx context.Context) ([]*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userId string) ([]*models.Transaction, error)
	UpsertTransactions(ctx context.Context, txs ...*models.Transaction) error

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
