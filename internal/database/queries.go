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

package database

const (
	schema = `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			username_key TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			balance TEXT NOT NULL DEFAULT '0',
			withdrawable_profit TEXT NOT NULL DEFAULT '0',
			unlocked_tiers TEXT NOT NULL DEFAULT '[]',
			tier_unlock_dates TEXT NOT NULL DEFAULT '{}',
			claimed_tiers_today TEXT NOT NULL DEFAULT '[]',
			last_claim_date TEXT NOT NULL DEFAULT '',
			last_spin_date TEXT NOT NULL DEFAULT '',
			referral_code TEXT NOT NULL UNIQUE,
			referred_by TEXT NOT NULL DEFAULT '',
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			version INTEGER NOT NULL DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_users_referred_by ON users(referred_by);

		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			amount TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('DEPOSIT', 'WITHDRAW')),
			status TEXT NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
			network TEXT NOT NULL DEFAULT '',
			destination_address TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMP NOT NULL,
			resolved_at TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp DESC);`

	userColumns = `id, username, password_hash, balance, withdrawable_profit,
		unlocked_tiers, tier_unlock_dates, claimed_tiers_today, last_claim_date, last_spin_date,
		referral_code, referred_by, is_admin, created_at, updated_at, version`

	// User queries
	queryGetUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at`

	queryGetUserById = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ?`

	queryGetUserByUsername = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username_key = ?`

	queryGetUserByReferralCode = `
		SELECT ` + userColumns + `
		FROM users
		WHERE referral_code = ?`

	queryInsertUser = `
		INSERT INTO users (id, username, username_key, password_hash, balance, withdrawable_profit,
			unlocked_tiers, tier_unlock_dates, claimed_tiers_today, last_claim_date, last_spin_date,
			referral_code, referred_by, is_admin, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`

	queryUpdateUser = `
		UPDATE users
		SET username = ?, username_key = ?, password_hash = ?, balance = ?, withdrawable_profit = ?,
			unlocked_tiers = ?, tier_unlock_dates = ?, claimed_tiers_today = ?,
			last_claim_date = ?, last_spin_date = ?, referral_code = ?, referred_by = ?,
			is_admin = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`

	queryGetUserVersion = `SELECT version FROM users WHERE id = ?`

	// Transaction queries
	transactionColumns = `id, user_id, username, amount, kind, status, network,
		destination_address, timestamp, resolved_at, version`

	queryGetTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY timestamp DESC`

	queryGetUserTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = ?
		ORDER BY timestamp DESC`

	queryGetTransactionById = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryInsertTransaction = `
		INSERT INTO transactions (id, user_id, username, amount, kind, status, network,
			destination_address, timestamp, resolved_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`

	queryUpdateTransaction = `
		UPDATE transactions
		SET username = ?, amount = ?, status = ?, network = ?, destination_address = ?,
			resolved_at = ?, version = version + 1
		WHERE id = ? AND version = ?`

	queryGetTransactionVersion = `SELECT version FROM transactions WHERE id = ?`
)
