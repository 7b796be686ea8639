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

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) GetTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return s.queryTransactions(ctx, queryGetTransactions)
}

func (s *Service) GetUserTransactions(ctx context.Context, userId string) ([]*models.Transaction, error) {
	return s.queryTransactions(ctx, queryGetUserTransactions, userId)
}

func (s *Service) queryTransactions(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query transactions", zap.Error(err))
		return nil, fmt.Errorf("unable to query transactions: %w", err)
	}
	defer closeRows(rows)

	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan transaction row: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txs, nil
}

func (s *Service) GetTransactionById(ctx context.Context, transactionId string) (*models.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransactionById, transactionId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", transactionId, store.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query transaction: %w", err)
	}
	return tx, nil
}

func (s *Service) UpsertTransactions(ctx context.Context, txs ...*models.Transaction) error {
	err := s.withTx(ctx, func(sqlTx *sql.Tx) error {
		for _, t := range txs {
			if err := upsertTransaction(ctx, sqlTx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, t := range txs {
		t.Version++
	}
	zap.L().Debug("Upserted transactions", zap.Int("count", len(txs)))
	return nil
}

func upsertTransaction(ctx context.Context, sqlTx *sql.Tx, t *models.Transaction) error {
	var resolvedAt sql.NullTime
	if t.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: t.ResolvedAt.UTC(), Valid: true}
	}

	if t.Version == 0 {
		_, err := sqlTx.ExecContext(ctx, queryInsertTransaction,
			t.Id, t.UserId, t.Username, t.Amount.String(), string(t.Kind), string(t.Status),
			t.Network, t.DestinationAddress, t.Timestamp.UTC(), resolvedAt)
		if err != nil {
			if isConstraintError(err) {
				return fmt.Errorf("transaction %s: %w", t.Id, store.ErrAlreadyExists)
			}
			return fmt.Errorf("unable to insert transaction: %w", err)
		}
		return nil
	}

	result, err := sqlTx.ExecContext(ctx, queryUpdateTransaction,
		t.Username, t.Amount.String(), string(t.Status), t.Network, t.DestinationAddress,
		resolvedAt, t.Id, t.Version)
	if err != nil {
		return fmt.Errorf("unable to update transaction: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", t.Id, checkVersionMiss(ctx, sqlTx, queryGetTransactionVersion, t.Id))
	}
	return nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		t            models.Transaction
		kind, status string
		resolvedAt   sql.NullTime
	)
	err := row.Scan(&t.Id, &t.UserId, &t.Username, &t.Amount, &kind, &status,
		&t.Network, &t.DestinationAddress, &t.Timestamp, &resolvedAt, &t.Version)
	if err != nil {
		return nil, err
	}
	t.Kind = models.TransactionKind(kind)
	t.Status = models.TransactionStatus(status)
	if resolvedAt.Valid {
		r := resolvedAt.Time
		t.ResolvedAt = &r
	}
	return &t, nil
}
