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
	"strings"
	"time"

	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) GetUsers(ctx context.Context) ([]*models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := s.db.QueryContext(ctx, queryGetUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserById, userId)
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserByUsername, usernameKey(username))
}

func (s *Service) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserByReferralCode, code)
}

func (s *Service) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", arg, store.ErrNotFound)
		}
		zap.L().Error("Failed to query user", zap.String("key", arg), zap.Error(err))
		return nil, fmt.Errorf("unable to query user: %w", err)
	}
	return user, nil
}

func (s *Service) UpsertUsers(ctx context.Context, users ...*models.User) error {
	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, u := range users {
			if err := upsertUser(ctx, tx, u, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, u := range users {
		u.Version++
		u.UpdatedAt = now
	}
	zap.L().Debug("Upserted users", zap.Int("count", len(users)))
	return nil
}

func upsertUser(ctx context.Context, tx *sql.Tx, u *models.User, now time.Time) error {
	unlocked, err := store.EncodeTiers(u.UnlockedTiers)
	if err != nil {
		return err
	}
	dates, err := store.EncodeUnlockDates(u.TierUnlockDates)
	if err != nil {
		return err
	}
	claimed, err := store.EncodeTiers(u.ClaimedTiersToday)
	if err != nil {
		return err
	}

	if u.Version == 0 {
		_, err := tx.ExecContext(ctx, queryInsertUser,
			u.Id, u.Username, usernameKey(u.Username), u.PasswordHash,
			u.Balance.String(), u.WithdrawableProfit.String(),
			unlocked, dates, claimed, string(u.LastClaimDate), string(u.LastSpinDate),
			u.ReferralCode, u.ReferredBy, u.IsAdmin, u.CreatedAt.UTC(), now)
		if err != nil {
			if isConstraintError(err) {
				return fmt.Errorf("user %s: %w", u.Id, store.ErrAlreadyExists)
			}
			return fmt.Errorf("unable to insert user: %w", err)
		}
		return nil
	}

	result, err := tx.ExecContext(ctx, queryUpdateUser,
		u.Username, usernameKey(u.Username), u.PasswordHash,
		u.Balance.String(), u.WithdrawableProfit.String(),
		unlocked, dates, claimed, string(u.LastClaimDate), string(u.LastSpinDate),
		u.ReferralCode, u.ReferredBy, u.IsAdmin, now,
		u.Id, u.Version)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("user %s: %w", u.Id, store.ErrAlreadyExists)
		}
		return fmt.Errorf("unable to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", u.Id, checkVersionMiss(ctx, tx, queryGetUserVersion, u.Id))
	}
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user                       models.User
		unlocked, dates, claimed   string
		lastClaimDate, lastSpinDay string
	)
	err := row.Scan(&user.Id, &user.Username, &user.PasswordHash,
		&user.Balance, &user.WithdrawableProfit,
		&unlocked, &dates, &claimed, &lastClaimDate, &lastSpinDay,
		&user.ReferralCode, &user.ReferredBy, &user.IsAdmin,
		&user.CreatedAt, &user.UpdatedAt, &user.Version)
	if err != nil {
		return nil, err
	}

	if user.UnlockedTiers, err = store.DecodeTiers(unlocked); err != nil {
		return nil, err
	}
	if user.TierUnlockDates, err = store.DecodeUnlockDates(dates); err != nil {
		return nil, err
	}
	if user.ClaimedTiersToday, err = store.DecodeTiers(claimed); err != nil {
		return nil, err
	}
	user.LastClaimDate = models.Date(lastClaimDate)
	user.LastSpinDate = models.Date(lastSpinDay)
	return &user, nil
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
