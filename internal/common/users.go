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


package common

import (
	"context"
	"fmt"

	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/store"

	"go.uber.org/zap"
)

// SelectUsers returns the user named usernameFilter, or every user when the
// filter is empty.
func SelectUsers(ctx context.Context, records store.RecordStore, usernameFilter string, logger *zap.Logger) ([]*models.User, error) {
	var users []*models.User

	if usernameFilter != "" {
		logger.Info("Looking up user by username", zap.String("username", usernameFilter))
		user, err := records.GetUserByUsername(ctx, usernameFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		users = append(users, user)
	} else {
		allUsers, err := records.GetUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		users = allUsers
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
