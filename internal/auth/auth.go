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


// Package auth registers and logs in members and issues their tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/referral"
	"tier-rewards-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	codeAttempts   = 5
	masterCode     = "MASTER"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username must be at least 3 characters")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrEmptyPassword      = errors.New("password is required")
)

// Grant is a logged-in user and the token that identifies them.
type Grant struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Service struct {
	records        store.RecordStore
	tokens         *TokenManager
	catalog        *models.Catalog
	overrideSecret string
	now            func() time.Time
}

// NewService returns the account service. An empty overrideSecret disables
// the master credential.
func NewService(records store.RecordStore, tokens *TokenManager, catalog *models.Catalog, overrideSecret string) *Service {
	return &Service{
		records:        records,
		tokens:         tokens,
		catalog:        catalog,
		overrideSecret: overrideSecret,
		now:            time.Now,
	}
}

func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

func (s *Service) isMaster(password string) bool {
	return s.overrideSecret != "" && password == s.overrideSecret
}

// Register creates a member account. referralCode may be empty.
func (s *Service) Register(ctx context.Context, username, password, confirm, referralCode string) (*Grant, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	referralCode = strings.ToUpper(strings.TrimSpace(referralCode))
	master := s.isMaster(password)

	if password == "" {
		return nil, ErrEmptyPassword
	}
	if !master && password != strings.TrimSpace(confirm) {
		return nil, ErrPasswordMismatch
	}
	if len(username) < minUsernameLen {
		return nil, ErrInvalidUsername
	}
	if _, err := s.records.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("unable to check username: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("unable to hash password: %w", err)
	}

	var user *models.User
	for attempt := 1; ; attempt++ {
		code := referral.NewCode()
		if err := referral.ValidateLink(ctx, s.records, referralCode, code); err != nil {
			return nil, err
		}

		user = models.NewUser(uuid.NewString(), username, code, referralCode, s.now())
		user.PasswordHash = hash
		user.IsAdmin = master

		err := s.records.UpsertUsers(ctx, user)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("unable to create user: %w", err)
		}
		if _, lookupErr := s.records.GetUserByUsername(ctx, username); lookupErr == nil {
			return nil, ErrUsernameTaken
		}
		if attempt >= codeAttempts {
			return nil, fmt.Errorf("unable to allocate referral code: %w", err)
		}
	}

	zap.L().Info("User registered",
		zap.String("user_id", user.Id),
		zap.String("username", user.Username),
		zap.String("referred_by", user.ReferredBy),
		zap.Bool("admin", user.IsAdmin))
	return s.issue(user)
}

// Login verifies the password and returns a fresh token. With the master
// credential an existing user is promoted to admin and a missing one is
// created as an admin account.
func (s *Service) Login(ctx context.Context, username, password string) (*Grant, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	master := s.isMaster(password)

	user, err := s.records.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound) && master:
		if user, err = s.createMaster(ctx, username); err != nil {
			return nil, err
		}
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("unable to load user: %w", err)
	case master:
		if !user.IsAdmin {
			if user, err = s.PromoteAdmin(ctx, user.Id); err != nil {
				return nil, err
			}
		}
	default:
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
	}

	zap.L().Info("User logged in",
		zap.String("user_id", user.Id),
		zap.Bool("admin", user.IsAdmin),
		zap.Bool("master", master))
	return s.issue(user)
}

// PromoteAdmin grants the admin role to an existing user.
func (s *Service) PromoteAdmin(ctx context.Context, userId string) (*models.User, error) {
	for {
		user, err := s.records.GetUserById(ctx, userId)
		if err != nil {
			return nil, err
		}
		if user.IsAdmin {
			return user, nil
		}
		user.IsAdmin = true
		user.UpdatedAt = s.now().UTC()
		err = s.records.UpsertUsers(ctx, user)
		if errors.Is(err, store.ErrConcurrentModification) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("unable to promote user: %w", err)
		}
		zap.L().Info("User promoted to admin", zap.String("user_id", userId))
		return user, nil
	}
}

func (s *Service) createMaster(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		username = "admin"
	}
	code := masterCode
	if _, err := s.records.GetUserByReferralCode(ctx, code); err == nil {
		code = referral.NewCode()
	}

	hash, err := hashPassword(s.overrideSecret)
	if err != nil {
		return nil, fmt.Errorf("unable to hash password: %w", err)
	}
	now := s.now()
	today := models.DateOf(now)

	user := models.NewUser("admin-"+uuid.NewString(), username, code, "", now)
	user.PasswordHash = hash
	user.IsAdmin = true
	user.Balance = decimal.NewFromInt(100)
	if _, ok := s.catalog.Tier(1); ok {
		user.UnlockedTiers = []int{1}
		user.TierUnlockDates = map[int]models.Date{1: today}
	}

	if err := s.records.UpsertUsers(ctx, user); err != nil {
		return nil, fmt.Errorf("unable to create master account: %w", err)
	}
	zap.L().Warn("Master account created", zap.String("user_id", user.Id), zap.String("username", username))
	return user, nil
}

func (s *Service) issue(user *models.User) (*Grant, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("unable to generate token: %w", err)
	}
	return &Grant{Token: token, User: user}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
