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

// Package session keeps an advisory snapshot of the signed-in user for
// display continuity. Nothing in the engine reads it for correctness or
// authorization; the record store stays authoritative.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"tier-rewards-go/internal/models"

	"go.uber.org/zap"
)

var ErrNoSession = errors.New("no session snapshot")

// Cache stores one user snapshot per session id.
type Cache interface {
	Get(ctx context.Context, sessionId string) (*models.User, error)
	Set(ctx context.Context, sessionId string, user *models.User) error
	Clear(ctx context.Context, sessionId string) error
}

// Session is the snapshot holder scoped to one caller.
type Session struct {
	Id     string
	UserId string

	cache    Cache
	mu       sync.RWMutex
	snapshot *models.User
}

func New(id string, user *models.User, cache Cache) *Session {
	return &Session{Id: id, UserId: user.Id, cache: cache, snapshot: user.Clone()}
}

// Snapshot returns a copy of the last observed user state.
func (s *Session) Snapshot() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil
	}
	return s.snapshot.Clone()
}

// Observe replaces the snapshot when user is the session's own user.
// Cache write failures are logged only.
func (s *Session) Observe(ctx context.Context, user *models.User) {
	if user == nil || user.Id != s.UserId {
		return
	}
	s.mu.Lock()
	s.snapshot = user.Clone()
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, s.Id, user); err != nil {
		zap.L().Warn("Failed to cache session snapshot",
			zap.String("session_id", s.Id),
			zap.Error(err))
	}
}

// End drops the cached snapshot.
func (s *Session) End(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx, s.Id)
}

type sessionContextKey struct{}

// WithSession attaches s to the call chain.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext returns the attached session, or nil if absent.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}

// UserGetter is the store method the refresher needs.
type UserGetter interface {
	GetUserById(ctx context.Context, userId string) (*models.User, error)
}

// Refresher periodically reloads a session's user from the store.
type Refresher struct {
	users    UserGetter
	interval time.Duration
}

func NewRefresher(users UserGetter, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Refresher{users: users, interval: interval}
}

// Run refreshes s every interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context, s *Session) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshOnce(ctx, s)
		}
	}
}

// RefreshOnce reloads the session user immediately.
func (r *Refresher) RefreshOnce(ctx context.Context, s *Session) {
	user, err := r.users.GetUserById(ctx, s.UserId)
	if err != nil {
		zap.L().Debug("Session refresh failed",
			zap.String("user_id", s.UserId),
			zap.Error(err))
		return
	}
	s.Observe(ctx, user)
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{users: make(map[string]*models.User)}
}

func (c *MemoryCache) Get(_ context.Context, sessionId string) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[sessionId]
	if !ok {
		return nil, ErrNoSession
	}
	return u.Clone(), nil
}

func (c *MemoryCache) Set(_ context.Context, sessionId string, user *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[sessionId] = user.Clone()
	return nil
}

func (c *MemoryCache) Clear(_ context.Context, sessionId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, sessionId)
	return nil
}
