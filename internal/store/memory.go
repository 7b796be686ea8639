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
	"sort"
	"strings"
	"sync"
	"time"

	"tier-rewards-go/internal/models"
)

var _ RecordStore = (*MemoryStore)(nil)

// MemoryStore is an in-process RecordStore used by tests and demo runs.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
	txs   map[string]*models.Transaction
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*models.User),
		txs:   make(map[string]*models.Transaction),
		now:   time.Now,
	}
}

func (m *MemoryStore) GetUserById(_ context.Context, userId string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userId]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByReferralCode(_ context.Context, code string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ReferralCode == code {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUsers(_ context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (m *MemoryStore) UpsertUsers(_ context.Context, users ...*models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the whole batch before applying anything.
	for _, u := range users {
		stored, exists := m.users[u.Id]
		if u.Version == 0 {
			if exists {
				return ErrAlreadyExists
			}
		} else {
			if !exists {
				return ErrNotFound
			}
			if stored.Version != u.Version {
				return ErrConcurrentModification
			}
		}
		for _, other := range m.users {
			if other.Id == u.Id {
				continue
			}
			if strings.EqualFold(other.Username, u.Username) || other.ReferralCode == u.ReferralCode {
				return ErrAlreadyExists
			}
		}
	}

	now := m.now().UTC()
	for _, u := range users {
		u.Version++
		u.UpdatedAt = now
		m.users[u.Id] = u.Clone()
	}
	return nil
}

func (m *MemoryStore) GetTransactionById(_ context.Context, transactionId string) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[transactionId]
	if !ok {
		return nil, ErrNotFound
	}
	return tx.Clone(), nil
}

func (m *MemoryStore) GetTransactions(_ context.Context) ([]*models.Transaction, error) {
	return m.filterTransactions(func(*models.Transaction) bool { return true }), nil
}

func (m *MemoryStore) GetUserTransactions(_ context.Context, userId string) ([]*models.Transaction, error) {
	return m.filterTransactions(func(tx *models.Transaction) bool { return tx.UserId == userId }), nil
}

func (m *MemoryStore) filterTransactions(keep func(*models.Transaction) bool) []*models.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Transaction, 0)
	for _, tx := range m.txs {
		if keep(tx) {
			out = append(out, tx.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (m *MemoryStore) UpsertTransactions(_ context.Context, txs ...*models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tx := range txs {
		stored, exists := m.txs[tx.Id]
		if tx.Version == 0 {
			if exists {
				return ErrAlreadyExists
			}
			continue
		}
		if !exists {
			return ErrNotFound
		}
		if stored.Version != tx.Version {
			return ErrConcurrentModification
		}
	}

	for _, tx := range txs {
		tx.Version++
		m.txs[tx.Id] = tx.Clone()
	}
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) Close() {}
