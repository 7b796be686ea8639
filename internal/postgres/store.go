package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ensure Store satisfies the store.RecordStore interface at compile time.
var _ store.RecordStore = (*Store)(nil)

// Store provides Postgres-backed persistence for users and transactions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to databaseURL and runs migrations.
func NewStore(ctx context.Context, cfg models.DatabaseConfig) (*Store, error) {
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("postgres url cannot be empty")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	zap.L().Info("Postgres store initialized")
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			username_key TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			balance NUMERIC(30,10) NOT NULL DEFAULT 0,
			withdrawable_profit NUMERIC(30,10) NOT NULL DEFAULT 0,
			unlocked_tiers JSONB NOT NULL DEFAULT '[]',
			tier_unlock_dates JSONB NOT NULL DEFAULT '{}',
			claimed_tiers_today JSONB NOT NULL DEFAULT '[]',
			last_claim_date TEXT NOT NULL DEFAULT '',
			last_spin_date TEXT NOT NULL DEFAULT '',
			referral_code TEXT UNIQUE NOT NULL,
			referred_by TEXT NOT NULL DEFAULT '',
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			version BIGINT NOT NULL DEFAULT 1
		);`,
		`CREATE INDEX IF NOT EXISTS users_referred_by_idx ON users (referred_by);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			amount NUMERIC(30,10) NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('DEPOSIT', 'WITHDRAW')),
			status TEXT NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
			network TEXT NOT NULL DEFAULT '',
			destination_address TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL,
			resolved_at TIMESTAMPTZ,
			version BIGINT NOT NULL DEFAULT 1
		);`,
		`CREATE INDEX IF NOT EXISTS transactions_user_idx ON transactions (user_id, timestamp DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const userColumns = `id, username, password_hash, balance::text, withdrawable_profit::text,
	unlocked_tiers::text, tier_unlock_dates::text, claimed_tiers_today::text,
	last_claim_date, last_spin_date, referral_code, referred_by, is_admin,
	created_at, updated_at, version`

// GetUsers returns every user, oldest first.
func (s *Store) GetUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return s.findUser(ctx, `WHERE id = $1`, userId)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, `WHERE username_key = $1`, usernameKey(username))
}

func (s *Store) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.findUser(ctx, `WHERE referral_code = $1`, code)
}

func (s *Store) findUser(ctx context.Context, where, arg string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", arg, store.ErrNotFound)
	}
	return u, err
}

// UpsertUsers inserts or version-checks and updates users in one transaction.
func (s *Store) UpsertUsers(ctx context.Context, users ...*models.User) error {
	now := time.Now().UTC()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
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
	return nil
}

func upsertUser(ctx context.Context, tx pgx.Tx, u *models.User, now time.Time) error {
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
		const query = `
			INSERT INTO users (id, username, username_key, password_hash, balance, withdrawable_profit,
				unlocked_tiers, tier_unlock_dates, claimed_tiers_today, last_claim_date, last_spin_date,
				referral_code, referred_by, is_admin, created_at, updated_at, version)
			VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::jsonb, $8::jsonb, $9::jsonb,
				$10, $11, $12, $13, $14, $15, $16, 1)`
		_, err := tx.Exec(ctx, query,
			u.Id, u.Username, usernameKey(u.Username), u.PasswordHash,
			u.Balance.String(), u.WithdrawableProfit.String(), unlocked, dates, claimed,
			string(u.LastClaimDate), string(u.LastSpinDate), u.ReferralCode, u.ReferredBy,
			u.IsAdmin, u.CreatedAt.UTC(), now)
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.Id, store.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	}

	const query = `
		UPDATE users
		SET username = $1, username_key = $2, password_hash = $3, balance = $4::numeric,
			withdrawable_profit = $5::numeric, unlocked_tiers = $6::jsonb, tier_unlock_dates = $7::jsonb,
			claimed_tiers_today = $8::jsonb, last_claim_date = $9, last_spin_date = $10,
			referral_code = $11, referred_by = $12, is_admin = $13, updated_at = $14,
			version = version + 1
		WHERE id = $15 AND version = $16`
	tag, err := tx.Exec(ctx, query,
		u.Username, usernameKey(u.Username), u.PasswordHash,
		u.Balance.String(), u.WithdrawableProfit.String(), unlocked, dates, claimed,
		string(u.LastClaimDate), string(u.LastSpinDate), u.ReferralCode, u.ReferredBy,
		u.IsAdmin, now, u.Id, u.Version)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.Id, store.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", u.Id, versionMiss(ctx, tx, `SELECT version FROM users WHERE id = $1`, u.Id))
	}
	return nil
}

const transactionColumns = `id, user_id, username, amount::text, kind, status, network,
	destination_address, timestamp, resolved_at, version`

func (s *Store) GetTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY timestamp DESC`)
}

func (s *Store) GetUserTransactions(ctx context.Context, userId string) ([]*models.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY timestamp DESC`, userId)
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *Store) GetTransactionById(ctx context.Context, transactionId string) (*models.Transaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, transactionId)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", transactionId, store.ErrNotFound)
	}
	return t, err
}

func (s *Store) UpsertTransactions(ctx context.Context, txs ...*models.Transaction) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, t := range txs {
			if err := upsertTransaction(ctx, tx, t); err != nil {
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
	return nil
}

func upsertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	if t.Version == 0 {
		const query = `
			INSERT INTO transactions (id, user_id, username, amount, kind, status, network,
				destination_address, timestamp, resolved_at, version)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, 1)`
		_, err := tx.Exec(ctx, query, t.Id, t.UserId, t.Username, t.Amount.String(),
			string(t.Kind), string(t.Status), t.Network, t.DestinationAddress, t.Timestamp.UTC(), t.ResolvedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", t.Id, store.ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	}

	const query = `
		UPDATE transactions
		SET username = $1, amount = $2::numeric, status = $3, network = $4,
			destination_address = $5, resolved_at = $6, version = version + 1
		WHERE id = $7 AND version = $8`
	tag, err := tx.Exec(ctx, query, t.Username, t.Amount.String(), string(t.Status), t.Network,
		t.DestinationAddress, t.ResolvedAt, t.Id, t.Version)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", t.Id, versionMiss(ctx, tx, `SELECT version FROM transactions WHERE id = $1`, t.Id))
	}
	return nil
}

func versionMiss(ctx context.Context, tx pgx.Tx, query, id string) error {
	var current int64
	err := tx.QueryRow(ctx, query, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read record version: %w", err)
	}
	return store.ErrConcurrentModification
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u                           models.User
		balance, withdrawable       string
		unlocked, dates, claimed    string
		lastClaimDate, lastSpinDate string
	)
	if err := row.Scan(&u.Id, &u.Username, &u.PasswordHash, &balance, &withdrawable,
		&unlocked, &dates, &claimed, &lastClaimDate, &lastSpinDate,
		&u.ReferralCode, &u.ReferredBy, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt, &u.Version); err != nil {
		return nil, err
	}

	var err error
	if u.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	if u.WithdrawableProfit, err = decimal.NewFromString(withdrawable); err != nil {
		return nil, fmt.Errorf("parse withdrawable profit: %w", err)
	}
	if u.UnlockedTiers, err = store.DecodeTiers(unlocked); err != nil {
		return nil, err
	}
	if u.TierUnlockDates, err = store.DecodeUnlockDates(dates); err != nil {
		return nil, err
	}
	if u.ClaimedTiersToday, err = store.DecodeTiers(claimed); err != nil {
		return nil, err
	}
	u.LastClaimDate = models.Date(lastClaimDate)
	u.LastSpinDate = models.Date(lastSpinDate)
	return &u, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		t            models.Transaction
		amount       string
		kind, status string
	)
	if err := row.Scan(&t.Id, &t.UserId, &t.Username, &amount, &kind, &status, &t.Network,
		&t.DestinationAddress, &t.Timestamp, &t.ResolvedAt, &t.Version); err != nil {
		return nil, err
	}
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	t.Kind = models.TransactionKind(kind)
	t.Status = models.TransactionStatus(status)
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
