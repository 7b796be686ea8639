package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"tier-rewards-go/internal/admin"
	"tier-rewards-go/internal/auth"
	"tier-rewards-go/internal/database"
	"tier-rewards-go/internal/events"
	"tier-rewards-go/internal/journal"
	"tier-rewards-go/internal/ledger"
	"tier-rewards-go/internal/lock"
	"tier-rewards-go/internal/models"
	"tier-rewards-go/internal/payout"
	"tier-rewards-go/internal/postgres"
	"tier-rewards-go/internal/promo"
	"tier-rewards-go/internal/referral"
	"tier-rewards-go/internal/rewards"
	"tier-rewards-go/internal/session"
	"tier-rewards-go/internal/store"
	"tier-rewards-go/internal/workflow"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services is the fully wired engine.
type Services struct {
	Config    *models.Config
	Catalog   *models.Catalog
	Records   store.RecordStore
	Redis     *redis.Client
	Sessions  session.Cache
	Publisher events.Publisher
	Journal   journal.Journal
	Payout    payout.Dispatcher

	Ledger   *ledger.Ledger
	Workflow *workflow.Workflow
	Rewards  *rewards.Service
	Promo    *promo.Granter
	Admin    *admin.Service
	Accounts *auth.Service
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	catalog, err := LoadCatalog(cfg.Rewards.CatalogFile)
	if err != nil {
		return nil, err
	}

	records, err := InitializeStoreOnly(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Services{Config: cfg, Catalog: catalog, Records: records}

	var locker lock.Locker = lock.NewKeyedMutex()
	s.Sessions = session.NewMemoryCache()
	if cfg.Redis.Enabled {
		zap.L().Info("Connecting to Redis", zap.String("addr", cfg.Redis.Addr))
		s.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("unable to reach redis: %w", err)
		}
		locker = lock.NewRedisLocker(s.Redis, cfg.Redis.LockTTL)
		s.Sessions = session.NewRedisCache(s.Redis, cfg.Auth.TokenTTL)
	}

	s.Publisher = events.Nop{}
	if cfg.Kafka.Enabled {
		zap.L().Info("Connecting to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
		publisher, err := events.DialKafka(cfg.Kafka)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Publisher = publisher
	}

	s.Journal = journal.Nop{}
	if cfg.Formance.Enabled {
		zap.L().Info("Connecting to Formance", zap.String("ledger", cfg.Formance.LedgerName))
		mirror, err := journal.NewFormance(ctx, cfg.Formance)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Journal = mirror
	}

	s.Payout = payout.Manual{}
	if cfg.Prime.Enabled {
		zap.L().Info("Using Prime for withdrawal payouts", zap.String("portfolio_id", cfg.Prime.PortfolioId))
		dispatcher, err := payout.NewPrime(cfg.Prime, catalog)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Payout = dispatcher
	}

	s.Ledger = ledger.New(records, catalog,
		ledger.WithLocker(locker),
		ledger.WithJournal(s.Journal),
		ledger.WithMaxRetries(cfg.Rewards.MaxRetries))
	s.Workflow = workflow.New(s.Ledger, referral.NewDistributor(s.Ledger, s.Publisher), s.Payout, s.Publisher)
	s.Rewards = rewards.New(s.Ledger, s.Workflow, s.Publisher)
	s.Promo = promo.New(s.Ledger, s.Publisher)
	s.Admin = admin.New(s.Ledger, s.Workflow)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	s.Accounts = auth.NewService(records, tokens, catalog, cfg.Auth.AdminOverrideSecret)
	if cfg.Auth.AdminOverrideSecret != "" {
		zap.L().Warn("Master admin credential is enabled")
	}

	return s, nil
}

// InitializeStoreOnly opens just the configured record store.
// Useful for read-only operations like reporting balances.
func InitializeStoreOnly(ctx context.Context, cfg *models.Config) (store.RecordStore, error) {
	switch cfg.Database.Backend {
	case "postgres":
		return postgres.NewStore(ctx, cfg.Database)
	case "memory":
		zap.L().Warn("Using in-memory record store, nothing will be persisted")
		return store.NewMemoryStore(), nil
	default:
		return database.NewService(ctx, cfg.Database)
	}
}

func (cs *Services) Close() {
	if cs.Publisher != nil {
		if err := cs.Publisher.Close(); err != nil {
			zap.L().Warn("Failed to close event publisher", zap.Error(err))
		}
	}
	if cs.Redis != nil {
		if err := cs.Redis.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if cs.Records != nil {
		cs.Records.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
