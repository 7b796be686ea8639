package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Formance FormanceConfig
	Prime    PrimeConfig
	Server   ServerConfig
	Auth     AuthConfig
	Rewards  RewardsConfig
}

// DatabaseConfig holds record store connection settings
type DatabaseConfig struct {
	Backend         string // sqlite, postgres or memory
	Path            string
	PostgresURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// RedisConfig holds session cache and lock settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// KafkaConfig holds lifecycle event publisher settings
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// FormanceConfig holds journal mirror settings
type FormanceConfig struct {
	Enabled      bool
	StackURL     string
	ClientId     string
	ClientSecret string
	LedgerName   string
	Asset        string // e.g. "USDT/6"
}

// PrimeConfig holds withdrawal payout settings
type PrimeConfig struct {
	Enabled     bool
	AccessKey   string
	Passphrase  string
	SigningKey  string
	PortfolioId string
	WalletId    string
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port         string
	BaseURL      string
	AllowOrigins []string
}

// AuthConfig holds credential and token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration

	// AdminOverrideSecret enables the master login when non-empty.
	AdminOverrideSecret string
}

// RewardsConfig holds engine settings
type RewardsConfig struct {
	CatalogFile     string
	RefreshInterval time.Duration
	MaxRetries      int
}
