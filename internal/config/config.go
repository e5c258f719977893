// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Rewards   RewardsConfig   `mapstructure:"rewards"`
	Forwarder ForwarderConfig `mapstructure:"forwarder"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// RedisConfig contains Redis cache connection settings. Redis only caches
// derived balances; the ledger itself is always the source of truth.
type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	PoolSize   int    `mapstructure:"pool_size"`
	BalanceTTL int    `mapstructure:"balance_ttl"` // seconds
}

// ScoringConfig contains verification scoring parameters.
type ScoringConfig struct {
	AutomatedWeight float64 `mapstructure:"automated_weight"`
	HumanWeight     float64 `mapstructure:"human_weight"`
	VerifyThreshold int     `mapstructure:"verify_threshold"`
}

// RewardsConfig contains credit amounts and bonus thresholds.
type RewardsConfig struct {
	BaseUpload            int64 `mapstructure:"base_upload"`
	QualityBonus          int64 `mapstructure:"quality_bonus"`
	QualityBonusThreshold int   `mapstructure:"quality_bonus_threshold"`
	LargeDatasetBonus     int64 `mapstructure:"large_dataset_bonus"`
	LargeDatasetBytes     int64 `mapstructure:"large_dataset_bytes"`
	FirstUploadBonus      int64 `mapstructure:"first_upload_bonus"`
	ReviewSubmitted       int64 `mapstructure:"review_submitted"`
	FirstReviewBonus      int64 `mapstructure:"first_review_bonus"`
	VerificationBonus     int64 `mapstructure:"verification_bonus"`
}

// ForwarderConfig contains payment rail forwarding settings.
type ForwarderConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	Schedule    string `mapstructure:"schedule"` // cron expression
	MaxAttempts int    `mapstructure:"max_attempts"`
	BatchSize   int    `mapstructure:"batch_size"`
	Timeout     int    `mapstructure:"timeout"` // seconds
}

// MetricsConfig contains Prometheus exporter settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/research-ledger/")
	}

	setDefaults(v)

	// Explicit environment bindings (12-factor overrides)
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")

	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	_ = v.BindEnv("forwarder.enabled", "FORWARDER_ENABLED")
	_ = v.BindEnv("forwarder.url", "FORWARDER_URL")
	_ = v.BindEnv("forwarder.token", "FORWARDER_TOKEN")
	_ = v.BindEnv("forwarder.schedule", "FORWARDER_SCHEDULE")

	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults registers defaults for everything that has a sensible one, so a
// minimal config file only needs connection details.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")

	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)

	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)
	v.SetDefault("database.redis.balance_ttl", 300)

	v.SetDefault("scoring.automated_weight", 0.4)
	v.SetDefault("scoring.human_weight", 0.6)
	v.SetDefault("scoring.verify_threshold", 70)

	v.SetDefault("rewards.base_upload", 10)
	v.SetDefault("rewards.quality_bonus", 15)
	v.SetDefault("rewards.quality_bonus_threshold", 80)
	v.SetDefault("rewards.large_dataset_bonus", 5)
	v.SetDefault("rewards.large_dataset_bytes", 10_485_760)
	v.SetDefault("rewards.first_upload_bonus", 25)
	v.SetDefault("rewards.review_submitted", 2)
	v.SetDefault("rewards.first_review_bonus", 10)
	v.SetDefault("rewards.verification_bonus", 50)

	v.SetDefault("forwarder.enabled", false)
	v.SetDefault("forwarder.schedule", "@every 30s")
	v.SetDefault("forwarder.max_attempts", 5)
	v.SetDefault("forwarder.batch_size", 50)
	v.SetDefault("forwarder.timeout", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if c.Scoring.AutomatedWeight+c.Scoring.HumanWeight != 1.0 {
		return fmt.Errorf("scoring weights must sum to 1.0")
	}
	if c.Scoring.VerifyThreshold < 0 || c.Scoring.VerifyThreshold > 100 {
		return fmt.Errorf("scoring.verify_threshold must be within 0-100")
	}
	if c.Forwarder.Enabled && c.Forwarder.URL == "" {
		return fmt.Errorf("forwarder.url is required when forwarder is enabled")
	}
	return nil
}

// BalanceCacheTTL returns the balance cache TTL as a duration.
func (c *RedisConfig) BalanceCacheTTL() time.Duration {
	return time.Duration(c.BalanceTTL) * time.Second
}
