// Package repository provides data access layer using GORM for database operations.
package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Neocryptoquant/africa-research-ledger/internal/config"
	"github.com/Neocryptoquant/africa-research-ledger/internal/errs"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

// DB holds the database connection. Repositories wrap it, and transactional
// business operations run against a tx-scoped copy obtained via Transaction.
type DB struct {
	*gorm.DB
}

// NewDB creates a new database connection.
func NewDB(cfg *config.PostgresConfig, log *logger.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	var gormLogLevel gormlogger.LogLevel
	switch log.GetLogger().GetLevel() {
	case 0: // debug
		gormLogLevel = gormlogger.Info
	default:
		gormLogLevel = gormlogger.Warn
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel),
		// Unique violations become gorm.ErrDuplicatedKey, which the
		// repositories map onto the dedup/idempotency error taxonomy.
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL")

	return &DB{db}, nil
}

// AutoMigrate runs database migrations for all models.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.Dataset{},
		&models.Review{},
		&models.ContributorSequence{},
		&models.LedgerEntry{},
		&models.BonusGuard{},
		&models.PaymentForward{},
		&models.ReputationRecord{},
	)
}

// Transaction runs fn inside a database transaction. Every admission and
// every review submission is one such unit: fully applied or fully absent.
func (db *DB) Transaction(fn func(tx *DB) error) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		return fn(&DB{tx})
	})
}

// Locked appends a FOR UPDATE clause on dialects that support row locks.
// SQLite (used by the test suite) serializes writers on a single connection,
// so the clause is skipped there.
func (db *DB) Locked() *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db.DB
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database is healthy.
func (db *DB) Health() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// storageErr wraps backing-store failures with the ErrStorage sentinel so the
// API layer can tell faults from business rejections.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", errs.ErrStorage, op, err)
}

// isDuplicateKey reports whether err is a unique-constraint violation.
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
