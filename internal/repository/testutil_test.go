package repository

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	// A single connection keeps every goroutine on the same in-memory
	// database and serializes writers the way the concurrency tests expect.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Dataset{},
		&models.Review{},
		&models.ContributorSequence{},
		&models.LedgerEntry{},
		&models.BonusGuard{},
		&models.PaymentForward{},
		&models.ReputationRecord{},
	)
	if err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return &DB{db}
}

// createTestDataset inserts a minimal pending dataset.
func createTestDataset(t *testing.T, db *DB, id, contributorID, fingerprint string) *models.Dataset {
	t.Helper()

	dataset := &models.Dataset{
		ID:                 id,
		ContributorID:      contributorID,
		Sequence:           1,
		ContentFingerprint: fingerprint,
		FileName:           "survey.csv",
		SizeBytes:          2048,
		AutomatedScore:     75,
		FinalScore:         75,
		VerificationState:  models.VerificationPending,
	}
	if err := db.Create(dataset).Error; err != nil {
		t.Fatalf("Failed to create test dataset: %v", err)
	}
	return dataset
}
