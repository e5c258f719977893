package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Neocryptoquant/africa-research-ledger/internal/config"
	"github.com/Neocryptoquant/africa-research-ledger/internal/errs"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
	"github.com/Neocryptoquant/africa-research-ledger/internal/repository"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/reputation"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/rewards"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

func testRewardsConfig() config.RewardsConfig {
	return config.RewardsConfig{
		BaseUpload:            10,
		QualityBonus:          15,
		QualityBonusThreshold: 80,
		LargeDatasetBonus:     5,
		LargeDatasetBytes:     10_485_760,
		FirstUploadBonus:      25,
		ReviewSubmitted:       2,
		FirstReviewBonus:      10,
		VerificationBonus:     50,
	}
}

type testEnv struct {
	db       *repository.DB
	ledger   *repository.LedgerRepository
	rewards  *rewards.Service
	registry *Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
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

	wrapped := &repository.DB{DB: db}
	log := logger.New("error", "json", "stdout")

	datasets := repository.NewDatasetRepository(wrapped)
	ledger := repository.NewLedgerRepository(wrapped)
	reputationRepo := repository.NewReputationRepository(wrapped)

	rewardsSvc := rewards.NewService(ledger, testRewardsConfig(), nil, time.Minute, log)
	reputationSvc := reputation.NewService(wrapped, datasets, reputationRepo, log)

	return &testEnv{
		db:       wrapped,
		ledger:   ledger,
		rewards:  rewardsSvc,
		registry: NewService(wrapped, datasets, rewardsSvc, reputationSvc, log),
	}
}

func admitInput(contributorID, fingerprint string) AdmitInput {
	return AdmitInput{
		ContributorID:      contributorID,
		ContentFingerprint: fingerprint,
		FileName:           "survey.csv",
		SizeBytes:          2048,
		RowCount:           100,
		ColumnCount:        8,
		AutomatedScore:     75,
	}
}

func TestAdmit(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	dataset, err := env.registry.Admit(ctx, admitInput("alice", "fp-aaa"))
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	if dataset.ID != "alice-1" {
		t.Errorf("dataset ID = %s, expected alice-1", dataset.ID)
	}
	if dataset.Sequence != 1 {
		t.Errorf("sequence = %d, expected 1", dataset.Sequence)
	}
	if dataset.VerificationState != models.VerificationPending {
		t.Errorf("state = %s, expected pending", dataset.VerificationState)
	}
	if dataset.FinalScore != 75 {
		t.Errorf("final score = %d, expected automated score 75", dataset.FinalScore)
	}

	// Base credit plus first-upload bonus: 10 + 25.
	balance, err := env.ledger.BalanceFor("alice")
	if err != nil {
		t.Fatalf("BalanceFor failed: %v", err)
	}
	if balance != 35 {
		t.Errorf("balance = %d, expected 35", balance)
	}
}

func TestAdmit_DuplicateContent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	if _, err := env.registry.Admit(ctx, admitInput("alice", "fp-aaa")); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	_, err := env.registry.Admit(ctx, admitInput("bob", "fp-aaa"))
	if !errors.Is(err, errs.ErrDuplicateContent) {
		t.Fatalf("Admit of duplicate content returned %v, expected ErrDuplicateContent", err)
	}

	// A rejected admission must leave no trace: no credits, no sequence burn.
	balance, err := env.ledger.BalanceFor("bob")
	if err != nil {
		t.Fatalf("BalanceFor failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("rejected contributor balance = %d, expected 0", balance)
	}

	dataset, err := env.registry.Admit(ctx, admitInput("bob", "fp-bbb"))
	if err != nil {
		t.Fatalf("Admit after rejection failed: %v", err)
	}
	if dataset.Sequence != 1 {
		t.Errorf("sequence after rolled-back admission = %d, expected 1", dataset.Sequence)
	}
}

func TestAdmit_SequencePerContributor(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	first, err := env.registry.Admit(ctx, admitInput("alice", "fp-aaa"))
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	second, err := env.registry.Admit(ctx, admitInput("alice", "fp-bbb"))
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	other, err := env.registry.Admit(ctx, admitInput("bob", "fp-ccc"))
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	if first.ID != "alice-1" || second.ID != "alice-2" || other.ID != "bob-1" {
		t.Errorf("IDs = (%s, %s, %s), expected (alice-1, alice-2, bob-1)",
			first.ID, second.ID, other.ID)
	}
}

func TestAdmit_Validation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*AdmitInput)
		wantErr error
	}{
		{
			name:    "score above range",
			mutate:  func(in *AdmitInput) { in.AutomatedScore = 101 },
			wantErr: errs.ErrScoreOutOfRange,
		},
		{
			name:    "negative score",
			mutate:  func(in *AdmitInput) { in.AutomatedScore = -1 },
			wantErr: errs.ErrScoreOutOfRange,
		},
		{
			name:    "file name too long",
			mutate:  func(in *AdmitInput) { in.FileName = strings.Repeat("x", 101) },
			wantErr: errs.ErrFileNameTooLong,
		},
		{
			name:    "file too large",
			mutate:  func(in *AdmitInput) { in.SizeBytes = models.MaxFileSizeBytes + 1 },
			wantErr: errs.ErrFileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := admitInput("alice", "fp-"+tt.name)
			tt.mutate(&in)
			_, err := env.registry.Admit(ctx, in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Admit returned %v, expected %v", err, tt.wantErr)
			}
		})
	}

	// Boundary values are accepted.
	in := admitInput("alice", "fp-boundary")
	in.FileName = strings.Repeat("x", 100)
	in.SizeBytes = models.MaxFileSizeBytes
	in.AutomatedScore = 100
	if _, err := env.registry.Admit(ctx, in); err != nil {
		t.Errorf("Admit at boundary values failed: %v", err)
	}
}

func TestAdmit_ConditionalBonuses(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// High quality and large size: base 10 + quality 15 + size 5 + first 25.
	in := admitInput("alice", "fp-aaa")
	in.AutomatedScore = 85
	in.SizeBytes = 20_000_000
	if _, err := env.registry.Admit(ctx, in); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	balance, err := env.ledger.BalanceFor("alice")
	if err != nil {
		t.Fatalf("BalanceFor failed: %v", err)
	}
	if balance != 55 {
		t.Errorf("balance = %d, expected 55", balance)
	}
}

func TestAdmit_FirstUploadBonusOnce(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for _, fp := range []string{"fp-aaa", "fp-bbb", "fp-ccc"} {
		if _, err := env.registry.Admit(ctx, admitInput("alice", fp)); err != nil {
			t.Fatalf("Admit failed: %v", err)
		}
	}

	count, err := env.ledger.CountByReason("alice", models.ReasonFirstUploadBonus, "")
	if err != nil {
		t.Fatalf("CountByReason failed: %v", err)
	}
	if count != 1 {
		t.Errorf("first-upload bonus paid %d times, expected exactly once", count)
	}

	// 3 base credits + one first-upload bonus.
	balance, err := env.ledger.BalanceFor("alice")
	if err != nil {
		t.Fatalf("BalanceFor failed: %v", err)
	}
	if balance != 55 {
		t.Errorf("balance = %d, expected 55", balance)
	}
}

func TestAdmit_ConcurrentSameFingerprint(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			in := admitInput("alice", "fp-contested")
			in.ContributorID = "contributor-" + string(rune('a'+n))
			_, err := env.registry.Admit(ctx, in)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var accepted, rejected int
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, errs.ErrDuplicateContent):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if accepted != 1 {
		t.Errorf("accepted = %d, expected exactly one admission per fingerprint", accepted)
	}
	if rejected != attempts-1 {
		t.Errorf("rejected = %d, expected %d", rejected, attempts-1)
	}
}

func TestStatus(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	if _, err := env.registry.Admit(ctx, admitInput("alice", "fp-aaa")); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	dataset, err := env.registry.Status(ctx, "alice-1")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if dataset.VerificationState != models.VerificationPending {
		t.Errorf("state = %s, expected pending", dataset.VerificationState)
	}

	if _, err := env.registry.Status(ctx, "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Status for missing dataset returned %v, expected ErrNotFound", err)
	}
}
