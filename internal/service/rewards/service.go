// Package rewards implements the append-only reward ledger: credit issuance
// with at-most-once bonus guards, balance derivation, and best-effort
// forwarding of committed credits to the external payment rail.
package rewards

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Neocryptoquant/africa-research-ledger/internal/cache"
	"github.com/Neocryptoquant/africa-research-ledger/internal/config"
	"github.com/Neocryptoquant/africa-research-ledger/internal/metrics"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
	"github.com/Neocryptoquant/africa-research-ledger/internal/repository"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

// Service issues ledger credits and derives balances.
type Service struct {
	ledger     *repository.LedgerRepository
	cfg        config.RewardsConfig
	cache      cache.Cache
	balanceTTL time.Duration
	log        *logger.Logger
}

// NewService creates a new rewards service. cache may be nil, in which case
// every balance read sums the ledger.
func NewService(
	ledger *repository.LedgerRepository,
	cfg config.RewardsConfig,
	balanceCache cache.Cache,
	balanceTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		ledger:     ledger,
		cfg:        cfg,
		cache:      balanceCache,
		balanceTTL: balanceTTL,
		log:        log,
	}
}

// IssueAdmissionCredits appends the upload credits for a freshly admitted
// dataset inside the admission transaction: the base credit, conditional
// quality and size bonuses, and the guarded once-per-account first-upload
// bonus. It returns the reasons actually credited so the caller can record
// metrics after the transaction commits.
func (s *Service) IssueAdmissionCredits(tx *repository.DB, dataset *models.Dataset) ([]string, error) {
	ledger := s.ledger.WithTx(tx)
	issued := make([]string, 0, 4)

	if err := ledger.Append(s.entry(dataset.ContributorID, s.cfg.BaseUpload, models.ReasonBaseUpload, dataset.ID, "")); err != nil {
		return nil, err
	}
	issued = append(issued, models.ReasonBaseUpload)

	if dataset.AutomatedScore >= s.cfg.QualityBonusThreshold {
		if err := ledger.Append(s.entry(dataset.ContributorID, s.cfg.QualityBonus, models.ReasonQualityBonus, dataset.ID, "")); err != nil {
			return nil, err
		}
		issued = append(issued, models.ReasonQualityBonus)
	}

	if dataset.SizeBytes >= s.cfg.LargeDatasetBytes {
		if err := ledger.Append(s.entry(dataset.ContributorID, s.cfg.LargeDatasetBonus, models.ReasonLargeDatasetBonus, dataset.ID, "")); err != nil {
			return nil, err
		}
		issued = append(issued, models.ReasonLargeDatasetBonus)
	}

	paid, err := ledger.AppendGuarded(
		s.entry(dataset.ContributorID, s.cfg.FirstUploadBonus, models.ReasonFirstUploadBonus, dataset.ID, ""),
		models.FirstUploadGuardKey(dataset.ContributorID),
	)
	if err != nil {
		return nil, err
	}
	if paid {
		issued = append(issued, models.ReasonFirstUploadBonus)
	}

	return issued, nil
}

// IssueReviewCredits appends the reviewer's credits inside the review
// transaction, plus the contributor's verification bonus when this review
// completed the forward transition into the verified state.
func (s *Service) IssueReviewCredits(tx *repository.DB, review *models.Review, contributorID string, verifiedNow bool) ([]string, error) {
	ledger := s.ledger.WithTx(tx)
	issued := make([]string, 0, 3)

	if err := ledger.Append(s.entry(review.ReviewerID, s.cfg.ReviewSubmitted, models.ReasonReviewSubmitted, review.DatasetID, review.ID)); err != nil {
		return nil, err
	}
	issued = append(issued, models.ReasonReviewSubmitted)

	paid, err := ledger.AppendGuarded(
		s.entry(review.ReviewerID, s.cfg.FirstReviewBonus, models.ReasonFirstReviewBonus, review.DatasetID, review.ID),
		models.FirstReviewGuardKey(review.ReviewerID),
	)
	if err != nil {
		return nil, err
	}
	if paid {
		issued = append(issued, models.ReasonFirstReviewBonus)
	}

	if verifiedNow {
		paid, err := ledger.AppendGuarded(
			s.entry(contributorID, s.cfg.VerificationBonus, models.ReasonVerificationBonus, review.DatasetID, review.ID),
			models.VerificationGuardKey(review.DatasetID),
		)
		if err != nil {
			return nil, err
		}
		if paid {
			issued = append(issued, models.ReasonVerificationBonus)
		}
	}

	return issued, nil
}

func (s *Service) entry(accountID string, amount int64, reason, datasetID, reviewID string) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:               uuid.NewString(),
		AccountID:        accountID,
		Amount:           amount,
		Reason:           reason,
		RelatedDatasetID: datasetID,
		RelatedReviewID:  reviewID,
	}
}

// Balance returns the account's credit balance. The cache is read-through and
// never authoritative: a miss or parse failure falls back to summing the
// ledger.
func (s *Service) Balance(ctx context.Context, accountID string) (int64, error) {
	key := balanceKey(accountID)

	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key); err == nil && val != "" {
			if balance, perr := strconv.ParseInt(val, 10, 64); perr == nil {
				metrics.RecordBalanceCache("hit")
				return balance, nil
			}
		}
		metrics.RecordBalanceCache("miss")
	}

	balance, err := s.ledger.BalanceFor(accountID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, strconv.FormatInt(balance, 10), s.balanceTTL); err != nil {
			s.log.Warn().Err(err).Str("account_id", accountID).Msg("Failed to cache balance")
		}
	}

	return balance, nil
}

// Entries returns the account's full audit trail, newest first.
func (s *Service) Entries(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	return s.ledger.ListByAccount(accountID)
}

// InvalidateBalance drops the cached balance after a credit. Called after the
// credit's transaction commits.
func (s *Service) InvalidateBalance(ctx context.Context, accountIDs ...string) {
	if s.cache == nil {
		return
	}
	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = balanceKey(id)
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Strs("accounts", accountIDs).Msg("Failed to invalidate balance cache")
	}
}

// RecordIssued records credit metrics for reasons issued by a committed
// transaction.
func (s *Service) RecordIssued(reasons []string) {
	for _, reason := range reasons {
		metrics.RecordCredit(reason)
	}
}

func balanceKey(accountID string) string {
	return "balance:" + accountID
}
