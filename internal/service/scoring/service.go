package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Neocryptoquant/africa-research-ledger/internal/config"
	"github.com/Neocryptoquant/africa-research-ledger/internal/errs"
	"github.com/Neocryptoquant/africa-research-ledger/internal/metrics"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
	"github.com/Neocryptoquant/africa-research-ledger/internal/repository"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/rewards"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

// ScoreUpdate is the scoring snapshot taken atomically with a review
// submission. It reflects the submitted review, never a stale aggregate.
type ScoreUpdate struct {
	ReviewID          string  `json:"review_id"`
	DatasetID         string  `json:"dataset_id"`
	HumanScore        float64 `json:"human_score"`
	FinalScore        int     `json:"final_score"`
	ReviewCount       int     `json:"review_count"`
	VerificationState string  `json:"verification_state"`
	VerifiedNow       bool    `json:"verified_now"`
}

// Service records peer reviews and maintains the derived scoring fields.
type Service struct {
	db       *repository.DB
	datasets *repository.DatasetRepository
	reviews  *repository.ReviewRepository
	rewards  *rewards.Service
	cfg      config.ScoringConfig
	log      *logger.Logger
}

// NewService creates a new scoring service.
func NewService(
	db *repository.DB,
	datasets *repository.DatasetRepository,
	reviews *repository.ReviewRepository,
	rewardsSvc *rewards.Service,
	cfg config.ScoringConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		db:       db,
		datasets: datasets,
		reviews:  reviews,
		rewards:  rewardsSvc,
		cfg:      cfg,
		log:      log,
	}
}

// RecordReview admits one peer review and recomputes the dataset's aggregate
// inside a single transaction. The dataset row is locked for the duration, so
// concurrent reviews of the same dataset linearize: the second writer always
// sees the first writer's review in its aggregate. Reviews of different
// datasets proceed independently.
func (s *Service) RecordReview(ctx context.Context, datasetID, reviewerID string, rating int, feedback string) (*ScoreUpdate, error) {
	if rating < models.MinRating || rating > models.MaxRating {
		metrics.RecordReview(errs.Kind(errs.ErrRatingOutOfRange))
		return nil, errs.ErrRatingOutOfRange
	}

	var (
		update        *ScoreUpdate
		contributorID string
		issued        []string
	)

	err := s.db.Transaction(func(tx *repository.DB) error {
		datasets := s.datasets.WithTx(tx)
		reviews := s.reviews.WithTx(tx)

		dataset, err := datasets.GetByIDLocked(datasetID)
		if err != nil {
			return err
		}
		if dataset.ContributorID == reviewerID {
			return errs.ErrSelfReview
		}
		if exists, err := reviews.Exists(datasetID, reviewerID); err != nil {
			return err
		} else if exists {
			return errs.ErrDuplicateReview
		}

		review := &models.Review{
			ID:         uuid.NewString(),
			DatasetID:  datasetID,
			ReviewerID: reviewerID,
			Rating:     rating,
			Feedback:   feedback,
		}
		if err := reviews.Create(review); err != nil {
			return err
		}

		count, meanRating, err := reviews.Aggregate(datasetID)
		if err != nil {
			return err
		}

		previousState := dataset.VerificationState
		dataset.ReviewCount = int(count)
		dataset.HumanScore = HumanScore(meanRating)
		dataset.FinalScore = FinalScore(dataset.AutomatedScore, dataset.HumanScore, s.cfg.AutomatedWeight, s.cfg.HumanWeight)
		dataset.VerificationState = NextState(previousState, dataset.FinalScore, s.cfg.VerifyThreshold, dataset.ReviewCount)

		verifiedNow := dataset.VerificationState == models.VerificationVerified && previousState != models.VerificationVerified
		if verifiedNow {
			now := time.Now().UTC()
			dataset.VerifiedAt = &now
		}

		if err := datasets.UpdateScores(dataset); err != nil {
			return err
		}

		issued, err = s.rewards.IssueReviewCredits(tx, review, dataset.ContributorID, verifiedNow)
		if err != nil {
			return err
		}

		contributorID = dataset.ContributorID
		update = &ScoreUpdate{
			ReviewID:          review.ID,
			DatasetID:         datasetID,
			HumanScore:        dataset.HumanScore,
			FinalScore:        dataset.FinalScore,
			ReviewCount:       dataset.ReviewCount,
			VerificationState: dataset.VerificationState,
			VerifiedNow:       verifiedNow,
		}
		return nil
	})
	if err != nil {
		metrics.RecordReview(errs.Kind(err))
		return nil, err
	}

	metrics.RecordReview("accepted")
	s.rewards.RecordIssued(issued)
	if update.VerifiedNow {
		metrics.RecordVerification()
		s.rewards.InvalidateBalance(ctx, reviewerID, contributorID)
	} else {
		s.rewards.InvalidateBalance(ctx, reviewerID)
	}

	s.log.Info().
		Str("dataset_id", datasetID).
		Str("reviewer_id", reviewerID).
		Int("rating", rating).
		Int("final_score", update.FinalScore).
		Str("state", update.VerificationState).
		Bool("verified_now", update.VerifiedNow).
		Msg("Review recorded")

	return update, nil
}

// CurrentScore returns the dataset's scoring snapshot.
func (s *Service) CurrentScore(ctx context.Context, datasetID string) (*models.Dataset, error) {
	return s.datasets.GetByID(datasetID)
}

// Reviews returns all reviews for a dataset, oldest first.
func (s *Service) Reviews(ctx context.Context, datasetID string) ([]models.Review, error) {
	if _, err := s.datasets.GetByID(datasetID); err != nil {
		return nil, err
	}
	return s.reviews.ListByDataset(datasetID)
}
