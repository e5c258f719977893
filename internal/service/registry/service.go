// Package registry implements dataset admission: content deduplication,
// deterministic identifier derivation, and the side effects one admission
// carries (score seeding, upload credits, reputation update) as a single
// atomic unit.
package registry

import (
	"context"
	"errors"

	"github.com/Neocryptoquant/africa-research-ledger/internal/errs"
	"github.com/Neocryptoquant/africa-research-ledger/internal/metrics"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
	"github.com/Neocryptoquant/africa-research-ledger/internal/repository"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/reputation"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/rewards"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

// admitRetries bounds internal retries of the admission transaction when two
// first uploads from one contributor race on creating the sequence row.
const admitRetries = 3

// AdmitInput carries everything the registry needs to admit a dataset. The
// fingerprint comes from the external hashing collaborator and the automated
// score from the scoring oracle; both are opaque here.
type AdmitInput struct {
	ContributorID      string
	ContentFingerprint string
	FileName           string
	SizeBytes          int64
	RowCount           int64
	ColumnCount        int64
	AutomatedScore     int
}

// Service admits datasets into the content registry.
type Service struct {
	db         *repository.DB
	datasets   *repository.DatasetRepository
	rewards    *rewards.Service
	reputation *reputation.Service
	log        *logger.Logger
}

// NewService creates a new registry service.
func NewService(
	db *repository.DB,
	datasets *repository.DatasetRepository,
	rewardsSvc *rewards.Service,
	reputationSvc *reputation.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		db:         db,
		datasets:   datasets,
		rewards:    rewardsSvc,
		reputation: reputationSvc,
		log:        log,
	}
}

// Admit registers a dataset exactly once per unique content. On success the
// dataset is created pending verification with its final score seeded from
// the automated score, upload credits are appended to the ledger, and the
// contributor's reputation is bumped. On duplicate content the caller gets a
// distinct rejection, not a fault.
func (s *Service) Admit(ctx context.Context, in AdmitInput) (*models.Dataset, error) {
	if err := validate(in); err != nil {
		metrics.RecordAdmission(errs.Kind(err))
		return nil, err
	}

	var (
		dataset *models.Dataset
		issued  []string
		err     error
	)
	for attempt := 0; attempt < admitRetries; attempt++ {
		dataset, issued, err = s.admitOnce(in)
		if !errors.Is(err, errs.ErrConcurrencyConflict) {
			break
		}
	}
	if err != nil {
		metrics.RecordAdmission(errs.Kind(err))
		return nil, err
	}

	metrics.RecordAdmission("accepted")
	s.rewards.RecordIssued(issued)
	s.rewards.InvalidateBalance(ctx, in.ContributorID)
	if total, cerr := s.datasets.CountAll(); cerr == nil {
		metrics.SetRegistryDatasets(total)
	}

	s.log.Info().
		Str("dataset_id", dataset.ID).
		Str("contributor_id", in.ContributorID).
		Int("automated_score", in.AutomatedScore).
		Int64("size_bytes", in.SizeBytes).
		Msg("Dataset admitted")

	return dataset, nil
}

func (s *Service) admitOnce(in AdmitInput) (*models.Dataset, []string, error) {
	var (
		dataset *models.Dataset
		issued  []string
	)
	err := s.db.Transaction(func(tx *repository.DB) error {
		datasets := s.datasets.WithTx(tx)

		exists, err := datasets.FingerprintExists(in.ContentFingerprint)
		if err != nil {
			return err
		}
		if exists {
			return errs.ErrDuplicateContent
		}

		seq, err := datasets.NextSequence(in.ContributorID)
		if err != nil {
			return err
		}

		dataset = &models.Dataset{
			ID:                 models.DatasetID(in.ContributorID, seq),
			ContributorID:      in.ContributorID,
			Sequence:           seq,
			ContentFingerprint: in.ContentFingerprint,
			FileName:           in.FileName,
			SizeBytes:          in.SizeBytes,
			RowCount:           in.RowCount,
			ColumnCount:        in.ColumnCount,
			AutomatedScore:     in.AutomatedScore,
			// With zero reviews the human signal is undefined, so the final
			// score seeds from the automated score alone.
			FinalScore:        in.AutomatedScore,
			VerificationState: models.VerificationPending,
		}
		if err := datasets.Create(dataset); err != nil {
			return err
		}

		issued, err = s.rewards.IssueAdmissionCredits(tx, dataset)
		if err != nil {
			return err
		}

		return s.reputation.ApplyUploadInTx(tx, in.ContributorID, in.AutomatedScore)
	})
	if err != nil {
		return nil, nil, err
	}
	return dataset, issued, nil
}

// Status returns the dataset's verification snapshot.
func (s *Service) Status(ctx context.Context, datasetID string) (*models.Dataset, error) {
	return s.datasets.GetByID(datasetID)
}

func validate(in AdmitInput) error {
	if in.AutomatedScore < 0 || in.AutomatedScore > 100 {
		return errs.ErrScoreOutOfRange
	}
	if len(in.FileName) > models.MaxFileNameBytes {
		return errs.ErrFileNameTooLong
	}
	if in.SizeBytes > models.MaxFileSizeBytes {
		return errs.ErrFileTooLarge
	}
	return nil
}
