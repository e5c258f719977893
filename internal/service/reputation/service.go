// Package reputation derives a monotonic per-contributor reputation value
// from upload, download, and citation activity. Every accepted event applies
// a strictly positive increment; higher-quality uploads earn strictly larger
// increments than lower-quality ones.
package reputation

import (
	"context"

	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
	"github.com/Neocryptoquant/africa-research-ledger/internal/repository"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

// Increment weights. The exact shape is a tuning parameter; the invariants
// are positivity (monotonic score) and strict ordering by upload quality.
const (
	uploadBaseIncrement = 10.0
	uploadQualityFactor = 0.1
	downloadIncrement   = 1.0
	citationIncrement   = 5.0
)

// UploadIncrement returns the reputation delta for an admitted upload with
// the given automated quality score (0-100).
func UploadIncrement(qualityScore int) float64 {
	return uploadBaseIncrement + float64(qualityScore)*uploadQualityFactor
}

// Service applies reputation events and serves reputation reads.
type Service struct {
	db         *repository.DB
	datasets   *repository.DatasetRepository
	reputation *repository.ReputationRepository
	log        *logger.Logger
}

// NewService creates a new reputation service.
func NewService(
	db *repository.DB,
	datasets *repository.DatasetRepository,
	reputationRepo *repository.ReputationRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		db:         db,
		datasets:   datasets,
		reputation: reputationRepo,
		log:        log,
	}
}

// ApplyUploadInTx applies the upload event inside an admission transaction so
// the reputation update commits or rolls back with the dataset.
func (s *Service) ApplyUploadInTx(tx *repository.DB, contributorID string, qualityScore int) error {
	return s.reputation.WithTx(tx).ApplyUpload(contributorID, UploadIncrement(qualityScore))
}

// OnDownload records a download of a dataset: the dataset's counter and the
// contributor's reputation move together in one transaction.
func (s *Service) OnDownload(ctx context.Context, datasetID string) (*models.ReputationRecord, error) {
	return s.applyDatasetEvent(datasetID, func(tx *repository.DB, contributorID string) error {
		if err := s.datasets.WithTx(tx).IncrementDownloadCount(datasetID); err != nil {
			return err
		}
		return s.reputation.WithTx(tx).ApplyDownload(contributorID, downloadIncrement)
	})
}

// OnCitation records a citation of a dataset.
func (s *Service) OnCitation(ctx context.Context, datasetID string) (*models.ReputationRecord, error) {
	return s.applyDatasetEvent(datasetID, func(tx *repository.DB, contributorID string) error {
		if err := s.datasets.WithTx(tx).IncrementCitationCount(datasetID); err != nil {
			return err
		}
		return s.reputation.WithTx(tx).ApplyCitation(contributorID, citationIncrement)
	})
}

// Get returns the account's reputation record; accounts without activity get
// a zero-valued record.
func (s *Service) Get(ctx context.Context, accountID string) (*models.ReputationRecord, error) {
	return s.reputation.GetByAccount(accountID)
}

func (s *Service) applyDatasetEvent(datasetID string, apply func(tx *repository.DB, contributorID string) error) (*models.ReputationRecord, error) {
	var contributorID string
	err := s.db.Transaction(func(tx *repository.DB) error {
		dataset, err := s.datasets.WithTx(tx).GetByID(datasetID)
		if err != nil {
			return err
		}
		contributorID = dataset.ContributorID
		return apply(tx, contributorID)
	})
	if err != nil {
		return nil, err
	}
	return s.reputation.GetByAccount(contributorID)
}
