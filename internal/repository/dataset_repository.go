package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Neocryptoquant/africa-research-ledger/internal/errs"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
)

// DatasetRepository handles dataset and contributor-sequence operations.
type DatasetRepository struct {
	db *DB
}

// NewDatasetRepository creates a new dataset repository.
func NewDatasetRepository(db *DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// WithTx returns a repository scoped to the given transaction.
func (r *DatasetRepository) WithTx(tx *DB) *DatasetRepository {
	return &DatasetRepository{db: tx}
}

// NextSequence atomically increments and returns the contributor's upload
// sequence number. The UPDATE takes a row lock held until the surrounding
// transaction commits, so concurrent admissions from the same contributor
// serialize here and never observe the same number.
func (r *DatasetRepository) NextSequence(contributorID string) (uint64, error) {
	res := r.db.Model(&models.ContributorSequence{}).
		Where("contributor_id = ?", contributorID).
		UpdateColumn("next_seq", gorm.Expr("next_seq + 1"))
	if res.Error != nil {
		return 0, storageErr("increment contributor sequence", res.Error)
	}

	if res.RowsAffected == 0 {
		seq := &models.ContributorSequence{ContributorID: contributorID, NextSeq: 1}
		if err := r.db.Create(seq).Error; err != nil {
			if isDuplicateKey(err) {
				// Another admission created the row between our UPDATE and
				// CREATE. The caller retries the whole admission.
				return 0, errs.ErrConcurrencyConflict
			}
			return 0, storageErr("create contributor sequence", err)
		}
		return 1, nil
	}

	var seq models.ContributorSequence
	if err := r.db.Where("contributor_id = ?", contributorID).First(&seq).Error; err != nil {
		return 0, storageErr("read contributor sequence", err)
	}
	return seq.NextSeq, nil
}

// FingerprintExists reports whether a content fingerprint is already
// registered.
func (r *DatasetRepository) FingerprintExists(fingerprint string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Dataset{}).
		Where("content_fingerprint = ?", fingerprint).
		Count(&count).Error
	if err != nil {
		return false, storageErr("check fingerprint", err)
	}
	return count > 0, nil
}

// Create inserts a newly admitted dataset. A unique-index violation on the
// fingerprint (lost pre-check race) is reported as duplicate content.
func (r *DatasetRepository) Create(dataset *models.Dataset) error {
	if err := r.db.Create(dataset).Error; err != nil {
		if isDuplicateKey(err) {
			return errs.ErrDuplicateContent
		}
		return storageErr("create dataset", err)
	}
	return nil
}

// GetByID retrieves a dataset by its identifier.
func (r *DatasetRepository) GetByID(id string) (*models.Dataset, error) {
	var dataset models.Dataset
	if err := r.db.Where("id = ?", id).First(&dataset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, storageErr("get dataset", err)
	}
	return &dataset, nil
}

// GetByIDLocked retrieves a dataset and takes its row lock, linearizing all
// same-dataset score mutations behind this transaction.
func (r *DatasetRepository) GetByIDLocked(id string) (*models.Dataset, error) {
	var dataset models.Dataset
	if err := r.db.Locked().Where("id = ?", id).First(&dataset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, storageErr("get dataset for update", err)
	}
	return &dataset, nil
}

// UpdateScores persists the derived scoring fields and verification state.
func (r *DatasetRepository) UpdateScores(dataset *models.Dataset) error {
	err := r.db.Model(&models.Dataset{}).
		Where("id = ?", dataset.ID).
		Updates(map[string]interface{}{
			"human_score":        dataset.HumanScore,
			"final_score":        dataset.FinalScore,
			"review_count":       dataset.ReviewCount,
			"verification_state": dataset.VerificationState,
			"verified_at":        dataset.VerifiedAt,
		}).Error
	if err != nil {
		return storageErr("update dataset scores", err)
	}
	return nil
}

// IncrementDownloadCount bumps the download counter without touching any
// derived scoring field.
func (r *DatasetRepository) IncrementDownloadCount(id string) error {
	res := r.db.Model(&models.Dataset{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))
	if res.Error != nil {
		return storageErr("increment download count", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// IncrementCitationCount bumps the citation counter.
func (r *DatasetRepository) IncrementCitationCount(id string) error {
	res := r.db.Model(&models.Dataset{}).
		Where("id = ?", id).
		UpdateColumn("citation_count", gorm.Expr("citation_count + 1"))
	if res.Error != nil {
		return storageErr("increment citation count", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CountAll returns the total number of registered datasets.
func (r *DatasetRepository) CountAll() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Dataset{}).Count(&count).Error; err != nil {
		return 0, storageErr("count datasets", err)
	}
	return count, nil
}
