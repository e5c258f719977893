package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Neocryptoquant/africa-research-ledger/internal/errs"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
)

// ReputationRepository handles reputation record operations. All score
// changes are applied as SQL increments with strictly positive deltas, which
// keeps the score monotonic by construction.
type ReputationRepository struct {
	db *DB
}

// NewReputationRepository creates a new reputation repository.
func NewReputationRepository(db *DB) *ReputationRepository {
	return &ReputationRepository{db: db}
}

// WithTx returns a repository scoped to the given transaction.
func (r *ReputationRepository) WithTx(tx *DB) *ReputationRepository {
	return &ReputationRepository{db: tx}
}

// GetByAccount retrieves a reputation record. Accounts with no activity yet
// get a zero-valued record rather than a not-found error.
func (r *ReputationRepository) GetByAccount(accountID string) (*models.ReputationRecord, error) {
	var record models.ReputationRecord
	err := r.db.Where("account_id = ?", accountID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.ReputationRecord{AccountID: accountID}, nil
	}
	if err != nil {
		return nil, storageErr("get reputation record", err)
	}
	return &record, nil
}

// ApplyUpload increments the upload counter and adds a quality-weighted score
// delta.
func (r *ReputationRepository) ApplyUpload(accountID string, scoreDelta float64) error {
	return r.apply(accountID, "upload_count", scoreDelta)
}

// ApplyDownload increments the download counter and adds a fixed score delta.
func (r *ReputationRepository) ApplyDownload(accountID string, scoreDelta float64) error {
	return r.apply(accountID, "download_count", scoreDelta)
}

// ApplyCitation increments the citation counter and adds a fixed score delta.
func (r *ReputationRepository) ApplyCitation(accountID string, scoreDelta float64) error {
	return r.apply(accountID, "citation_count", scoreDelta)
}

func (r *ReputationRepository) apply(accountID, counterColumn string, scoreDelta float64) error {
	if scoreDelta <= 0 {
		return errs.ErrScoreOutOfRange
	}

	if err := r.ensureRecord(accountID); err != nil {
		return err
	}

	err := r.db.Model(&models.ReputationRecord{}).
		Where("account_id = ?", accountID).
		UpdateColumns(map[string]interface{}{
			counterColumn:      gorm.Expr(counterColumn + " + 1"),
			"reputation_score": gorm.Expr("reputation_score + ?", scoreDelta),
		}).Error
	if err != nil {
		return storageErr("apply reputation event", err)
	}
	return nil
}

// ensureRecord creates the account's record on first activity. A concurrent
// create is fine; the loser of the race proceeds against the winner's row.
func (r *ReputationRepository) ensureRecord(accountID string) error {
	record := &models.ReputationRecord{AccountID: accountID}
	if err := r.db.FirstOrCreate(record, models.ReputationRecord{AccountID: accountID}).Error; err != nil {
		if isDuplicateKey(err) {
			return nil
		}
		return storageErr("ensure reputation record", err)
	}
	return nil
}
