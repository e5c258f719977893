package repository

import (
	"github.com/Neocryptoquant/africa-research-ledger/internal/errs"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
)

// ReviewRepository handles peer-review database operations. Reviews are
// append-only; there is no update or delete path.
type ReviewRepository struct {
	db *DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// WithTx returns a repository scoped to the given transaction.
func (r *ReviewRepository) WithTx(tx *DB) *ReviewRepository {
	return &ReviewRepository{db: tx}
}

// Create appends a review. The composite unique index on
// (dataset_id, reviewer_id) backstops the duplicate check under concurrency.
func (r *ReviewRepository) Create(review *models.Review) error {
	if err := r.db.Create(review).Error; err != nil {
		if isDuplicateKey(err) {
			return errs.ErrDuplicateReview
		}
		return storageErr("create review", err)
	}
	return nil
}

// Exists reports whether the reviewer already reviewed the dataset.
func (r *ReviewRepository) Exists(datasetID, reviewerID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Review{}).
		Where("dataset_id = ? AND reviewer_id = ?", datasetID, reviewerID).
		Count(&count).Error
	if err != nil {
		return false, storageErr("check review existence", err)
	}
	return count > 0, nil
}

// Aggregate returns the review count and mean rating for a dataset. Inside a
// transaction it sees the transaction's own uncommitted review, which is what
// makes append-and-recompute one atomic unit.
func (r *ReviewRepository) Aggregate(datasetID string) (count int64, meanRating float64, err error) {
	type row struct {
		Count int64
		Mean  float64
	}
	var res row
	err = r.db.Model(&models.Review{}).
		Select("COUNT(*) as count, COALESCE(AVG(rating), 0) as mean").
		Where("dataset_id = ?", datasetID).
		Scan(&res).Error
	if err != nil {
		return 0, 0, storageErr("aggregate reviews", err)
	}
	return res.Count, res.Mean, nil
}

// ListByDataset retrieves all reviews for a dataset, oldest first.
func (r *ReviewRepository) ListByDataset(datasetID string) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.Where("dataset_id = ?", datasetID).
		Order("created_at ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, storageErr("list reviews", err)
	}
	return reviews, nil
}
