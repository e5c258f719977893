// Package models defines domain models for the dataset verification and
// reward ledger core.
package models

import (
	"fmt"
	"time"
)

// Dataset represents an admitted dataset in the content registry.
type Dataset struct {
	ID                 string     `gorm:"primaryKey;size:160" json:"id"`
	ContributorID      string     `gorm:"size:128;not null;index" json:"contributor_id"`
	Sequence           uint64     `gorm:"not null" json:"sequence"`
	ContentFingerprint string     `gorm:"size:64;uniqueIndex;not null" json:"content_fingerprint"`
	FileName           string     `gorm:"size:100" json:"file_name"`
	SizeBytes          int64      `json:"size_bytes"`
	RowCount           int64      `json:"row_count"`
	ColumnCount        int64      `json:"column_count"`
	AutomatedScore     int        `gorm:"not null" json:"automated_score"` // 0-100, immutable after admission
	HumanScore         float64    `json:"human_score"`                     // 0-100, derived from reviews
	FinalScore         int        `json:"final_score"`                     // derived, see scoring.FinalScore
	ReviewCount        int        `gorm:"default:0" json:"review_count"`
	DownloadCount      int64      `gorm:"default:0" json:"download_count"`
	CitationCount      int64      `gorm:"default:0" json:"citation_count"`
	VerificationState  string     `gorm:"size:32;index" json:"verification_state"`
	VerifiedAt         *time.Time `json:"verified_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Dataset model.
func (Dataset) TableName() string {
	return "datasets"
}

// IsVerified reports whether the dataset has reached the Verified state.
// Verification is a one-way ratchet: once set it never regresses.
func (d *Dataset) IsVerified() bool {
	return d.VerificationState == VerificationVerified
}

// DatasetID derives the stable dataset identifier from the contributor and
// their per-contributor sequence number.
func DatasetID(contributorID string, sequence uint64) string {
	return fmt.Sprintf("%s-%d", contributorID, sequence)
}

// Review represents a single peer review of a dataset. Reviews are immutable
// once created and unique per (dataset, reviewer) pair.
type Review struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	DatasetID  string    `gorm:"size:160;not null;uniqueIndex:idx_reviews_dataset_reviewer" json:"dataset_id"`
	ReviewerID string    `gorm:"size:128;not null;uniqueIndex:idx_reviews_dataset_reviewer" json:"reviewer_id"`
	Rating     int       `gorm:"not null" json:"rating"` // 1-5
	Feedback   string    `gorm:"type:text" json:"feedback,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for Review model.
func (Review) TableName() string {
	return "reviews"
}

// ContributorSequence holds the per-contributor upload counter used to derive
// dataset identifiers. The row is incremented inside the admission
// transaction so concurrent uploads from one contributor serialize.
type ContributorSequence struct {
	ContributorID string    `gorm:"primaryKey;size:128" json:"contributor_id"`
	NextSeq       uint64    `gorm:"not null;default:0" json:"next_seq"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for ContributorSequence model.
func (ContributorSequence) TableName() string {
	return "contributor_sequences"
}

// VerificationState constants.
const (
	VerificationPending     = "pending"
	VerificationUnderReview = "under_review"
	VerificationVerified    = "verified"
	VerificationRejected    = "rejected"
)

// Admission limits carried over from the registry rules.
const (
	MaxFileNameBytes = 100
	MaxFileSizeBytes = 104_857_600 // 100 MB
)

// Review rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)
