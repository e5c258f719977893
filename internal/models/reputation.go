package models

import (
	"time"
)

// ReputationRecord accumulates a contributor's platform activity. The score
// is monotonic: every qualifying event applies a strictly positive increment.
type ReputationRecord struct {
	AccountID       string    `gorm:"primaryKey;size:128" json:"account_id"`
	UploadCount     int64     `gorm:"default:0" json:"upload_count"`
	DownloadCount   int64     `gorm:"default:0" json:"download_count"`
	CitationCount   int64     `gorm:"default:0" json:"citation_count"`
	ReputationScore float64   `gorm:"default:0" json:"reputation_score"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for ReputationRecord model.
func (ReputationRecord) TableName() string {
	return "reputation_records"
}
