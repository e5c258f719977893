package models

import (
	"time"
)

// LedgerEntry is an immutable, append-only reward credit. A balance is always
// the sum of an account's entries; nothing here is ever mutated or deleted.
type LedgerEntry struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	AccountID        string    `gorm:"size:128;not null;index" json:"account_id"`
	Amount           int64     `gorm:"not null" json:"amount"`
	Reason           string    `gorm:"size:40;not null;index" json:"reason"`
	RelatedDatasetID string    `gorm:"size:160;index" json:"related_dataset_id,omitempty"`
	RelatedReviewID  string    `gorm:"size:36" json:"related_review_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for LedgerEntry model.
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Credit reasons.
const (
	ReasonBaseUpload        = "base_upload"
	ReasonQualityBonus      = "quality_bonus"
	ReasonLargeDatasetBonus = "large_dataset_bonus"
	ReasonFirstUploadBonus  = "first_upload_bonus"
	ReasonReviewSubmitted   = "review_submitted"
	ReasonFirstReviewBonus  = "first_review_bonus"
	ReasonVerificationBonus = "verification_bonus"
)

// BonusGuard makes at-most-once bonuses durable. The guard row is inserted in
// the same transaction as the bonus entry; its unique key turns a concurrent
// double payment into a harmless duplicate-key skip, surviving restarts and
// multiple instances.
type BonusGuard struct {
	Key       string    `gorm:"primaryKey;size:200" json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for BonusGuard model.
func (BonusGuard) TableName() string {
	return "bonus_guards"
}

// FirstUploadGuardKey scopes the first-upload bonus to an account.
func FirstUploadGuardKey(accountID string) string {
	return "first_upload:" + accountID
}

// FirstReviewGuardKey scopes the first-review bonus to an account.
func FirstReviewGuardKey(accountID string) string {
	return "first_review:" + accountID
}

// VerificationGuardKey scopes the verification bonus to a dataset.
func VerificationGuardKey(datasetID string) string {
	return "verification:" + datasetID
}

// PaymentForward is the outbox row for forwarding a committed ledger entry to
// the external payment rail. The forward is best effort: it is created after
// the ledger entry in the same transaction, attempted out-of-band, and never
// rolled back into the ledger.
type PaymentForward struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	LedgerEntryID string    `gorm:"size:36;uniqueIndex;not null" json:"ledger_entry_id"`
	AccountID     string    `gorm:"size:128;not null" json:"account_id"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Status        string    `gorm:"size:20;index" json:"status"`
	Attempts      int       `gorm:"default:0" json:"attempts"`
	LastError     string    `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for PaymentForward model.
func (PaymentForward) TableName() string {
	return "payment_forwards"
}

// PaymentForward statuses.
const (
	ForwardPending = "pending"
	ForwardSent    = "sent"
	ForwardFailed  = "failed" // retried until the attempt cap, then left for reconciliation
)
