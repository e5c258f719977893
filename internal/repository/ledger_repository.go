package repository

import (
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
)

// LedgerRepository handles the append-only reward ledger and its payment
// forward outbox. Entries are never mutated or deleted.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx returns a repository scoped to the given transaction.
func (r *LedgerRepository) WithTx(tx *DB) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

// Append inserts a ledger entry and its payment-forward outbox row. The
// forward row rides the same transaction, so the entry provably exists before
// any forward attempt starts.
func (r *LedgerRepository) Append(entry *models.LedgerEntry) error {
	if err := r.db.Create(entry).Error; err != nil {
		return storageErr("append ledger entry", err)
	}
	forward := &models.PaymentForward{
		LedgerEntryID: entry.ID,
		AccountID:     entry.AccountID,
		Amount:        entry.Amount,
		Status:        models.ForwardPending,
	}
	if err := r.db.Create(forward).Error; err != nil {
		return storageErr("enqueue payment forward", err)
	}
	return nil
}

// AppendGuarded inserts a one-time bonus entry protected by a durable guard
// key. It returns false without error when the guard already exists: the
// bonus was paid before, by this instance or another, and paying again would
// violate the at-most-once invariant.
func (r *LedgerRepository) AppendGuarded(entry *models.LedgerEntry, guardKey string) (bool, error) {
	guard := &models.BonusGuard{Key: guardKey}
	if err := r.db.Create(guard).Error; err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, storageErr("create bonus guard", err)
	}
	if err := r.Append(entry); err != nil {
		return false, err
	}
	return true, nil
}

// BalanceFor sums all entries for an account. This is the source of truth;
// any cached balance derives from it.
func (r *LedgerRepository) BalanceFor(accountID string) (int64, error) {
	var balance int64
	err := r.db.Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("account_id = ?", accountID).
		Scan(&balance).Error
	if err != nil {
		return 0, storageErr("sum ledger balance", err)
	}
	return balance, nil
}

// ListByAccount retrieves an account's ledger entries, newest first.
func (r *LedgerRepository) ListByAccount(accountID string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, storageErr("list ledger entries", err)
	}
	return entries, nil
}

// CountByReason counts entries for an account with the given reason, scoped
// to a dataset when relatedDatasetID is non-empty. Used by invariant tests
// and reconciliation.
func (r *LedgerRepository) CountByReason(accountID, reason, relatedDatasetID string) (int64, error) {
	query := r.db.Model(&models.LedgerEntry{}).Where("reason = ?", reason)
	if accountID != "" {
		query = query.Where("account_id = ?", accountID)
	}
	if relatedDatasetID != "" {
		query = query.Where("related_dataset_id = ?", relatedDatasetID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, storageErr("count ledger entries", err)
	}
	return count, nil
}

// PendingForwards retrieves forwards still awaiting delivery, oldest first.
// Failed forwards stay eligible until they exhaust maxAttempts.
func (r *LedgerRepository) PendingForwards(maxAttempts, limit int) ([]models.PaymentForward, error) {
	var forwards []models.PaymentForward
	err := r.db.Where("status IN ?", []string{models.ForwardPending, models.ForwardFailed}).
		Where("attempts < ?", maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&forwards).Error
	if err != nil {
		return nil, storageErr("list pending forwards", err)
	}
	return forwards, nil
}

// MarkForwardSent records a successful delivery to the payment rail.
func (r *LedgerRepository) MarkForwardSent(forward *models.PaymentForward) error {
	err := r.db.Model(&models.PaymentForward{}).
		Where("id = ?", forward.ID).
		Updates(map[string]interface{}{
			"status":     models.ForwardSent,
			"attempts":   forward.Attempts + 1,
			"last_error": "",
		}).Error
	if err != nil {
		return storageErr("mark forward sent", err)
	}
	return nil
}

// MarkForwardFailed records a failed attempt; the row stays for retry or
// out-of-band reconciliation, never rolled back into the ledger.
func (r *LedgerRepository) MarkForwardFailed(forward *models.PaymentForward, cause string) error {
	err := r.db.Model(&models.PaymentForward{}).
		Where("id = ?", forward.ID).
		Updates(map[string]interface{}{
			"status":     models.ForwardFailed,
			"attempts":   forward.Attempts + 1,
			"last_error": cause,
		}).Error
	if err != nil {
		return storageErr("mark forward failed", err)
	}
	return nil
}
