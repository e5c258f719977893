// Package errs defines the error taxonomy of the verification and reward
// core. Callers distinguish business-rule rejections (duplicate content,
// self-review, out-of-range input) from system faults with errors.Is.
package errs

import "errors"

// Business-rule rejections. These are terminal for the request but not
// faults: the caller corrects its input or accepts the rejection.
var (
	// ErrDuplicateContent means the content fingerprint is already
	// registered; duplicate bytes never occupy a second registry slot.
	ErrDuplicateContent = errors.New("duplicate content fingerprint")

	// ErrSelfReview means the reviewer is the dataset's contributor.
	ErrSelfReview = errors.New("contributor cannot review own dataset")

	// ErrDuplicateReview means this reviewer already reviewed this dataset.
	ErrDuplicateReview = errors.New("reviewer already reviewed this dataset")

	// ErrRatingOutOfRange means the review rating is outside the allowed bound.
	ErrRatingOutOfRange = errors.New("rating out of range")

	// ErrScoreOutOfRange means the automated score is outside 0-100.
	ErrScoreOutOfRange = errors.New("automated score out of range")

	// ErrFileNameTooLong means the dataset file name exceeds 100 bytes.
	ErrFileNameTooLong = errors.New("file name too long")

	// ErrFileTooLarge means the dataset exceeds the 100 MB size cap.
	ErrFileTooLarge = errors.New("file too large")
)

// Operational errors.
var (
	// ErrNotFound means the referenced dataset or account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrencyConflict is transient; the same operation can be retried.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrStorage wraps backing-store failures. Surfaced, never auto-retried.
	ErrStorage = errors.New("storage fault")
)

// IsRejection reports whether err is a business-rule rejection rather than
// a system fault. The HTTP layer maps rejections to 4xx responses.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrDuplicateContent,
		ErrSelfReview,
		ErrDuplicateReview,
		ErrRatingOutOfRange,
		ErrScoreOutOfRange,
		ErrFileNameTooLong,
		ErrFileTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Kind returns a stable machine-readable identifier for err, used in API
// error envelopes and metrics labels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateContent):
		return "duplicate_content"
	case errors.Is(err, ErrSelfReview):
		return "self_review"
	case errors.Is(err, ErrDuplicateReview):
		return "duplicate_review"
	case errors.Is(err, ErrRatingOutOfRange):
		return "rating_out_of_range"
	case errors.Is(err, ErrScoreOutOfRange):
		return "score_out_of_range"
	case errors.Is(err, ErrFileNameTooLong):
		return "file_name_too_long"
	case errors.Is(err, ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrStorage):
		return "storage_fault"
	default:
		return "internal"
	}
}
