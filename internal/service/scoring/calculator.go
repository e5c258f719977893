// Package scoring combines the automated quality signal with accumulated
// peer reviews into a final score and a verification verdict.
package scoring

import (
	"math"

	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
)

// HumanScore scales a mean rating on the 1-5 scheme to the 0-100 range.
func HumanScore(meanRating float64) float64 {
	if meanRating <= 0 {
		return 0
	}
	score := meanRating * 100.0 / float64(models.MaxRating)
	if score > 100 {
		score = 100
	}
	return score
}

// FinalScore combines the automated and human signals with the configured
// weights, rounded to the nearest whole number.
func FinalScore(automatedScore int, humanScore, automatedWeight, humanWeight float64) int {
	return int(math.Round(automatedWeight*float64(automatedScore) + humanWeight*humanScore))
}

// NextState computes the verification state after a review lands.
// Verification is a one-way ratchet: Verified and Rejected are terminal, so a
// later review lowering the aggregate never regresses the state.
func NextState(current string, finalScore, threshold, reviewCount int) string {
	switch current {
	case models.VerificationVerified, models.VerificationRejected:
		return current
	}
	if finalScore >= threshold {
		return models.VerificationVerified
	}
	if reviewCount > 0 {
		return models.VerificationUnderReview
	}
	return current
}
