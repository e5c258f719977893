// Package v1 provides the REST API surface of the verification and reward
// core: dataset admission, review submission, status, balances, ledger audit
// trail, and reputation reads.
package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Neocryptoquant/africa-research-ledger/internal/errs"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/registry"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/reputation"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/rewards"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/scoring"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

// RegistryService interface for dataset admission operations.
type RegistryService interface {
	Admit(ctx context.Context, in registry.AdmitInput) (*models.Dataset, error)
	Status(ctx context.Context, datasetID string) (*models.Dataset, error)
}

// ScoringService interface for review operations.
type ScoringService interface {
	RecordReview(ctx context.Context, datasetID, reviewerID string, rating int, feedback string) (*scoring.ScoreUpdate, error)
}

// RewardsService interface for balance and ledger reads.
type RewardsService interface {
	Balance(ctx context.Context, accountID string) (int64, error)
	Entries(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
}

// ReputationService interface for reputation operations.
type ReputationService interface {
	OnDownload(ctx context.Context, datasetID string) (*models.ReputationRecord, error)
	OnCitation(ctx context.Context, datasetID string) (*models.ReputationRecord, error)
	Get(ctx context.Context, accountID string) (*models.ReputationRecord, error)
}

// Handler handles ledger core API requests.
type Handler struct {
	registryService   RegistryService
	scoringService    ScoringService
	rewardsService    RewardsService
	reputationService ReputationService
	log               *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	registrySvc *registry.Service,
	scoringSvc *scoring.Service,
	rewardsSvc *rewards.Service,
	reputationSvc *reputation.Service,
	log *logger.Logger,
) *Handler {
	return &Handler{
		registryService:   registrySvc,
		scoringService:    scoringSvc,
		rewardsService:    rewardsSvc,
		reputationService: reputationSvc,
		log:               log,
	}
}

// NewHandlerWithInterfaces creates a new handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	registrySvc RegistryService,
	scoringSvc ScoringService,
	rewardsSvc RewardsService,
	reputationSvc ReputationService,
	log *logger.Logger,
) *Handler {
	return &Handler{
		registryService:   registrySvc,
		scoringService:    scoringSvc,
		rewardsService:    rewardsSvc,
		reputationService: reputationSvc,
		log:               log,
	}
}

// RegisterRoutes registers all API routes on the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/datasets", h.AdmitDataset)
	rg.GET("/datasets/:id/status", h.GetDatasetStatus)
	rg.POST("/datasets/:id/reviews", h.SubmitReview)
	rg.POST("/datasets/:id/downloads", h.RecordDownload)
	rg.POST("/datasets/:id/citations", h.RecordCitation)
	rg.GET("/accounts/:id/balance", h.GetBalance)
	rg.GET("/accounts/:id/ledger", h.GetLedger)
	rg.GET("/accounts/:id/reputation", h.GetReputation)
}

// admitRequest is the dataset admission payload. The caller identity comes
// from the trusted identity provider upstream; the fingerprint and automated
// score come from the hashing and scoring collaborators.
type admitRequest struct {
	ContributorID      string `json:"contributor_id" binding:"required"`
	ContentFingerprint string `json:"content_fingerprint" binding:"required"`
	FileName           string `json:"file_name"`
	SizeBytes          int64  `json:"size_bytes"`
	RowCount           int64  `json:"row_count"`
	ColumnCount        int64  `json:"column_count"`
	AutomatedScore     int    `json:"automated_score"`
}

// AdmitDataset admits a dataset into the registry.
// POST /api/v1/datasets.
func (h *Handler) AdmitDataset(c *gin.Context) {
	var req admitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	dataset, err := h.registryService.Admit(c.Request.Context(), registry.AdmitInput{
		ContributorID:      req.ContributorID,
		ContentFingerprint: req.ContentFingerprint,
		FileName:           req.FileName,
		SizeBytes:          req.SizeBytes,
		RowCount:           req.RowCount,
		ColumnCount:        req.ColumnCount,
		AutomatedScore:     req.AutomatedScore,
	})
	if err != nil {
		h.serviceError(c, err, "Failed to admit dataset")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"dataset_id":         dataset.ID,
		"verification_state": dataset.VerificationState,
		"final_score":        dataset.FinalScore,
		"created_at":         dataset.CreatedAt,
	})
}

// reviewRequest is the review submission payload.
type reviewRequest struct {
	ReviewerID string `json:"reviewer_id" binding:"required"`
	Rating     int    `json:"rating" binding:"required"`
	Feedback   string `json:"feedback"`
}

// SubmitReview records a peer review and returns the scoring snapshot taken
// atomically with it.
// POST /api/v1/datasets/:id/reviews.
func (h *Handler) SubmitReview(c *gin.Context) {
	datasetID := c.Param("id")

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	update, err := h.scoringService.RecordReview(c.Request.Context(), datasetID, req.ReviewerID, req.Rating, req.Feedback)
	if err != nil {
		h.serviceError(c, err, "Failed to record review")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"review_id": update.ReviewID,
		"score":     update,
	})
}

// GetDatasetStatus returns the dataset's verification snapshot.
// GET /api/v1/datasets/:id/status.
func (h *Handler) GetDatasetStatus(c *gin.Context) {
	dataset, err := h.registryService.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err, "Failed to get dataset status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dataset_id":         dataset.ID,
		"automated_score":    dataset.AutomatedScore,
		"human_score":        dataset.HumanScore,
		"final_score":        dataset.FinalScore,
		"verification_state": dataset.VerificationState,
		"review_count":       dataset.ReviewCount,
		"verified_at":        dataset.VerifiedAt,
	})
}

// RecordDownload records a download event for a dataset.
// POST /api/v1/datasets/:id/downloads.
func (h *Handler) RecordDownload(c *gin.Context) {
	record, err := h.reputationService.OnDownload(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err, "Failed to record download")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reputation": record})
}

// RecordCitation records a citation event for a dataset.
// POST /api/v1/datasets/:id/citations.
func (h *Handler) RecordCitation(c *gin.Context) {
	record, err := h.reputationService.OnCitation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err, "Failed to record citation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reputation": record})
}

// GetBalance returns the account's current credit balance.
// GET /api/v1/accounts/:id/balance.
func (h *Handler) GetBalance(c *gin.Context) {
	accountID := c.Param("id")
	balance, err := h.rewardsService.Balance(c.Request.Context(), accountID)
	if err != nil {
		h.serviceError(c, err, "Failed to get balance")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id":   accountID,
		"balance":      balance,
		"generated_at": time.Now().UTC(),
	})
}

// GetLedger returns the account's ledger audit trail.
// GET /api/v1/accounts/:id/ledger.
func (h *Handler) GetLedger(c *gin.Context) {
	accountID := c.Param("id")
	entries, err := h.rewardsService.Entries(c.Request.Context(), accountID)
	if err != nil {
		h.serviceError(c, err, "Failed to get ledger entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id":    accountID,
		"entries":       entries,
		"total_entries": len(entries),
	})
}

// GetReputation returns the account's reputation record.
// GET /api/v1/accounts/:id/reputation.
func (h *Handler) GetReputation(c *gin.Context) {
	record, err := h.reputationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err, "Failed to get reputation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reputation": record})
}

// serviceError maps the error taxonomy onto HTTP statuses. Business
// rejections are distinct outcomes the caller builds logic on; faults are
// plain 500s.
func (h *Handler) serviceError(c *gin.Context, err error, logMsg string) {
	kind := errs.Kind(err)
	switch {
	case errs.IsRejection(err):
		status := http.StatusUnprocessableEntity
		if kind == "duplicate_content" || kind == "duplicate_review" {
			status = http.StatusConflict
		}
		h.errorResponse(c, status, kind, err.Error())
	case kind == "not_found":
		h.errorResponse(c, http.StatusNotFound, kind, err.Error())
	case kind == "concurrency_conflict":
		h.errorResponse(c, http.StatusConflict, kind, "transient conflict, retry the operation")
	default:
		h.log.Error().Err(err).Msg(logMsg)
		h.errorResponse(c, http.StatusInternalServerError, kind, "internal error")
	}
}

func (h *Handler) errorResponse(c *gin.Context, status int, kind, message string) {
	c.JSON(status, gin.H{
		"error": message,
		"kind":  kind,
	})
}
