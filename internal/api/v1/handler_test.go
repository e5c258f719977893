package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neocryptoquant/africa-research-ledger/internal/errs"
	"github.com/Neocryptoquant/africa-research-ledger/internal/models"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/registry"
	"github.com/Neocryptoquant/africa-research-ledger/internal/service/scoring"
	"github.com/Neocryptoquant/africa-research-ledger/pkg/logger"
)

type stubRegistry struct {
	admitErr  error
	statusErr error
	dataset   *models.Dataset
}

func (s *stubRegistry) Admit(ctx context.Context, in registry.AdmitInput) (*models.Dataset, error) {
	if s.admitErr != nil {
		return nil, s.admitErr
	}
	return s.dataset, nil
}

func (s *stubRegistry) Status(ctx context.Context, datasetID string) (*models.Dataset, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return s.dataset, nil
}

type stubScoring struct {
	err    error
	update *scoring.ScoreUpdate
}

func (s *stubScoring) RecordReview(ctx context.Context, datasetID, reviewerID string, rating int, feedback string) (*scoring.ScoreUpdate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.update, nil
}

type stubRewards struct {
	balance int64
	entries []models.LedgerEntry
	err     error
}

func (s *stubRewards) Balance(ctx context.Context, accountID string) (int64, error) {
	return s.balance, s.err
}

func (s *stubRewards) Entries(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	return s.entries, s.err
}

type stubReputation struct {
	record *models.ReputationRecord
	err    error
}

func (s *stubReputation) OnDownload(ctx context.Context, datasetID string) (*models.ReputationRecord, error) {
	return s.record, s.err
}

func (s *stubReputation) OnCitation(ctx context.Context, datasetID string) (*models.ReputationRecord, error) {
	return s.record, s.err
}

func (s *stubReputation) Get(ctx context.Context, accountID string) (*models.ReputationRecord, error) {
	return s.record, s.err
}

func setupRouter(reg RegistryService, sc ScoringService, rw RewardsService, rep ReputationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandlerWithInterfaces(reg, sc, rw, rep, logger.New("error", "json", "stdout"))
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdmitDataset(t *testing.T) {
	reg := &stubRegistry{dataset: &models.Dataset{
		ID:                "alice-1",
		FinalScore:        75,
		VerificationState: models.VerificationPending,
	}}
	router := setupRouter(reg, &stubScoring{}, &stubRewards{}, &stubReputation{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/datasets", gin.H{
		"contributor_id":      "alice",
		"content_fingerprint": "fp-aaa",
		"file_name":           "survey.csv",
		"automated_score":     75,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice-1", resp["dataset_id"])
	assert.Equal(t, "pending", resp["verification_state"])
}

func TestAdmitDataset_MissingFields(t *testing.T) {
	router := setupRouter(&stubRegistry{}, &stubScoring{}, &stubRewards{}, &stubReputation{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/datasets", gin.H{"file_name": "survey.csv"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmitDataset_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{name: "duplicate content", err: errs.ErrDuplicateContent, wantCode: http.StatusConflict, wantKind: "duplicate_content"},
		{name: "score out of range", err: errs.ErrScoreOutOfRange, wantCode: http.StatusUnprocessableEntity, wantKind: "score_out_of_range"},
		{name: "file name too long", err: errs.ErrFileNameTooLong, wantCode: http.StatusUnprocessableEntity, wantKind: "file_name_too_long"},
		{name: "file too large", err: errs.ErrFileTooLarge, wantCode: http.StatusUnprocessableEntity, wantKind: "file_too_large"},
		{name: "concurrency conflict", err: errs.ErrConcurrencyConflict, wantCode: http.StatusConflict, wantKind: "concurrency_conflict"},
		{name: "storage fault", err: errs.ErrStorage, wantCode: http.StatusInternalServerError, wantKind: "storage_fault"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(&stubRegistry{admitErr: tt.err}, &stubScoring{}, &stubRewards{}, &stubReputation{})

			w := doJSON(t, router, http.MethodPost, "/api/v1/datasets", gin.H{
				"contributor_id":      "alice",
				"content_fingerprint": "fp-aaa",
			})

			assert.Equal(t, tt.wantCode, w.Code)
			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp["kind"])
		})
	}
}

func TestSubmitReview(t *testing.T) {
	sc := &stubScoring{update: &scoring.ScoreUpdate{
		ReviewID:          "rev-1",
		DatasetID:         "alice-1",
		FinalScore:        92,
		ReviewCount:       1,
		VerificationState: models.VerificationVerified,
		VerifiedNow:       true,
	}}
	router := setupRouter(&stubRegistry{}, sc, &stubRewards{}, &stubReputation{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/datasets/alice-1/reviews", gin.H{
		"reviewer_id": "bob",
		"rating":      5,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		ReviewID string              `json:"review_id"`
		Score    scoring.ScoreUpdate `json:"score"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rev-1", resp.ReviewID)
	assert.Equal(t, 92, resp.Score.FinalScore)
	assert.True(t, resp.Score.VerifiedNow)
}

func TestSubmitReview_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{name: "self review", err: errs.ErrSelfReview, wantCode: http.StatusUnprocessableEntity, wantKind: "self_review"},
		{name: "duplicate review", err: errs.ErrDuplicateReview, wantCode: http.StatusConflict, wantKind: "duplicate_review"},
		{name: "rating out of range", err: errs.ErrRatingOutOfRange, wantCode: http.StatusUnprocessableEntity, wantKind: "rating_out_of_range"},
		{name: "dataset not found", err: errs.ErrNotFound, wantCode: http.StatusNotFound, wantKind: "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(&stubRegistry{}, &stubScoring{err: tt.err}, &stubRewards{}, &stubReputation{})

			w := doJSON(t, router, http.MethodPost, "/api/v1/datasets/alice-1/reviews", gin.H{
				"reviewer_id": "bob",
				"rating":      5,
			})

			assert.Equal(t, tt.wantCode, w.Code)
			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp["kind"])
		})
	}
}

func TestGetDatasetStatus(t *testing.T) {
	reg := &stubRegistry{dataset: &models.Dataset{
		ID:                "alice-1",
		AutomatedScore:    80,
		HumanScore:        100,
		FinalScore:        92,
		ReviewCount:       1,
		VerificationState: models.VerificationVerified,
	}}
	router := setupRouter(reg, &stubScoring{}, &stubRewards{}, &stubReputation{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/datasets/alice-1/status", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "verified", resp["verification_state"])
	assert.Equal(t, float64(92), resp["final_score"])
}

func TestGetDatasetStatus_NotFound(t *testing.T) {
	router := setupRouter(&stubRegistry{statusErr: errs.ErrNotFound}, &stubScoring{}, &stubRewards{}, &stubReputation{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/datasets/missing/status", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBalance(t *testing.T) {
	router := setupRouter(&stubRegistry{}, &stubScoring{}, &stubRewards{balance: 35}, &stubReputation{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/accounts/alice/balance", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp["account_id"])
	assert.Equal(t, float64(35), resp["balance"])
}

func TestGetLedger(t *testing.T) {
	rw := &stubRewards{entries: []models.LedgerEntry{
		{ID: "e1", AccountID: "alice", Amount: 25, Reason: models.ReasonFirstUploadBonus},
		{ID: "e2", AccountID: "alice", Amount: 10, Reason: models.ReasonBaseUpload},
	}}
	router := setupRouter(&stubRegistry{}, &stubScoring{}, rw, &stubReputation{})

	w := doJSON(t, router, http.MethodGet, "/api/v1/accounts/alice/ledger", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Entries      []models.LedgerEntry `json:"entries"`
		TotalEntries int                  `json:"total_entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalEntries)
	assert.Equal(t, "first_upload_bonus", resp.Entries[0].Reason)
}

func TestRecordDownloadAndCitation(t *testing.T) {
	rep := &stubReputation{record: &models.ReputationRecord{
		AccountID:       "alice",
		DownloadCount:   1,
		ReputationScore: 11,
	}}
	router := setupRouter(&stubRegistry{}, &stubScoring{}, &stubRewards{}, rep)

	for _, path := range []string{
		"/api/v1/datasets/alice-1/downloads",
		"/api/v1/datasets/alice-1/citations",
	} {
		w := doJSON(t, router, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/datasets/missing/downloads", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	rep.err = errs.ErrNotFound
	rep.record = nil
	w = doJSON(t, router, http.MethodPost, "/api/v1/datasets/missing/downloads", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetReputation(t *testing.T) {
	rep := &stubReputation{record: &models.ReputationRecord{
		AccountID:       "alice",
		UploadCount:     2,
		ReputationScore: 36,
	}}
	router := setupRouter(&stubRegistry{}, &stubScoring{}, &stubRewards{}, rep)

	w := doJSON(t, router, http.MethodGet, "/api/v1/accounts/alice/reputation", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Reputation models.ReputationRecord `json:"reputation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Reputation.UploadCount)
	assert.Equal(t, float64(36), resp.Reputation.ReputationScore)
}
