package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"game-reward-service/internal/adapter/http/middleware"
	"game-reward-service/internal/core/domain"
	"game-reward-service/internal/core/ports"
	"game-reward-service/internal/core/ports/mocks"
	"game-reward-service/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonContext(method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Reward Handler Tests ---

func TestIssueNonce_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAwards := mocks.NewMockAwardService(ctrl)
	h := NewRewardHandler(mockAwards)

	mockAwards.EXPECT().IssueNonce(gomock.Any(), "alice", gomock.Any()).Return("00112233445566778899aabbccddeeff", nil)

	c, w := jsonContext(http.MethodPost, "/api/v1/nonces", `{"wallet":"alice"}`)
	h.IssueNonce(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "00112233445566778899aabbccddeeff", data["nonce"])
	assert.Equal(t, "alice", c.GetString(middleware.CtxIdentifier))
}

func TestIssueNonce_InvalidWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAwards := mocks.NewMockAwardService(ctrl)
	h := NewRewardHandler(mockAwards)

	c, w := jsonContext(http.MethodPost, "/api/v1/nonces", `{"wallet":"not a wallet"}`)
	h.IssueNonce(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "VAL_001", resp["error_code"])
	assert.Equal(t, "invalid_identifier", resp["reason"])
}

func TestRedeem_Granted(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAwards := mocks.NewMockAwardService(ctrl)
	h := NewRewardHandler(mockAwards)

	award := &domain.Award{ID: uuid.New(), Identifier: "alice", Amount: 1000000, TotalAfter: 3000000}
	mockAwards.EXPECT().Redeem(gomock.Any(), ports.RedeemRequest{
		Identifier: "alice",
		Token:      "tok",
		ClientIP:   "192.0.2.1",
	}).Return(award, nil)

	c, w := jsonContext(http.MethodPost, "/api/v1/rewards/redeem", `{"wallet":"alice","nonce":"tok"}`)
	h.Redeem(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "granted", data["status"])
	assert.Equal(t, award.ID.String(), data["award_id"])
	assert.Equal(t, float64(1000000), data["points"])
	assert.Equal(t, float64(3000000), data["total"])
	assert.Equal(t, award.ID.String(), c.GetString(middleware.CtxResourceID))
}

func TestRedeem_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"used nonce", apperror.ErrInvalidOrUsedNonce(), http.StatusBadRequest, "invalid_or_used_nonce"},
		{"storage timeout", apperror.ErrStorageUnavailable(context.DeadlineExceeded), http.StatusServiceUnavailable, "storage_error"},
		{"credit lost", apperror.ErrPostConsumeCreditFailure(errors.New("x")), http.StatusInternalServerError, "storage_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockAwards := mocks.NewMockAwardService(ctrl)
			h := NewRewardHandler(mockAwards)
			mockAwards.EXPECT().Redeem(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			c, w := jsonContext(http.MethodPost, "/api/v1/rewards/redeem", `{"wallet":"alice","nonce":"tok"}`)
			h.Redeem(c)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.reason, decode(t, w)["reason"])
			assert.Equal(t, tt.reason, c.GetString(middleware.CtxRejectReason))
			assert.Equal(t, "alice", c.GetString(middleware.CtxIdentifier))
		})
	}
}

func TestRedeem_MissingNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewRewardHandler(mocks.NewMockAwardService(ctrl))

	c, w := jsonContext(http.MethodPost, "/api/v1/rewards/redeem", `{"wallet":"alice"}`)
	h.Redeem(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_or_used_nonce", decode(t, w)["reason"])
}

func TestLegacySavePoints_Shapes(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAwards := mocks.NewMockAwardService(ctrl)
	h := NewRewardHandler(mockAwards)

	gomock.InOrder(
		mockAwards.EXPECT().Redeem(gomock.Any(), gomock.Any()).
			Return(&domain.Award{ID: uuid.New(), Identifier: "alice", Amount: 1000000}, nil),
		mockAwards.EXPECT().Redeem(gomock.Any(), gomock.Any()).
			Return(nil, apperror.ErrInvalidOrUsedNonce()),
	)

	c, w := jsonContext(http.MethodPost, "/api/savePoints", `{"wallet":"alice","nonce":"tok"}`)
	h.LegacySavePoints(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000000 points added successfully", decode(t, w)["message"])

	c, w = jsonContext(http.MethodPost, "/api/savePoints", `{"wallet":"alice","nonce":"tok"}`)
	h.LegacySavePoints(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "Invalid or already used nonce", resp["message"])
	assert.Equal(t, "invalid_or_used_nonce", resp["reason"])
}

func TestLegacyGenerateNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAwards := mocks.NewMockAwardService(ctrl)
	h := NewRewardHandler(mockAwards)
	mockAwards.EXPECT().IssueNonce(gomock.Any(), "bob", gomock.Any()).Return("abcd", nil)

	c, w := jsonContext(http.MethodPost, "/api/generateNonce", `{"wallet":"bob"}`)
	h.LegacyGenerateNonce(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abcd", decode(t, w)["nonce"])
}

// --- Points Handler Tests ---

func TestListTop_ParsesLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockPointsLedger(ctrl)
	h := NewPointsHandler(mockLedger)

	mockLedger.EXPECT().GetTop(gomock.Any(), 3).Return([]domain.PointsRecord{
		{Identifier: "a", Points: 9},
		{Identifier: "b", Points: 5},
	}, nil)

	c, w := jsonContext(http.MethodGet, "/api/v1/points/top?limit=3", "")
	h.ListTop(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, "a", data[0].(map[string]interface{})["wallet"])
}

func TestListTop_DefaultAndBadLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockPointsLedger(ctrl)
	h := NewPointsHandler(mockLedger)

	mockLedger.EXPECT().GetTop(gomock.Any(), 0).Return(nil, nil)

	c, w := jsonContext(http.MethodGet, "/api/v1/points/top", "")
	h.ListTop(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["data"])

	c, w = jsonContext(http.MethodGet, "/api/v1/points/top?limit=ten", "")
	h.ListTop(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLegacyTop10_BareArray(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockPointsLedger(ctrl)
	h := NewPointsHandler(mockLedger)

	mockLedger.EXPECT().GetTop(gomock.Any(), 10).Return([]domain.PointsRecord{{Identifier: "a", Points: 1}}, nil)

	c, w := jsonContext(http.MethodGet, "/api/top10", "")
	h.LegacyTop10(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"wallet":"a","points":1}]`, w.Body.String())
}

func TestLegacyGetPoints_StorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockPointsLedger(ctrl)
	h := NewPointsHandler(mockLedger)

	mockLedger.EXPECT().GetAll(gomock.Any()).Return(nil, apperror.ErrStorage(errors.New("db down")))

	c, w := jsonContext(http.MethodGet, "/api/getPoints", "")
	h.LegacyGetPoints(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

// --- Admin Handler Tests ---

func TestListReconciliations(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRecons := mocks.NewMockReconciliationService(ctrl)
	h := NewAdminHandler(mockRecons)

	resolvedAt := time.Now()
	mockRecons.EXPECT().ListPending(gomock.Any(), 0).Return([]domain.Reconciliation{
		{ID: uuid.New(), Identifier: "alice", Amount: 1000000, Status: domain.ReconciliationPending, CreatedAt: time.Now()},
		{ID: uuid.New(), Identifier: "bob", Amount: 1000000, Status: domain.ReconciliationResolved, ResolvedAt: &resolvedAt},
	}, nil)

	c, w := jsonContext(http.MethodGet, "/api/v1/admin/reconciliations", "")
	h.ListReconciliations(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, "PENDING", data[0].(map[string]interface{})["status"])
	assert.NotNil(t, data[1].(map[string]interface{})["resolved_at"])
}

func TestListReconciliations_Limit(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRecons := mocks.NewMockReconciliationService(ctrl)
	h := NewAdminHandler(mockRecons)

	mockRecons.EXPECT().ListPending(gomock.Any(), 25).Return(nil, nil)

	c, w := jsonContext(http.MethodGet, "/api/v1/admin/reconciliations?limit=25", "")
	h.ListReconciliations(c)
	assert.Equal(t, http.StatusOK, w.Code)

	// ListPending must not be called for a malformed limit.
	c, w = jsonContext(http.MethodGet, "/api/v1/admin/reconciliations?limit=lots", "")
	h.ListReconciliations(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_002", decode(t, w)["error_code"])
}

func TestResolve_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRecons := mocks.NewMockReconciliationService(ctrl)
	h := NewAdminHandler(mockRecons)

	id := uuid.New()
	mockRecons.EXPECT().Resolve(gomock.Any(), id, "ops").Return(&domain.Award{
		ID: uuid.New(), Identifier: "alice", Amount: 1000000, TotalAfter: 1000000,
	}, nil)

	c, w := jsonContext(http.MethodPost, "/", "")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	c.Set(middleware.CtxAdminSubject, "ops")
	h.Resolve(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", c.GetString(middleware.CtxIdentifier))
	assert.Equal(t, id.String(), c.GetString(middleware.CtxResourceID))
}

func TestResolve_BadIDAndConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRecons := mocks.NewMockReconciliationService(ctrl)
	h := NewAdminHandler(mockRecons)

	c, w := jsonContext(http.MethodPost, "/", "")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	h.Resolve(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockRecons.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, apperror.ErrReconciliationResolved())
	c, w = jsonContext(http.MethodPost, "/", "")
	c.Params = gin.Params{{Key: "id", Value: uuid.NewString()}}
	h.Resolve(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Health Check Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string              { return s.name }

func TestHealthCheck(t *testing.T) {
	c, w := jsonContext(http.MethodGet, "/health", "")
	HealthCheck(stubChecker{name: "memory"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	c, w := jsonContext(http.MethodGet, "/health", "")
	HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis", err: errors.New("refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	assert.Equal(t, "unhealthy", deps["redis"].(map[string]interface{})["status"])
}
