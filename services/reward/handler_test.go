package reward

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"bakimla-reward/pkg/errutil"
	"bakimla-reward/pkg/middleware"
)

type resolverFunc func(ctx context.Context, userID, storeID string) (middleware.Tenant, error)

func (f resolverFunc) ResolveTenant(ctx context.Context, userID, storeID string) (middleware.Tenant, error) {
	return f(ctx, userID, storeID)
}

// ownerResolver treats the user as the owner of a company named after them.
var ownerResolver = resolverFunc(func(ctx context.Context, userID, storeID string) (middleware.Tenant, error) {
	if userID == "" {
		return middleware.Tenant{}, errutil.BadRequest("missing company context", nil)
	}
	return middleware.Tenant{CompanyID: "company-" + userID, StoreID: storeID, UserID: userID}, nil
})

func newTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Error())
	registerRoutes(routeParams{Router: r, Resolver: ownerResolver, Handler: NewHandler(f.svc)})
	return r
}

func serve(r *gin.Engine, method, path, userID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
	}
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	code, _ := out["error"]["code"].(string)
	return code
}

func TestHandler_GetStats(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 3)
	r := newTestRouter(f)

	w := serve(r, http.MethodGet, "/v1/rewards/stats", "1")
	require.Equal(t, http.StatusOK, w.Code)

	var got Reward
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "company-1", got.CompanyID)
	require.Equal(t, int64(3), got.CompletedAppointmentCount)
	require.True(t, got.Balance.Equal(decimal.NewFromInt(3)))
}

func TestHandler_MissingCompanyContext(t *testing.T) {
	r := newTestRouter(newFixture(t))

	w := serve(r, http.MethodGet, "/v1/rewards/stats", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "bad_request", errorCode(t, w))
}

func TestHandler_RequestWithdrawal(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	f.earn(t, "company-1", 49)
	w := serve(r, http.MethodPost, "/v1/rewards/withdrawals", "1")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "unprocessable_entity", errorCode(t, w))

	f.earn(t, "company-1", 1)
	w = serve(r, http.MethodPost, "/v1/rewards/withdrawals", "1")
	require.Equal(t, http.StatusCreated, w.Code)

	var got WithdrawalResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, StatusPending, got.Transaction.Status)
	require.True(t, got.Transaction.Amount.Equal(decimal.NewFromInt(50)))
	require.True(t, got.Reward.Balance.IsZero())

	w = serve(r, http.MethodPost, "/v1/rewards/withdrawals/"+got.Transaction.ID+"/complete", "1")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodPost, "/v1/rewards/withdrawals/"+got.Transaction.ID+"/complete", "1")
	require.Equal(t, http.StatusConflict, w.Code)

	w = serve(r, http.MethodPost, "/v1/rewards/withdrawals/"+got.Transaction.ID+"/complete", "2")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListTransactions(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 3)
	r := newTestRouter(f)

	w := serve(r, http.MethodGet, "/v1/rewards/transactions?type=earn&limit=2", "1")
	require.Equal(t, http.StatusOK, w.Code)

	var got listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Data, 2)
	require.True(t, got.PageInfo.HasMore)

	w = serve(r, http.MethodGet, "/v1/rewards/transactions?type=refund", "1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "validation_failed", errorCode(t, w))

	w = serve(r, http.MethodGet, "/v1/rewards/transactions?cursor=garbage", "1")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "validation_failed", errorCode(t, w))

	w = serve(r, http.MethodGet, "/v1/rewards/transactions", "9")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":[],"pageInfo":{"next_cursor":"","previous_cursor":"","has_more":false}}`, w.Body.String())
}

func TestHandler_VerifyChain(t *testing.T) {
	f := newFixture(t)
	f.earn(t, "company-1", 2)
	r := newTestRouter(f)

	w := serve(r, http.MethodGet, "/v1/rewards/verify", "1")
	require.Equal(t, http.StatusOK, w.Code)

	var got ChainVerification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.True(t, got.Valid)
	require.Equal(t, 2, got.Checked)
}
