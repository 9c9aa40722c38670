package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bakimla-reward/pkg/errutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

type resolverFunc func(ctx context.Context, userID, storeID string) (Tenant, error)

func (f resolverFunc) ResolveTenant(ctx context.Context, userID, storeID string) (Tenant, error) {
	return f(ctx, userID, storeID)
}

func newRouter(resolver TenantResolver) *gin.Engine {
	r := gin.New()
	r.Use(Error())
	r.GET("/me", RequireTenant(resolver), func(c *gin.Context) {
		t, ok := TenantFromContext(c.Request.Context())
		if !ok {
			_ = c.Error(errors.New("tenant missing"))
			return
		}
		c.JSON(http.StatusOK, t)
	})
	return r
}

func decodeError(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out["error"]
}

func TestRequireTenant(t *testing.T) {
	resolver := resolverFunc(func(ctx context.Context, userID, storeID string) (Tenant, error) {
		switch {
		case userID == "":
			return Tenant{}, errutil.BadRequest("missing company context", nil)
		case storeID == "other":
			return Tenant{}, errutil.Forbidden("store access denied", nil)
		}
		return Tenant{CompanyID: "owner-1", StoreID: storeID, UserID: userID}, nil
	})

	t.Run("resolved", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(HeaderUserID, "u-1")
		req.Header.Set(HeaderStoreID, "s-1")
		newRouter(resolver).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var got Tenant
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Equal(t, Tenant{CompanyID: "owner-1", StoreID: "s-1", UserID: "u-1"}, got)
	})

	t.Run("missing user", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(resolver).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "bad_request", decodeError(t, w.Body.Bytes())["code"])
	})

	t.Run("forbidden store", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(HeaderUserID, "u-1")
		req.Header.Set(HeaderStoreID, "other")
		newRouter(resolver).ServeHTTP(w, req)

		require.Equal(t, http.StatusForbidden, w.Code)
		require.Equal(t, "forbidden", decodeError(t, w.Body.Bytes())["code"])
	})
}

func TestError_PlainErrorIsInternal(t *testing.T) {
	r := gin.New()
	r.Use(Error())
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db exploded"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w.Body.Bytes())
	require.Equal(t, "internal", body["code"])
	require.Equal(t, "internal error", body["message"])
}

func TestError_CanceledRequest(t *testing.T) {
	be := toBaseError(context.Canceled)
	require.Equal(t, errutil.StatusClientClosedRequest, be.Code)
}
