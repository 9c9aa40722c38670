package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderUserID  = "X-User-ID"
	HeaderStoreID = "X-Store-ID"
)

// Tenant is the company context of a request. CompanyID is the owner of the active store.
type Tenant struct {
	CompanyID string `json:"companyId"`
	StoreID   string `json:"storeId"`
	UserID    string `json:"userId"`
}

type TenantResolver interface {
	ResolveTenant(ctx context.Context, userID, activeStoreID string) (Tenant, error)
}

type tenantKey struct{}

var TenantContextKey = tenantKey{}

func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, TenantContextKey, t)
}

func TenantFromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(TenantContextKey).(Tenant)
	return t, ok
}

// RequireTenant resolves the tenant from the identity headers once per request.
// Failures abort the request through the Error middleware.
func RequireTenant(resolver TenantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		storeID := strings.TrimSpace(c.GetHeader(HeaderStoreID))

		t, err := resolver.ResolveTenant(c.Request.Context(), userID, storeID)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithTenant(c.Request.Context(), t))
		c.Next()
	}
}
