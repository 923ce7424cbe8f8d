package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// TenantHeader carries the caller's tenant, resolved upstream by the
	// authentication layer. This core only enforces its presence.
	TenantHeader = "X-Tenant-ID"
	// UserHeader identifies the caller within the tenant; used for
	// rate-limit keying, not for authorization decisions.
	UserHeader = "X-User-ID"

	tenantKey = "tenant_id"
	userKey   = "user_id"
)

// Authorizer decides whether the identified caller may act on the tenant.
// Authentication itself is an external collaborator; the hook exists so the
// surrounding application can plug its permission checks in front of the
// queue and stream endpoints.
type Authorizer func(tenantID, userID string) bool

// TenantAuth rejects requests without a tenant context (401) and requests
// the authorizer vetoes (403). Every route under /v1 runs behind it.
func TenantAuth(authorize Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(TenantHeader)
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing tenant context"})
			return
		}

		userID := c.GetHeader(UserHeader)
		if authorize != nil && !authorize(tenantID, userID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not permitted for tenant"})
			return
		}

		c.Set(tenantKey, tenantID)
		c.Set(userKey, userID)
		c.Next()
	}
}

// TenantID returns the tenant bound to the request by TenantAuth.
func TenantID(c *gin.Context) string {
	return c.GetString(tenantKey)
}

// UserID returns the caller identity bound by TenantAuth; empty when the
// caller did not identify a user (service-to-service calls).
func UserID(c *gin.Context) string {
	return c.GetString(userKey)
}
