package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_IndependentBuckets(t *testing.T) {
	// One request per hour effectively, burst of 1: the second call on the
	// same pair is rejected, a different pair is untouched.
	rl := NewRateLimiter(1.0/3600, 1)

	ok, _, _ := rl.Allow("tenant-a", "user-1")
	assert.True(t, ok)

	ok, retryAfter, _ := rl.Allow("tenant-a", "user-1")
	assert.False(t, ok)
	assert.Positive(t, retryAfter)

	ok, _, _ = rl.Allow("tenant-a", "user-2")
	assert.True(t, ok)
	ok, _, _ = rl.Allow("tenant-b", "user-1")
	assert.True(t, ok)
}

func TestRateLimit_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1.0/3600, 2)

	router := gin.New()
	router.Use(TenantAuth(nil))
	router.Use(RateLimit(rl))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(TenantHeader, "tenant-a")
		req.Header.Set(UserHeader, "user-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := do()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))

	second := do()
	assert.Equal(t, http.StatusOK, second.Code)

	third := do()
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "0", third.Header().Get("X-RateLimit-Remaining"))

	retryAfter := third.Header().Get("Retry-After")
	require.NotEmpty(t, retryAfter)
	assert.NotEqual(t, "0", retryAfter)
}
