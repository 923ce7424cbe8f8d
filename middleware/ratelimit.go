package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per (tenant, user) pair. The
// health endpoint and the signal stream run behind it; a rejected caller
// gets a retryable 429 with Retry-After guidance rather than a hard error.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	lim, ok := rl.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rl.limit, rl.burst)
		rl.buckets[key] = lim
	}
	return lim
}

// Allow reports whether the pair may proceed and, when it may not, how long
// it should wait before retrying.
func (rl *RateLimiter) Allow(tenantID, userID string) (bool, time.Duration, int) {
	lim := rl.bucket(tenantID + "/" + userID)
	res := lim.Reserve()
	delay := res.Delay()
	if delay > 0 {
		res.Cancel()
		return false, delay, 0
	}
	remaining := int(math.Floor(lim.Tokens()))
	if remaining < 0 {
		remaining = 0
	}
	return true, 0, remaining
}

// RateLimit applies the limiter using the tenant/user bound by TenantAuth.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter, remaining := rl.Allow(TenantID(c), UserID(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		if !ok {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, retry later"})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}
