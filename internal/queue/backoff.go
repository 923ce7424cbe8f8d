package queue

import (
	"math/rand"
	"time"
)

// BackoffFunc maps the attempt count (1-based, as recorded on the job) to
// the delay before the next run.
type BackoffFunc func(attempt int) time.Duration

// RetryPolicy decides how a failing job is rescheduled. Policies are keyed
// by job type; the source system configures this externally, so the
// registry keeps it pluggable rather than a global constant.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// ExponentialBackoff doubles the delay per attempt, caps it at max, and
// adds up to 25% jitter so retry herds spread out.
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				d = max
				break
			}
		}
		jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
		if d+jitter > max {
			return max
		}
		return d + jitter
	}
}

// FixedBackoff retries on a constant cadence.
func FixedBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// PolicyRegistry resolves the retry policy for a job type, falling back to
// a default for unregistered types.
type PolicyRegistry struct {
	policies map[string]RetryPolicy
	fallback RetryPolicy
}

func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{
		policies: make(map[string]RetryPolicy),
		fallback: RetryPolicy{
			MaxAttempts: 5,
			Backoff:     ExponentialBackoff(10*time.Second, 10*time.Minute),
		},
	}
}

func (r *PolicyRegistry) Register(jobType string, p RetryPolicy) {
	r.policies[jobType] = p
}

func (r *PolicyRegistry) SetDefault(p RetryPolicy) {
	r.fallback = p
}

func (r *PolicyRegistry) For(jobType string) RetryPolicy {
	if p, ok := r.policies[jobType]; ok {
		return p
	}
	return r.fallback
}
