package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff_GrowsAndCaps(t *testing.T) {
	base := 10 * time.Second
	max := 10 * time.Minute
	backoff := ExponentialBackoff(base, max)

	prevFloor := time.Duration(0)
	for attempt := 1; attempt <= 6; attempt++ {
		floor := base << (attempt - 1)
		if floor > max {
			floor = max
		}
		d := backoff(attempt)
		assert.GreaterOrEqual(t, d, floor, "attempt %d", attempt)
		assert.LessOrEqual(t, d, max, "attempt %d", attempt)
		assert.GreaterOrEqual(t, floor, prevFloor)
		prevFloor = floor
	}

	// Way past the doubling range it is pinned to the cap.
	assert.Equal(t, max, backoff(50))
	// Degenerate attempt counts behave like the first attempt.
	d := backoff(0)
	assert.GreaterOrEqual(t, d, base)
	assert.LessOrEqual(t, d, base+base/4)
}

func TestFixedBackoff(t *testing.T) {
	backoff := FixedBackoff(30 * time.Second)
	for _, attempt := range []int{1, 2, 10} {
		assert.Equal(t, 30*time.Second, backoff(attempt))
	}
}

func TestPolicyRegistry(t *testing.T) {
	reg := NewPolicyRegistry()

	// Unregistered types get the default.
	def := reg.For("SEND_EMAIL")
	assert.Equal(t, 5, def.MaxAttempts)

	reg.Register("SEND_EMAIL", RetryPolicy{MaxAttempts: 2, Backoff: FixedBackoff(time.Second)})
	got := reg.For("SEND_EMAIL")
	assert.Equal(t, 2, got.MaxAttempts)
	assert.Equal(t, time.Second, got.Backoff(3))

	reg.SetDefault(RetryPolicy{MaxAttempts: 1, Backoff: FixedBackoff(time.Minute)})
	assert.Equal(t, 1, reg.For("SEND_NOTIFICATION").MaxAttempts)
}
