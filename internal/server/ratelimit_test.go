package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move the limiter through time.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newLimiterAt(start time.Time, perMinute, perHour, perDay int, bytesPerDay int64) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: start}
	rl := NewRateLimiter(perMinute, perHour, perDay, bytesPerDay)
	rl.now = clock.now
	return rl, clock
}

var morning = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func TestRateLimiter_PerMinute(t *testing.T) {
	rl, clock := newLimiterAt(morning, 3, 0, 0, 0)

	for range 3 {
		require.NoError(t, rl.Allow("a", 0))
	}
	clock.advance(20 * time.Second)
	err := rl.Allow("a", 0)
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "minute", rle.Window)
	assert.Equal(t, 3, rle.Limit)
	assert.Equal(t, 40*time.Second, rle.RetryAfter)

	// rejected requests are not counted
	assert.Equal(t, int64(3), rl.Usage("a").RequestsThisMinute)

	clock.advance(40 * time.Second)
	assert.NoError(t, rl.Allow("a", 0))
}

func TestRateLimiter_PerHour(t *testing.T) {
	rl, clock := newLimiterAt(morning, 0, 2, 0, 0)

	require.NoError(t, rl.Allow("a", 0))
	clock.advance(10 * time.Minute)
	require.NoError(t, rl.Allow("a", 0))
	clock.advance(10 * time.Minute)

	var rle *RateLimitError
	require.ErrorAs(t, rl.Allow("a", 0), &rle)
	assert.Equal(t, "hour", rle.Window)
	assert.Equal(t, 40*time.Minute, rle.RetryAfter)

	clock.advance(40 * time.Minute)
	assert.NoError(t, rl.Allow("a", 0))
}

func TestRateLimiter_DailyQuotas(t *testing.T) {
	rl, clock := newLimiterAt(morning, 0, 0, 2, 0)
	require.NoError(t, rl.Allow("a", 0))
	require.NoError(t, rl.Allow("a", 0))

	var qe *QuotaExceededError
	require.ErrorAs(t, rl.Allow("a", 0), &qe)
	assert.Equal(t, "requests", qe.Kind)
	assert.Equal(t, int64(2), qe.Used)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), qe.Resets)

	clock.advance(15 * time.Hour)
	assert.NoError(t, rl.Allow("a", 0))

	rl, _ = newLimiterAt(morning, 0, 0, 0, 100)
	require.NoError(t, rl.Allow("b", 60))
	require.ErrorAs(t, rl.Allow("b", 50), &qe)
	assert.Equal(t, "data", qe.Kind)
	assert.Equal(t, int64(60), qe.Used)
	assert.NoError(t, rl.Allow("b", 40))
	assert.Equal(t, int64(100), rl.Usage("b").BytesToday)
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl, _ := newLimiterAt(morning, 1, 0, 0, 0)
	require.NoError(t, rl.Allow("a", 0))
	require.Error(t, rl.Allow("a", 0))
	assert.NoError(t, rl.Allow("b", 0))
	assert.Equal(t, Usage{}, rl.Usage("nobody"))
}

func TestRateLimiter_Unlimited(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0, 0)
	for range 1000 {
		require.NoError(t, rl.Allow("a", 1<<20))
	}
	assert.Equal(t, int64(1000), rl.Usage("a").RequestsToday)
}

func TestRateLimitErrorMessages(t *testing.T) {
	assert.Contains(t, (&RateLimitError{Window: "minute", Limit: 5}).Error(), "minute")
	assert.Contains(t, (&QuotaExceededError{Kind: "data", Limit: 5, Used: 6}).Error(), "used: 6")
}
