package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(rl *RateLimiter, start time.Time) *time.Time {
	now := start
	rl.now = func() time.Time { return now }
	rl.lastRefillTime = start
	return &now
}

func TestTryAcquireDrainsAndRefills(t *testing.T) {
	rl := NewRateLimiter(2, 5*time.Second)
	now := fixedClock(rl, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, rl.TryAcquire())
	assert.True(t, rl.TryAcquire())
	assert.False(t, rl.TryAcquire())

	*now = now.Add(4 * time.Second)
	assert.False(t, rl.TryAcquire())

	*now = now.Add(time.Second)
	assert.True(t, rl.TryAcquire())

	*now = now.Add(time.Minute)
	assert.Equal(t, 2, rl.Available(), "refill is capped at the burst size")
}

func TestPartialIntervalIsKept(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Second)
	now := fixedClock(rl, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	require.True(t, rl.TryAcquire())
	*now = now.Add(15 * time.Second)
	require.True(t, rl.TryAcquire())

	// 5s of the previous interval already count toward the next token.
	*now = now.Add(5 * time.Second)
	assert.True(t, rl.TryAcquire())
}

func TestWaitHonorsContext(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	assert.Equal(t, 1, rl.Available())
	assert.Equal(t, time.Second, rl.refillRate)
}
