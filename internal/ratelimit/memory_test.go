package ratelimit

import (
	"fmt"
	"gatekeeper/internal/models"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, perMinute, burst int) (*MemoryLimiter, *time.Time) {
	t.Helper()
	limiter := NewMemoryLimiter(perMinute, burst, 5*time.Minute)
	t.Cleanup(limiter.Close)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestNewFromConfig(t *testing.T) {
	limiter, err := NewFromConfig(models.RateLimitConfig{RequestsPerMinute: 60, BurstSize: 5, CleanupInterval: time.Minute})
	require.NoError(t, err)
	limiter.Close()

	_, err = NewFromConfig(models.RateLimitConfig{RequestsPerMinute: 0, BurstSize: 5, CleanupInterval: time.Minute})
	assert.Error(t, err)
}

func TestMemoryLimiter_Allow_UnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 60, 10)

	allowed, info := limiter.Allow("192.168.1.1")
	assert.True(t, allowed)
	assert.Equal(t, 60, info.Limit)
	assert.Equal(t, 9, info.Remaining)
	assert.Equal(t, time.Duration(0), info.RetryAfter)
}

func TestMemoryLimiter_Allow_ExceedsBurst(t *testing.T) {
	limiter, now := newTestLimiter(t, 60, 3)
	key := "192.168.1.1"

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow(key)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, info := limiter.Allow(key)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, time.Second, info.RetryAfter, "one token per second at 60/min")
	assert.Equal(t, now.Add(3*time.Second), info.ResetAt)

	// Cancelled reservations do not consume future tokens.
	*now = now.Add(time.Second)
	allowed, _ = limiter.Allow(key)
	assert.True(t, allowed)
}

func TestMemoryLimiter_Allow_DifferentKeys(t *testing.T) {
	limiter, _ := newTestLimiter(t, 60, 2)

	for i := 0; i < 2; i++ {
		limiter.Allow("key1")
	}
	allowed1, _ := limiter.Allow("key1")
	assert.False(t, allowed1, "key1 should be denied")

	allowed2, _ := limiter.Allow("key2")
	assert.True(t, allowed2, "key2 should be allowed")
	assert.Equal(t, 2, limiter.Len())
}

func TestMemoryLimiter_EvictStale(t *testing.T) {
	limiter, now := newTestLimiter(t, 60, 2)

	limiter.Allow("old")
	*now = now.Add(11 * time.Minute)
	limiter.Allow("fresh")

	limiter.evictStale()
	assert.Equal(t, 1, limiter.Len())
}

func TestMemoryLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewMemoryLimiter(1000, 100, 5*time.Minute)
	defer limiter.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				limiter.Allow(fmt.Sprintf("key-%d", i%5))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, limiter.Len())
}

func TestMemoryLimiter_CloseIdempotent(t *testing.T) {
	limiter := NewMemoryLimiter(60, 1, time.Millisecond)
	limiter.Close()
	limiter.Close()
}
