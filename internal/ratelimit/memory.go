package ratelimit

import (
	"fmt"
	"gatekeeper/internal/models"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory. Buckets idle
// for two cleanup intervals are evicted by a background goroutine.
type MemoryLimiter struct {
	rate            rate.Limit
	burst           int
	perMinute       int
	cleanupInterval time.Duration
	now             func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	done    chan struct{}
	closed  bool
}

// NewMemoryLimiter starts a limiter refilling requestsPerMinute tokens per
// minute up to burst.
func NewMemoryLimiter(requestsPerMinute, burst int, cleanupInterval time.Duration) *MemoryLimiter {
	m := &MemoryLimiter{
		rate:            rate.Limit(float64(requestsPerMinute) / 60),
		burst:           burst,
		perMinute:       requestsPerMinute,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		buckets:         make(map[string]*bucket),
		done:            make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// NewFromConfig builds a MemoryLimiter from the security settings.
func NewFromConfig(cfg models.RateLimitConfig) (*MemoryLimiter, error) {
	if cfg.RequestsPerMinute <= 0 || cfg.BurstSize <= 0 || cfg.CleanupInterval <= 0 {
		return nil, fmt.Errorf("rate limit requires positive requests per minute, burst and cleanup interval")
	}
	return NewMemoryLimiter(cfg.RequestsPerMinute, cfg.BurstSize, cfg.CleanupInterval), nil
}

func (m *MemoryLimiter) Allow(key string) (bool, Info) {
	now := m.now()

	m.mu.Lock()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.rate, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	m.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	info := Info{
		Limit:     m.perMinute,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetAt:   now,
	}
	if missing := float64(m.burst) - tokens; missing > 0 {
		info.ResetAt = now.Add(time.Duration(missing / float64(m.rate) * float64(time.Second)))
	}

	if !allowed {
		r := b.limiter.ReserveN(now, 1)
		info.RetryAfter = r.DelayFrom(now)
		r.CancelAt(now)
	}

	return allowed, info
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

func (m *MemoryLimiter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
}

func (m *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictStale()
		}
	}
}

func (m *MemoryLimiter) evictStale() {
	cutoff := m.now().Add(-2 * m.cleanupInterval)
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}
