// Package ratelimit is the coarse per-address flood limiter that sits in
// front of the gates. It uses a token bucket per client address and sets the
// X-RateLimit-* response headers. Quotas on gated actions are the usage
// gate's job; this only absorbs bursts.
package ratelimit

import "time"

// Limiter defines the rate limiting contract. Implementations must be safe for
// concurrent use.
type Limiter interface {
	// Allow reports whether a request identified by key may proceed, plus
	// the state used for response headers.
	Allow(key string) (allowed bool, info Info)

	// Close stops background goroutines and releases resources.
	Close()
}

// Info contains rate limit state for populating response headers.
type Info struct {
	Limit      int           // Requests per minute
	Remaining  int           // Whole tokens left in the bucket
	ResetAt    time.Time     // When the bucket will be full again
	RetryAfter time.Duration // Wait until the next token; set only when denied
}
