package models

import (
	"math"
	"net/http"
	"time"
)

// Denial reasons returned to callers as the JSON "message" field.
const (
	ReasonAbuseBlocked     = "abuse_blocked"
	ReasonAbuseLimited     = "abuse_limited"
	ReasonUsageLimit       = "usage_limit"
	ReasonGuardUnavailable = "guard_unavailable"
)

// Decision is the outcome of a gate evaluation. Status, Reason and RetryAfter
// are only meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	Status     int
	Reason     string
	RetryAfter time.Duration
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with the given HTTP status and reason.
func Deny(status int, reason string) Decision {
	return Decision{Status: status, Reason: reason}
}

// DenyUsage returns the usage-limit denial with a retry hint.
func DenyUsage(retryAfter time.Duration) Decision {
	return Decision{Status: http.StatusTooManyRequests, Reason: ReasonUsageLimit, RetryAfter: retryAfter}
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, or 0 when
// no retry hint is attached.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}
