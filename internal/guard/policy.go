package guard

import (
	"fmt"
	"gatekeeper/internal/models"
	"net/http"
	"strings"
)

// FailurePolicy decides what a gate returns when the signal store cannot
// answer.
type FailurePolicy string

const (
	FailOpen   FailurePolicy = models.FailurePolicyOpen
	FailClosed FailurePolicy = models.FailurePolicyClosed
)

// ParseFailurePolicy maps a configured value to a FailurePolicy. An empty
// value selects FailOpen.
func ParseFailurePolicy(value string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", FailOpen:
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", value)
	}
}

// Decide returns the decision to use in place of a failed evaluation.
func (p FailurePolicy) Decide() models.Decision {
	if p == FailClosed {
		return models.Deny(http.StatusServiceUnavailable, models.ReasonGuardUnavailable)
	}
	return models.Allow()
}
