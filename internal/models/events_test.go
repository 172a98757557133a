package models

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	assert.True(t, Identity{}.Empty())
	assert.Empty(t, Identity{}.Dimensions())

	id := Identity{OriginHash: "o", ClientHash: "c"}
	assert.False(t, id.Empty())
	assert.Equal(t, []Dimension{DimensionOrigin, DimensionClient}, id.Dimensions())
	assert.Equal(t, "o", id.Hash(DimensionOrigin))
	assert.Equal(t, "c", id.Hash(DimensionClient))
	assert.Empty(t, id.Hash(Dimension("other")))

	clientOnly := Identity{ClientHash: "c"}
	assert.Equal(t, []Dimension{DimensionClient}, clientOnly.Dimensions())
}

func TestNewEvents(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("KST", 9*3600))
	id := Identity{OriginHash: "o", ClientHash: "c"}

	usage := NewUsageEvent(id, ActionGenerateNewPlan, at)
	assert.NotEmpty(t, usage.ID)
	assert.Equal(t, ActionGenerateNewPlan, usage.Action)
	assert.Equal(t, time.UTC, usage.CreatedAt.Location())
	assert.True(t, usage.CreatedAt.Equal(at))
	assert.Equal(t, id, usage.Identity())

	abuse := NewAbuseEvent(id, RiskSuspicious, at)
	assert.NotEmpty(t, abuse.ID)
	assert.NotEqual(t, usage.ID, abuse.ID)
	assert.Equal(t, RiskSuspicious, abuse.RiskLabel)
	assert.Equal(t, id, abuse.Identity())
}

func TestDecision(t *testing.T) {
	assert.True(t, Allow().Allowed)
	assert.Zero(t, Allow().RetryAfterSeconds())

	d := Deny(http.StatusForbidden, ReasonAbuseBlocked)
	assert.False(t, d.Allowed)
	assert.Equal(t, http.StatusForbidden, d.Status)
	assert.Equal(t, ReasonAbuseBlocked, d.Reason)

	u := DenyUsage(1500 * time.Millisecond)
	assert.Equal(t, http.StatusTooManyRequests, u.Status)
	assert.Equal(t, ReasonUsageLimit, u.Reason)
	assert.Equal(t, 2, u.RetryAfterSeconds(), "partial seconds round up")
}
