// Package models - Identity and signal records.
// This file defines the pseudonymous caller identity and the two append-only
// event kinds the gates read and write.
//
// Record Lifecycle:
// - Events are created once and never mutated
// - Retention and deletion belong to an external process
// - Raw origin and fingerprint values never appear here, only salted digests
package models

import (
	"time"

	"github.com/google/uuid"
)

// Gated action names.
const (
	ActionGenerateNewPlan        = "generateNewPlan"
	ActionGenerateChapterOutline = "generateChapterOutline"
	ActionGenerateChapterScript  = "generateChapterScript"
	ActionSynthesizeSpeech       = "synthesizeSpeech"
)

// Dimension names which identity hash a signal lookup keys on. The value is
// the column (or key segment) the hash is stored under.
type Dimension string

const (
	DimensionOrigin Dimension = "ip_hash"
	DimensionClient Dimension = "fingerprint_hash"
)

// Identity is the pair of pseudonymous hashes derived for one request.
// An empty string means the corresponding raw value was absent.
type Identity struct {
	OriginHash string `json:"originHash,omitempty"`
	ClientHash string `json:"clientHash,omitempty"`
}

// Empty reports whether the request carried nothing to classify or meter.
func (id Identity) Empty() bool {
	return id.OriginHash == "" && id.ClientHash == ""
}

// Hash returns the hash for the given dimension.
func (id Identity) Hash(dim Dimension) string {
	switch dim {
	case DimensionOrigin:
		return id.OriginHash
	case DimensionClient:
		return id.ClientHash
	default:
		return ""
	}
}

// Dimensions returns the dimensions with a present hash, origin first.
func (id Identity) Dimensions() []Dimension {
	dims := make([]Dimension, 0, 2)
	if id.OriginHash != "" {
		dims = append(dims, DimensionOrigin)
	}
	if id.ClientHash != "" {
		dims = append(dims, DimensionClient)
	}
	return dims
}

// RiskLabel is the classification attached to an abuse event.
type RiskLabel string

const (
	RiskNone       RiskLabel = ""
	RiskSuspicious RiskLabel = "suspicious"
	RiskAbusive    RiskLabel = "abusive"
)

// AbuseEvent is written by the external classifier and only read by the gates.
type AbuseEvent struct {
	ID         string    `json:"id"`
	OriginHash string    `json:"originHash,omitempty"`
	ClientHash string    `json:"clientHash,omitempty"`
	RiskLabel  RiskLabel `json:"riskLabel,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewAbuseEvent stamps a classification for id with a fresh ID.
func NewAbuseEvent(id Identity, label RiskLabel, at time.Time) *AbuseEvent {
	return &AbuseEvent{
		ID:         uuid.NewString(),
		OriginHash: id.OriginHash,
		ClientHash: id.ClientHash,
		RiskLabel:  label,
		CreatedAt:  at.UTC(),
	}
}

// Identity returns the hashes the event was recorded against.
func (e *AbuseEvent) Identity() Identity {
	return Identity{OriginHash: e.OriginHash, ClientHash: e.ClientHash}
}

// UsageEvent records one allowed and served request.
type UsageEvent struct {
	ID         string    `json:"id"`
	OriginHash string    `json:"originHash,omitempty"`
	ClientHash string    `json:"clientHash,omitempty"`
	Action     string    `json:"action"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewUsageEvent stamps a served request for id and action with a fresh ID.
func NewUsageEvent(id Identity, action string, at time.Time) *UsageEvent {
	return &UsageEvent{
		ID:         uuid.NewString(),
		OriginHash: id.OriginHash,
		ClientHash: id.ClientHash,
		Action:     action,
		CreatedAt:  at.UTC(),
	}
}

// Identity returns the hashes the event was recorded against.
func (e *UsageEvent) Identity() Identity {
	return Identity{OriginHash: e.OriginHash, ClientHash: e.ClientHash}
}

// UsageWindow is the result of counting one dimension's usage events for an
// action inside a trailing window. Oldest is zero when Count is zero.
type UsageWindow struct {
	Count  int
	Oldest time.Time
}
