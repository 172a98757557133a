// Package models - API response types.
// This file defines the outgoing response bodies.
//
// Response Design Principles:
// - Every failure carries a single machine-readable "message" string
// - Success bodies contain only what the caller needs
// - RFC3339 timestamps for health and admin responses
package models

import (
	"time"
)

// Messages written by handlers in addition to gate denial reasons.
const (
	MessageMethodNotAllowed = "method_not_allowed"
	MessageInvalidJSON      = "invalid_json"
	MessageMissingFields    = "missing_fields"
	MessageInvalidRiskLabel = "invalid_risk_label"
	MessageMissingAudio     = "missing_audio"
	MessageTTSFailed        = "tts_failed"
	MessageGenerationFailed = "generation_failed"
	MessageServerError      = "server_error"
	MessageUnknownAction    = "unknown_action"
	MessageUnauthorized     = "unauthorized"
	MessageNotFound         = "not_found"
	MessageRateLimited      = "rate_limited"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Message: message}
}

type SynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

type GenerateResponse struct {
	Action string `json:"action"`
	Model  string `json:"model"`
	Text   string `json:"text"`
}

type AbuseEventResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)
