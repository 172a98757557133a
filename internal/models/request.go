// Package models - API request types and input validation.
// This file defines the incoming request bodies with explicit optional fields
// and defaults, so handlers hand the gates a well-typed identity and action.
//
// Validation Philosophy:
// - Normalize first (trim, apply defaults), then validate
// - Missing required fields map to the "missing_fields" message
// - Optional fields are pointers so "absent" and "zero" stay distinguishable
package models

import (
	"errors"
	"regexp"
	"strings"
)

// Speech synthesis defaults.
const (
	DefaultVoice        = "ko-KR-Standard-A"
	DefaultLanguageCode = "ko-KR"
	DefaultSpeakingRate = 1.0
	DefaultPitch        = 0.0
)

var (
	// ErrMissingFields is returned by Validate when a required field is empty.
	ErrMissingFields = errors.New("missing_fields")

	// ErrInvalidRiskLabel is returned for a label outside the known set.
	ErrInvalidRiskLabel = errors.New("invalid_risk_label")
)

var languageCodePattern = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}`)

// SynthesizeRequest is the body of POST /api/v1/tts.
type SynthesizeRequest struct {
	APIKey       string   `json:"apiKey"`
	Text         string   `json:"text"`
	Voice        string   `json:"voice,omitempty"`
	SpeakingRate *float64 `json:"speakingRate,omitempty"`
	Pitch        *float64 `json:"pitch,omitempty"`
	Fingerprint  string   `json:"fingerprint,omitempty"`
}

// Normalize trims credentials and text and fills in voice parameters.
func (r *SynthesizeRequest) Normalize() {
	r.APIKey = strings.TrimSpace(r.APIKey)
	r.Text = strings.TrimSpace(r.Text)
	r.Fingerprint = strings.TrimSpace(r.Fingerprint)
	if r.Voice == "" {
		r.Voice = DefaultVoice
	}
	if r.SpeakingRate == nil {
		rate := DefaultSpeakingRate
		r.SpeakingRate = &rate
	}
	if r.Pitch == nil {
		pitch := DefaultPitch
		r.Pitch = &pitch
	}
}

func (r *SynthesizeRequest) Validate() error {
	if r.APIKey == "" || r.Text == "" {
		return ErrMissingFields
	}
	return nil
}

// LanguageCode derives the BCP-47 language code from the voice name,
// e.g. "en-US-Wavenet-D" -> "en-US".
func (r *SynthesizeRequest) LanguageCode() string {
	if match := languageCodePattern.FindString(r.Voice); match != "" {
		return match
	}
	return DefaultLanguageCode
}

// GenerateRequest is the body of POST /api/v1/generate/{action}.
type GenerateRequest struct {
	APIKey      string `json:"apiKey"`
	Prompt      string `json:"prompt"`
	Model       string `json:"model,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

func (r *GenerateRequest) Normalize() {
	r.APIKey = strings.TrimSpace(r.APIKey)
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.Model = strings.TrimSpace(r.Model)
	r.Fingerprint = strings.TrimSpace(r.Fingerprint)
}

func (r *GenerateRequest) Validate() error {
	if r.APIKey == "" || r.Prompt == "" {
		return ErrMissingFields
	}
	return nil
}

// AbuseEventRequest is the body of POST /api/v1/admin/abuse-events. The
// classifier submits already-hashed identities.
type AbuseEventRequest struct {
	OriginHash string    `json:"originHash,omitempty"`
	ClientHash string    `json:"clientHash,omitempty"`
	RiskLabel  RiskLabel `json:"riskLabel"`
}

func (r *AbuseEventRequest) Normalize() {
	r.OriginHash = strings.TrimSpace(r.OriginHash)
	r.ClientHash = strings.TrimSpace(r.ClientHash)
	r.RiskLabel = RiskLabel(strings.ToLower(strings.TrimSpace(string(r.RiskLabel))))
}

func (r *AbuseEventRequest) Validate() error {
	if r.OriginHash == "" && r.ClientHash == "" {
		return ErrMissingFields
	}
	switch r.RiskLabel {
	case RiskNone, RiskSuspicious, RiskAbusive:
		return nil
	default:
		return ErrInvalidRiskLabel
	}
}
