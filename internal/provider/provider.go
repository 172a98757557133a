// Package provider calls the upstream services behind the gated endpoints:
// Google Cloud Text-to-Speech for synthesis and Gemini for text generation.
// Each call uses the API key the caller supplied in the request body.
package provider

import (
	"context"
	"fmt"
	"gatekeeper/internal/models"
	"net/http"
)

// SpeechRequest is a normalized synthesis request.
type SpeechRequest struct {
	APIKey       string
	Text         string
	Voice        string
	LanguageCode string
	SpeakingRate float64
	Pitch        float64
}

// Synthesizer turns text into base64-encoded MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (audioContent string, err error)
}

// GenerationRequest is a normalized generation request. An empty Model
// selects the provider default.
type GenerationRequest struct {
	APIKey string
	Model  string
	Prompt string
}

// GenerationResult is the generated text and the model that produced it.
type GenerationResult struct {
	Model string
	Text  string
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

// ProviderError is an upstream failure with the HTTP status and message to
// relay to the caller.
type ProviderError struct {
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error %d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("provider error %d %s", e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// transportError wraps a failure to reach the upstream at all.
func transportError(err error) *ProviderError {
	return &ProviderError{Status: http.StatusInternalServerError, Message: models.MessageServerError, Err: err}
}
