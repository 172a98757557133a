package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"gatekeeper/internal/models"
	"io"
	"net/http"
	"time"
)

// maxTTSResponse caps the upstream body; synthesized MP3 for the longest
// accepted input stays well below it.
const maxTTSResponse = 32 << 20

// GoogleTTS calls the Cloud Text-to-Speech REST endpoint.
type GoogleTTS struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// NewGoogleTTS builds a client for endpoint (the full text:synthesize URL).
func NewGoogleTTS(endpoint string, timeout time.Duration, userAgent string) *GoogleTTS {
	return &GoogleTTS{
		endpoint:   endpoint,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type ttsRequest struct {
	Input       ttsInput       `json:"input"`
	Voice       ttsVoice       `json:"voice"`
	AudioConfig ttsAudioConfig `json:"audioConfig"`
}

type ttsInput struct {
	Text string `json:"text"`
}

type ttsVoice struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
}

type ttsAudioConfig struct {
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float64 `json:"speakingRate"`
	Pitch         float64 `json:"pitch"`
}

type ttsResponse struct {
	AudioContent string `json:"audioContent"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Synthesize requests MP3 audio. Upstream failures come back as *ProviderError.
func (g *GoogleTTS) Synthesize(ctx context.Context, req SpeechRequest) (string, error) {
	body, err := json.Marshal(ttsRequest{
		Input: ttsInput{Text: req.Text},
		Voice: ttsVoice{LanguageCode: req.LanguageCode, Name: req.Voice},
		AudioConfig: ttsAudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  req.SpeakingRate,
			Pitch:         req.Pitch,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode tts request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build tts request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", req.APIKey)
	if g.userAgent != "" {
		httpReq.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTTSResponse))
	if err != nil {
		return "", transportError(err)
	}

	var payload ttsResponse
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := models.MessageTTSFailed
		if decodeErr == nil && payload.Error != nil && payload.Error.Message != "" {
			message = payload.Error.Message
		}
		return "", &ProviderError{Status: resp.StatusCode, Message: message}
	}

	if decodeErr != nil || payload.AudioContent == "" {
		return "", &ProviderError{Status: http.StatusInternalServerError, Message: models.MessageMissingAudio, Err: decodeErr}
	}

	return payload.AudioContent, nil
}
