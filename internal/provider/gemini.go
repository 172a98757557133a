package provider

import (
	"context"
	"errors"
	"fmt"
	"gatekeeper/internal/models"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Gemini generates text through the Gemini API. A client is built per call
// because the API key belongs to the caller.
type Gemini struct {
	defaultModel string
	baseURL      string
	userAgent    string
	httpClient   *http.Client
}

// GeminiOption configures a Gemini generator.
type GeminiOption func(*Gemini)

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) GeminiOption {
	return func(g *Gemini) {
		g.baseURL = baseURL
	}
}

// NewGemini builds a generator that uses defaultModel when a request names none.
func NewGemini(defaultModel string, timeout time.Duration, userAgent string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		defaultModel: defaultModel,
		userAgent:    userAgent,
		httpClient:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gemini) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	model := req.Model
	if model == "" {
		model = g.defaultModel
	}

	httpOptions := genai.HTTPOptions{BaseURL: g.baseURL}
	if g.userAgent != "" {
		httpOptions.Headers = http.Header{"User-Agent": []string{g.userAgent}}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      req.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  g.httpClient,
		HTTPOptions: httpOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), nil)
	if err != nil {
		return nil, mapGenaiError(err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, &ProviderError{Status: http.StatusBadGateway, Message: models.MessageGenerationFailed}
	}

	return &GenerationResult{Model: model, Text: text}, nil
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// mapGenaiError relays API errors with their status; anything else is a
// transport failure.
func mapGenaiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErrorToProvider(apiErr, err)
	}
	return transportError(err)
}

func apiErrorToProvider(apiErr genai.APIError, err error) *ProviderError {
	status := apiErr.Code
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	message := apiErr.Message
	if message == "" {
		message = models.MessageGenerationFailed
	}
	return &ProviderError{Status: status, Message: message, Err: err}
}
