package api

import (
	"context"
	"encoding/json"
	"errors"
	"gatekeeper/internal/guard"
	"gatekeeper/internal/identity"
	"gatekeeper/internal/models"
	"gatekeeper/internal/provider"
	"gatekeeper/internal/signals"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Handlers contains the HTTP handlers for the gatekeeper API
type Handlers struct {
	guard       *guard.Guard
	resolver    *identity.Resolver
	storage     signals.Store
	synthesizer provider.Synthesizer
	generator   provider.Generator
	adminKeys   *models.AdminKeySet
	actions     map[string]bool
	version     string
	logger      *slog.Logger
	now         func() time.Time
}

// HandlerOption configures optional Handlers dependencies.
type HandlerOption func(*Handlers)

// WithStorage sets the signal store used by health checks and abuse event
// ingestion.
func WithStorage(store signals.Store) HandlerOption {
	return func(h *Handlers) {
		h.storage = store
	}
}

func WithSynthesizer(s provider.Synthesizer) HandlerOption {
	return func(h *Handlers) {
		h.synthesizer = s
	}
}

func WithGenerator(g provider.Generator) HandlerOption {
	return func(h *Handlers) {
		h.generator = g
	}
}

// WithAdminKeys sets the bearer tokens accepted by the admin endpoints.
func WithAdminKeys(keys *models.AdminKeySet) HandlerOption {
	return func(h *Handlers) {
		h.adminKeys = keys
	}
}

// WithGenerationActions sets which actions /generate/{action} serves.
func WithGenerationActions(actions []string) HandlerOption {
	return func(h *Handlers) {
		h.actions = make(map[string]bool, len(actions))
		for _, a := range actions {
			if a != "" && a != models.ActionSynthesizeSpeech {
				h.actions[a] = true
			}
		}
	}
}

func WithVersion(version string) HandlerOption {
	return func(h *Handlers) {
		h.version = version
	}
}

func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handlers) {
		h.logger = logger
	}
}

// NewHandlers creates a new handlers instance. The guard and resolver gate
// every provider-backed endpoint.
func NewHandlers(g *guard.Guard, resolver *identity.Resolver, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		guard:    g,
		resolver: resolver,
		logger:   slog.Default(),
		now:      time.Now,
	}
	WithGenerationActions([]string{
		models.ActionGenerateNewPlan,
		models.ActionGenerateChapterOutline,
		models.ActionGenerateChapterScript,
	})(h)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	response := &models.HealthCheckResponse{
		Status:     models.StatusHealthy,
		Timestamp:  now,
		Version:    h.version,
		Components: make(map[string]models.ComponentHealth),
	}

	status := http.StatusOK
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		component := models.ComponentHealth{Status: models.StatusHealthy, Timestamp: now}
		if err := h.storage.Ping(ctx); err != nil {
			h.logger.Warn("Signal store health check failed", "error", err)
			component.Status = models.StatusUnhealthy
			component.Message = "signal store unreachable"
			response.Status = models.StatusUnhealthy
			status = http.StatusServiceUnavailable
		}
		response.Components["storage"] = component
	}

	h.writeJSONResponse(w, status, response)
}

// admit runs the gates for action and writes the denial when one of them
// refuses. It reports whether the request may proceed.
func (h *Handlers) admit(w http.ResponseWriter, r *http.Request, id models.Identity, action string) bool {
	decision := h.guard.Check(r.Context(), id, action)
	if decision.Allowed {
		return true
	}
	if seconds := decision.RetryAfterSeconds(); seconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	h.writeErrorResponse(w, decision.Status, decision.Reason)
	return false
}

// decodeBody reads a bounded JSON body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// writeProviderError relays an upstream failure. Transport details are logged
// and replaced with a generic message.
func (h *Handlers) writeProviderError(w http.ResponseWriter, action string, err error) {
	var perr *provider.ProviderError
	if errors.As(err, &perr) {
		if perr.Message == models.MessageServerError {
			h.logger.Error("Provider request failed", "action", action, "error", err)
		} else {
			h.logger.Warn("Provider rejected request", "action", action, "status", perr.Status, "message", perr.Message)
		}
		h.writeErrorResponse(w, perr.Status, perr.Message)
		return
	}
	h.logger.Error("Provider request failed", "action", action, "error", err)
	h.writeErrorResponse(w, http.StatusInternalServerError, models.MessageServerError)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing else can be sent.
		h.logger.Error("Error encoding JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message))
}
