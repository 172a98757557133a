package api

import (
	"gatekeeper/internal/models"
	"gatekeeper/internal/provider"
	"net/http"

	"github.com/gorilla/mux"
)

// Generate handles text generation for one of the gated generation actions
// POST /api/v1/generate/{action}
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	action := mux.Vars(r)["action"]
	if !h.actions[action] {
		h.writeErrorResponse(w, http.StatusNotFound, models.MessageUnknownAction)
		return
	}

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, models.MessageMethodNotAllowed)
		return
	}

	var req models.GenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.MessageInvalidJSON)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.MessageMissingFields)
		return
	}

	id := h.resolver.Resolve(r, req.Fingerprint)
	if !h.admit(w, r, id, action) {
		return
	}

	if h.generator == nil {
		h.logger.Error("No text generator configured")
		h.writeErrorResponse(w, http.StatusInternalServerError, models.MessageServerError)
		return
	}

	result, err := h.generator.Generate(r.Context(), provider.GenerationRequest{
		APIKey: req.APIKey,
		Model:  req.Model,
		Prompt: req.Prompt,
	})
	if err != nil {
		h.writeProviderError(w, action, err)
		return
	}

	h.guard.Record(r.Context(), id, action)
	h.writeJSONResponse(w, http.StatusOK, &models.GenerateResponse{
		Action: action,
		Model:  result.Model,
		Text:   result.Text,
	})
}
