package api

import (
	"errors"
	"gatekeeper/internal/models"
	"gatekeeper/internal/signals"
	"net/http"
)

// CreateAbuseEvent stores a classification submitted by the external
// classifier. Identities arrive already hashed with the shared salt.
// POST /api/v1/admin/abuse-events
func (h *Handlers) CreateAbuseEvent(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, models.MessageServerError)
		return
	}

	var req models.AbuseEventRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.MessageInvalidJSON)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		message := models.MessageMissingFields
		if errors.Is(err, models.ErrInvalidRiskLabel) {
			message = models.MessageInvalidRiskLabel
		}
		h.writeErrorResponse(w, http.StatusBadRequest, message)
		return
	}

	event := models.NewAbuseEvent(models.Identity{
		OriginHash: req.OriginHash,
		ClientHash: req.ClientHash,
	}, req.RiskLabel, h.now())

	if err := h.storage.AppendAbuseEvent(r.Context(), event); err != nil {
		if errors.Is(err, signals.ErrInvalidEvent) {
			h.writeErrorResponse(w, http.StatusBadRequest, models.MessageMissingFields)
			return
		}
		h.logger.Error("Failed to store abuse event", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.MessageServerError)
		return
	}

	h.logger.Info("Abuse event recorded",
		"event_id", event.ID,
		"risk_label", string(event.RiskLabel),
		"has_origin", event.OriginHash != "",
		"has_client", event.ClientHash != "")

	h.writeJSONResponse(w, http.StatusCreated, &models.AbuseEventResponse{
		ID:        event.ID,
		CreatedAt: event.CreatedAt,
	})
}
