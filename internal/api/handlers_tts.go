package api

import (
	"gatekeeper/internal/models"
	"gatekeeper/internal/provider"
	"net/http"
)

// SynthesizeSpeech handles speech synthesis requests
// POST /api/v1/tts
func (h *Handlers) SynthesizeSpeech(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, models.MessageMethodNotAllowed)
		return
	}

	var req models.SynthesizeRequest
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
	if !h.admit(w, r, id, models.ActionSynthesizeSpeech) {
		return
	}

	if h.synthesizer == nil {
		h.logger.Error("No speech synthesizer configured")
		h.writeErrorResponse(w, http.StatusInternalServerError, models.MessageServerError)
		return
	}

	audio, err := h.synthesizer.Synthesize(r.Context(), provider.SpeechRequest{
		APIKey:       req.APIKey,
		Text:         req.Text,
		Voice:        req.Voice,
		LanguageCode: req.LanguageCode(),
		SpeakingRate: *req.SpeakingRate,
		Pitch:        *req.Pitch,
	})
	if err != nil {
		h.writeProviderError(w, models.ActionSynthesizeSpeech, err)
		return
	}

	h.guard.Record(r.Context(), id, models.ActionSynthesizeSpeech)
	h.writeJSONResponse(w, http.StatusOK, &models.SynthesizeResponse{AudioContent: audio})
}
