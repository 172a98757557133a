package api

import (
	"context"
	"encoding/json"
	"gatekeeper/internal/models"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func adminHeader(key string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + key}}
}

func TestHandlers_CreateAbuseEvent(t *testing.T) {
	env := newTestEnv(t, testGuardConfig())

	rec := env.do(http.MethodPost, "/api/v1/admin/abuse-events", map[string]any{
		"originHash": env.originHash(),
		"clientHash": "client-digest",
		"riskLabel":  "Abusive",
	}, adminHeader(testAdminKey))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp models.AbuseEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.True(t, env.clock.Now().Equal(resp.CreatedAt))

	stored, err := env.store.LatestAbuseEvent(context.Background(), models.DimensionClient, "client-digest")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, resp.ID, stored.ID)
	assert.Equal(t, models.RiskAbusive, stored.RiskLabel)

	// The stored classification now blocks the caller it was recorded for.
	blocked := env.do(http.MethodPost, "/api/v1/tts", `{"apiKey":"k","text":"hi"}`, nil)
	assert.Equal(t, http.StatusForbidden, blocked.Code)
	assert.Equal(t, models.ReasonAbuseBlocked, decodeMessage(t, blocked))
}

func TestHandlers_CreateAbuseEvent_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		header      http.Header
		body        string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "no credentials",
			body:        `{"originHash":"abc","riskLabel":"abusive"}`,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: models.MessageUnauthorized,
		},
		{
			name:        "wrong key",
			header:      adminHeader("not-the-key"),
			body:        `{"originHash":"abc","riskLabel":"abusive"}`,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: models.MessageUnauthorized,
		},
		{
			name:        "unparseable body",
			header:      adminHeader(testAdminKey),
			body:        `{"originHash":`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: models.MessageInvalidJSON,
		},
		{
			name:        "no identity",
			header:      adminHeader(testAdminKey),
			body:        `{"riskLabel":"abusive"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: models.MessageMissingFields,
		},
		{
			name:        "unknown label",
			header:      adminHeader(testAdminKey),
			body:        `{"originHash":"abc","riskLabel":"hostile"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: models.MessageInvalidRiskLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testGuardConfig())

			rec := env.do(http.MethodPost, "/api/v1/admin/abuse-events", tt.body, tt.header)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMessage, decodeMessage(t, rec))

			stored, err := env.store.LatestAbuseEvent(context.Background(), models.DimensionOrigin, "abc")
			require.NoError(t, err)
			assert.Nil(t, stored)
		})
	}
}

func TestHandlers_CreateAbuseEvent_ClearingLabel(t *testing.T) {
	env := newTestEnv(t, testGuardConfig())
	env.seedAbuse(t, models.RiskAbusive, time.Hour)

	rec := env.do(http.MethodPost, "/api/v1/admin/abuse-events",
		map[string]any{"originHash": env.originHash()}, adminHeader(testAdminKey))
	require.Equal(t, http.StatusCreated, rec.Code)

	env.synthesizer.On("Synthesize", mock.Anything, mock.Anything).Return("QUJD", nil)
	served := env.do(http.MethodPost, "/api/v1/tts", `{"apiKey":"k","text":"hi"}`, nil)
	assert.Equal(t, http.StatusOK, served.Code)
}
