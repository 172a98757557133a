package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeRequestNormalize(t *testing.T) {
	req := &SynthesizeRequest{APIKey: "  key  ", Text: "\thello\n"}
	req.Normalize()

	assert.Equal(t, "key", req.APIKey)
	assert.Equal(t, "hello", req.Text)
	assert.Equal(t, DefaultVoice, req.Voice)
	require.NotNil(t, req.SpeakingRate)
	require.NotNil(t, req.Pitch)
	assert.Equal(t, 1.0, *req.SpeakingRate)
	assert.Equal(t, 0.0, *req.Pitch)
	assert.NoError(t, req.Validate())
}

func TestSynthesizeRequestKeepsExplicitValues(t *testing.T) {
	rate, pitch := 1.5, -2.0
	req := &SynthesizeRequest{APIKey: "k", Text: "t", Voice: "en-US-Wavenet-D", SpeakingRate: &rate, Pitch: &pitch}
	req.Normalize()

	assert.Equal(t, "en-US-Wavenet-D", req.Voice)
	assert.Equal(t, 1.5, *req.SpeakingRate)
	assert.Equal(t, -2.0, *req.Pitch)
}

func TestSynthesizeRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  SynthesizeRequest
	}{
		{name: "missing key", req: SynthesizeRequest{Text: "hello"}},
		{name: "missing text", req: SynthesizeRequest{APIKey: "key"}},
		{name: "whitespace text", req: SynthesizeRequest{APIKey: "key", Text: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			assert.ErrorIs(t, tt.req.Validate(), ErrMissingFields)
		})
	}
}

func TestSynthesizeRequestLanguageCode(t *testing.T) {
	tests := []struct {
		voice string
		want  string
	}{
		{voice: "ko-KR-Standard-A", want: "ko-KR"},
		{voice: "en-US-Wavenet-D", want: "en-US"},
		{voice: "cmn-CN-Standard-A", want: DefaultLanguageCode},
		{voice: "custom", want: DefaultLanguageCode},
	}

	for _, tt := range tests {
		t.Run(tt.voice, func(t *testing.T) {
			req := &SynthesizeRequest{Voice: tt.voice}
			assert.Equal(t, tt.want, req.LanguageCode())
		})
	}
}

func TestGenerateRequestValidate(t *testing.T) {
	req := &GenerateRequest{APIKey: " key ", Prompt: " plan a story ", Fingerprint: " fp "}
	req.Normalize()
	assert.NoError(t, req.Validate())
	assert.Equal(t, "fp", req.Fingerprint)

	empty := &GenerateRequest{APIKey: "key"}
	empty.Normalize()
	assert.ErrorIs(t, empty.Validate(), ErrMissingFields)
}

func TestAbuseEventRequest(t *testing.T) {
	req := &AbuseEventRequest{ClientHash: " abc ", RiskLabel: " Abusive "}
	req.Normalize()
	assert.NoError(t, req.Validate())
	assert.Equal(t, RiskAbusive, req.RiskLabel)
	assert.Equal(t, "abc", req.ClientHash)

	none := &AbuseEventRequest{RiskLabel: RiskSuspicious}
	assert.ErrorIs(t, none.Validate(), ErrMissingFields)

	cleared := &AbuseEventRequest{OriginHash: "abc"}
	cleared.Normalize()
	assert.NoError(t, cleared.Validate())

	unknown := &AbuseEventRequest{OriginHash: "abc", RiskLabel: "hostile"}
	unknown.Normalize()
	assert.ErrorIs(t, unknown.Validate(), ErrInvalidRiskLabel)
}
