package ratelimit

import (
	"encoding/json"
	"gatekeeper/internal/models"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func serve(handler http.Handler, remoteAddr, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tts", nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_AllowedRequest(t *testing.T) {
	limiter := NewMemoryLimiter(60, 10, 5*time.Minute)
	defer limiter.Close()

	handler := Middleware(limiter, nil)(http.HandlerFunc(okHandler))
	rr := serve(handler, "192.168.1.1:12345", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", rr.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rr.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, rr.Header().Get("Retry-After"))
}

func TestMiddleware_DeniedRequest(t *testing.T) {
	limiter := NewMemoryLimiter(60, 2, 5*time.Minute)
	defer limiter.Close()

	handler := Middleware(limiter, nil)(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(handler, "192.168.1.1:12345", "").Code)
	}

	rr := serve(handler, "192.168.1.1:12345", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	retryAfter, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, models.MessageRateLimited, body.Message)

	assert.Equal(t, http.StatusOK, serve(handler, "192.168.1.2:12345", "").Code, "other addresses unaffected")
}

func TestMiddleware_KeysOnForwardedAddress(t *testing.T) {
	limiter := NewMemoryLimiter(60, 1, 5*time.Minute)
	defer limiter.Close()

	handler := Middleware(limiter, nil)(http.HandlerFunc(okHandler))

	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", "203.0.113.50, 70.41.3.18").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.2:1", "203.0.113.50").Code,
		"same client behind a different proxy hop")
	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", "198.51.100.9").Code)
}

func TestMiddleware_CustomKey(t *testing.T) {
	limiter := NewMemoryLimiter(60, 1, 5*time.Minute)
	defer limiter.Close()

	everyone := func(r *http.Request) string { return "shared" }
	handler := Middleware(limiter, everyone)(http.HandlerFunc(okHandler))

	assert.Equal(t, http.StatusOK, serve(handler, "192.0.2.1:1", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "192.0.2.2:1", "").Code)
}

func TestClientIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", ClientIPKey(req))

	req.RemoteAddr = ""
	assert.Equal(t, "unknown", ClientIPKey(req))
}
