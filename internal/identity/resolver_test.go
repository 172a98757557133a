package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  []string
		remoteAddr string
		want       string
	}{
		{name: "single forwarded", forwarded: []string{"203.0.113.7"}, remoteAddr: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "forwarded list", forwarded: []string{" 203.0.113.7 , 10.0.0.2"}, remoteAddr: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "repeated header", forwarded: []string{"198.51.100.1", "203.0.113.7"}, want: "198.51.100.1"},
		{name: "remote addr with port", remoteAddr: "192.0.2.10:55000", want: "192.0.2.10"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "remote addr without port", remoteAddr: "192.0.2.10", want: "192.0.2.10"},
		{name: "empty forwarded falls back", forwarded: []string{""}, remoteAddr: "192.0.2.10:1", want: "192.0.2.10"},
		{name: "nothing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/tts", nil)
			r.RemoteAddr = tt.remoteAddr
			for _, v := range tt.forwarded {
				r.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestHash(t *testing.T) {
	res := NewResolver("pepper")

	sum := sha256.Sum256([]byte("203.0.113.7:pepper"))
	assert.Equal(t, hex.EncodeToString(sum[:]), res.Hash("203.0.113.7"))
	assert.Equal(t, res.Hash("203.0.113.7"), res.Hash("203.0.113.7"), "hashing is deterministic")
	assert.Empty(t, res.Hash(""), "absent values are never hashed")

	other := NewResolver("salt-2")
	assert.NotEqual(t, res.Hash("203.0.113.7"), other.Hash("203.0.113.7"), "different salts are incomparable")
}

func TestResolve(t *testing.T) {
	res := NewResolver("pepper")

	r := httptest.NewRequest(http.MethodPost, "/api/v1/tts", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	id := res.Resolve(r, "fp-123")
	assert.Equal(t, res.Hash("203.0.113.7"), id.OriginHash)
	assert.Equal(t, res.Hash("fp-123"), id.ClientHash)

	r = httptest.NewRequest(http.MethodPost, "/api/v1/tts", nil)
	r.RemoteAddr = ""
	id = res.Resolve(r, "")
	assert.True(t, id.Empty())
}
