// Package identity derives pseudonymous caller identities from inbound HTTP
// requests. Raw network origins and client fingerprints are combined with a
// server-held salt and digested, so only hashes ever reach the signal store.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"gatekeeper/internal/models"
	"net"
	"net/http"
	"strings"
)

// Resolver hashes request identity signals with a fixed salt. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	salt string
}

// NewResolver creates a resolver keyed by salt. Rotating the salt makes all
// previously stored hashes incomparable with new ones.
func NewResolver(salt string) *Resolver {
	return &Resolver{salt: salt}
}

// Resolve derives the identity for r. fingerprint is the optional opaque
// token the caller supplied in the request body.
func (res *Resolver) Resolve(r *http.Request, fingerprint string) models.Identity {
	return models.Identity{
		OriginHash: res.Hash(ClientIP(r)),
		ClientHash: res.Hash(fingerprint),
	}
}

// Hash returns the hex SHA-256 digest of value joined with the salt.
// Empty values stay empty.
func (res *Resolver) Hash(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value + ":" + res.salt))
	return hex.EncodeToString(sum[:])
}

// ClientIP returns the network origin of r: the first X-Forwarded-For entry
// when present, otherwise the transport peer address. It returns "" when
// neither is available.
func ClientIP(r *http.Request) string {
	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 && values[0] != "" {
		first, _, _ := strings.Cut(values[0], ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if r.RemoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
