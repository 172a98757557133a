package models

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// AdminKeySet holds the SHA-256 digests of the configured admin bearer
// tokens. Raw tokens are dropped after construction.
type AdminKeySet struct {
	hashes []string
}

// NewAdminKeySet hashes each raw key.
func NewAdminKeySet(rawKeys []string) *AdminKeySet {
	set := &AdminKeySet{hashes: make([]string, 0, len(rawKeys))}
	for _, k := range rawKeys {
		set.hashes = append(set.hashes, HashAPIKey(k))
	}
	return set
}

// Len returns the number of configured keys.
func (s *AdminKeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.hashes)
}

// Match reports whether token hashes to one of the configured keys.
func (s *AdminKeySet) Match(token string) bool {
	if s == nil || token == "" {
		return false
	}
	candidate := []byte(HashAPIKey(token))
	matched := false
	for _, h := range s.hashes {
		if subtle.ConstantTimeCompare(candidate, []byte(h)) == 1 {
			matched = true
		}
	}
	return matched
}

// GenerateAPIKey produces a new random admin key in the format gk_<44 url-safe base64 chars>.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 33) // 33 bytes → 44 base64url chars
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return "gk_" + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashAPIKey computes the SHA-256 hex digest of a raw API key.
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}
