// Package sha256 provides SHA-256 hashing for page bodies and inmate identity fields.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hasher implements crawler.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashFields hashes normalized (trimmed, upper-cased) fields joined by a unit
// separator, so "Doe, John" and " doe, john " produce the same digest.
func (h *Hasher) HashFields(fields ...string) (string, error) {
	norm := make([]string, len(fields))
	for i, f := range fields {
		norm[i] = strings.ToUpper(strings.Join(strings.Fields(f), " "))
	}
	return h.Hash([]byte(strings.Join(norm, "\x1f")))
}
