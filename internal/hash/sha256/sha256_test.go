// Package sha256 includes tests for the SHA-256 hasher adapter.
package sha256

import "testing"

// TestHasherHashDeterministic ensures repeated hashing yields the same digest.
func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("hello world"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

// TestHashFieldsNormalizes checks whitespace and case do not change the digest.
func TestHashFieldsNormalizes(t *testing.T) {
	t.Parallel()

	h := New()
	a, err := h.HashFields("Doe, John", "1980-01-02")
	if err != nil {
		t.Fatalf("HashFields() error = %v", err)
	}
	b, err := h.HashFields("  doe,   JOHN ", "1980-01-02")
	if err != nil {
		t.Fatalf("HashFields() error = %v", err)
	}
	if a != b {
		t.Fatalf("expected normalized digests to match, got %s vs %s", a, b)
	}
	c, err := h.HashFields("Doe, John", "1980-01-03")
	if err != nil {
		t.Fatalf("HashFields() error = %v", err)
	}
	if a == c {
		t.Fatal("expected different fields to produce different digests")
	}
}
