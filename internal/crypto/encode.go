package crypto

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"

	"sealkit/internal/domain"
)

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// FromB64 decodes standard base64.
func FromB64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// EncodeSigningKey renders an Ed25519 public key as base58, the format used
// for pinned issuer keys.
func EncodeSigningKey(pub domain.Ed25519Public) string { return base58.Encode(pub[:]) }

// DecodeSigningKey parses a base58 Ed25519 public key.
func DecodeSigningKey(s string) (domain.Ed25519Public, error) {
	var pub domain.Ed25519Public
	raw, err := base58.Decode(s)
	if err != nil {
		return pub, fmt.Errorf("decode signing key: %w", err)
	}
	if len(raw) != len(pub) {
		return pub, fmt.Errorf("signing key: want %d bytes, got %d", len(pub), len(raw))
	}
	copy(pub[:], raw)
	return pub, nil
}
