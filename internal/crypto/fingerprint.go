package crypto

import (
	"crypto/sha256"

	"github.com/mr-tron/base58"

	"sealkit/internal/domain"
)

// Fingerprint returns a short base58 fingerprint of an exported public key.
//
// It hashes with SHA-256 and truncates to 16 bytes.
func Fingerprint(exported []byte) domain.Fingerprint {
	sum := sha256.Sum256(exported)
	return domain.Fingerprint(base58.Encode(sum[:16]))
}

// KeyIDOf returns the envelope key id of an exported public key.
func KeyIDOf(exported []byte) domain.KeyID {
	sum := sha256.Sum256(exported)
	var id domain.KeyID
	copy(id[:], sum[:len(id)])
	return id
}
