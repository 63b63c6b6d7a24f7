package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/zeebo/blake3"

	"sealkit/internal/domain"
)

// Signing key uses are domain-separated: payload and file signatures can
// never be replayed as card signatures or the other way round.
const (
	signaturePrefix     = "sealkit-sig-v1"
	cardSignaturePrefix = "sealkit-card-v1"
)

// GenerateEd25519 returns a new Ed25519 signing key pair.
func GenerateEd25519() (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return priv, pub, err
	}
	copy(priv[:], sk)
	copy(pub[:], pk)
	return priv, pub, nil
}

// Ed25519FromSeed derives the signing key pair for a 32-byte seed.
func Ed25519FromSeed(seed []byte) (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	if len(seed) != ed25519.SeedSize {
		return priv, pub, ErrInvalidKey
	}
	sk := ed25519.NewKeyFromSeed(seed)
	copy(priv[:], sk)
	copy(pub[:], sk.Public().(ed25519.PublicKey))
	return priv, pub, nil
}

// SignDigest signs a BLAKE3-256 digest with priv.
func SignDigest(priv domain.Ed25519Private, digest []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), signedMessage(signaturePrefix, digest))
}

// VerifyDigest verifies sig over a BLAKE3-256 digest with pub.
func VerifyDigest(pub domain.Ed25519Public, digest, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), signedMessage(signaturePrefix, digest), sig)
}

// Digest returns the BLAKE3-256 digest of data.
func Digest(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

func signedMessage(prefix string, digest []byte) []byte {
	msg := make([]byte, 0, len(prefix)+len(digest))
	msg = append(msg, prefix...)
	return append(msg, digest...)
}
