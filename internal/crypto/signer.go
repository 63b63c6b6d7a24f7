package crypto

import (
	"github.com/zeebo/blake3"

	"sealkit/internal/domain"
)

// streamSigner hashes chunks with BLAKE3 and signs the digest, so a stream
// signed chunk by chunk verifies exactly like the same bytes signed at once.
type streamSigner struct {
	h *blake3.Hasher
}

func (s *streamSigner) Update(chunk []byte) { _, _ = s.h.Write(chunk) }

func (s *streamSigner) Sign(priv domain.PrivateKey) ([]byte, error) {
	return SignDigest(priv.Signing, s.h.Sum(nil)), nil
}

type streamVerifier struct {
	h         *blake3.Hasher
	signature []byte
}

func (v *streamVerifier) Update(chunk []byte) { _, _ = v.h.Write(chunk) }

func (v *streamVerifier) Verify(pub domain.PublicKey) bool {
	return VerifyDigest(pub.Signing, v.h.Sum(nil), v.signature)
}
