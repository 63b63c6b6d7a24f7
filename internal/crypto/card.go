package crypto

import (
	"crypto/ed25519"

	"sealkit/internal/domain"
)

// SignCard signs the card snapshot with an Ed25519 key. Self and issuer
// signatures use the same scheme, separate from payload signatures.
func SignCard(priv domain.Ed25519Private, card domain.Card) []byte {
	msg := signedMessage(cardSignaturePrefix, Digest(card.Snapshot()))
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg)
}

// VerifyCard checks sig over the card snapshot.
func VerifyCard(pub domain.Ed25519Public, card domain.Card, sig []byte) bool {
	msg := signedMessage(cardSignaturePrefix, Digest(card.Snapshot()))
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}

// CardSigningKey returns the signing half of the card's public key.
func CardSigningKey(card domain.Card) (domain.Ed25519Public, bool) {
	var pub domain.Ed25519Public
	if len(card.PublicKey) != publicKeySize {
		return pub, false
	}
	copy(pub[:], card.PublicKey[:32])
	return pub, true
}
