package directory

import (
	"errors"
	"fmt"

	"sealkit/internal/crypto"
	"sealkit/internal/domain"
)

var (
	// ErrIssuerKeyRequired is returned by NewVerifier in strict mode without an issuer key.
	ErrIssuerKeyRequired = errors.New("strict card verification needs an issuer key")
	// ErrCardID means the card id is not the hash of its snapshot.
	ErrCardID = errors.New("card id does not match its content")
	// ErrSelfSignature means the owner's signature is absent or invalid.
	ErrSelfSignature = errors.New("missing or invalid self signature")
	// ErrIssuerSignature means the pinned issuer's signature is absent or invalid.
	ErrIssuerSignature = errors.New("missing or invalid issuer signature")
)

// Verifier checks directory cards. Strict verification requires both the
// self signature and an issuer signature under the pinned issuer key.
// Relaxed verification requires the self signature and checks the issuer
// signature only when an issuer key is pinned.
type Verifier struct {
	crypto domain.CryptoProvider
	strict bool
	issuer *domain.PublicKey
}

// NewVerifier returns a verifier. issuer may be nil unless strict is set.
func NewVerifier(provider domain.CryptoProvider, strict bool, issuer *domain.Ed25519Public) (*Verifier, error) {
	if strict && issuer == nil {
		return nil, ErrIssuerKeyRequired
	}
	v := &Verifier{crypto: provider, strict: strict}
	if issuer != nil {
		v.issuer = &domain.PublicKey{Signing: *issuer}
	}
	return v, nil
}

// Strict reports whether issuer signatures are mandatory.
func (v *Verifier) Strict() bool { return v.strict }

// Verify returns the card's public key if the card passes verification.
func (v *Verifier) Verify(card domain.Card) (domain.PublicKey, error) {
	if card.ID != card.ComputeID() {
		return domain.PublicKey{}, fmt.Errorf("card %s: %w", card.ID, ErrCardID)
	}
	pub, err := v.crypto.ImportPublicKey(card.PublicKey)
	if err != nil {
		return domain.PublicKey{}, fmt.Errorf("card %s: %w", card.ID, err)
	}
	sig, ok := card.Signature(domain.SignerSelf)
	if !ok || !crypto.VerifyCard(pub.Signing, card, sig) {
		return domain.PublicKey{}, fmt.Errorf("card %s: %w", card.ID, ErrSelfSignature)
	}

	if v.issuer == nil {
		return pub, nil
	}
	sig, ok = card.Signature(domain.SignerIssuer)
	if !ok || !crypto.VerifyCard(v.issuer.Signing, card, sig) {
		return domain.PublicKey{}, fmt.Errorf("card %s: %w", card.ID, ErrIssuerSignature)
	}
	return pub, nil
}
