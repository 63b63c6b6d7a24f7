package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Signer names used on card signatures.
const (
	SignerSelf   = "self"
	SignerIssuer = "issuer"
)

// CardSignature is one signature over a card snapshot.
type CardSignature struct {
	Signer    string `json:"signer"`
	Signature []byte `json:"signature"`
}

// Card is the public identity record published to the directory.
type Card struct {
	ID             string          `json:"id"`
	Identity       Identity        `json:"identity"`
	PublicKey      []byte          `json:"public_key"`
	PreviousCardID string          `json:"previous_card_id,omitempty"`
	CreatedAt      int64           `json:"created_at"`
	Signatures     []CardSignature `json:"signatures,omitempty"`
}

// cardContent is the signed part of a card. Field order is fixed so the
// encoding is canonical.
type cardContent struct {
	Identity       Identity `json:"identity"`
	PublicKey      []byte   `json:"public_key"`
	PreviousCardID string   `json:"previous_card_id"`
	CreatedAt      int64    `json:"created_at"`
}

// Snapshot returns the canonical bytes covered by card signatures and the ID.
func (c Card) Snapshot() []byte {
	b, _ := json.Marshal(cardContent{
		Identity:       c.Identity,
		PublicKey:      c.PublicKey,
		PreviousCardID: c.PreviousCardID,
		CreatedAt:      c.CreatedAt,
	})
	return b
}

// ComputeID returns the content-derived identifier of the card.
func (c Card) ComputeID() string {
	sum := sha256.Sum256(c.Snapshot())
	return hex.EncodeToString(sum[:])
}

// Signature returns the signature made by signer, if present.
func (c Card) Signature(signer string) ([]byte, bool) {
	for _, s := range c.Signatures {
		if s.Signer == signer {
			return s.Signature, true
		}
	}
	return nil, false
}
