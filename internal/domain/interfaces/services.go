package interfaces

import (
	"context"

	domaintypes "sealkit/internal/domain/types"
)

// CardResolver publishes and looks up identity cards.
type CardResolver interface {
	Publish(ctx context.Context, keyPair domaintypes.KeyPair, previousCardID string) (domaintypes.Card, error)
	SearchCards(ctx context.Context, identities ...domaintypes.Identity) ([]domaintypes.Card, error)
	LookupPublicKeys(ctx context.Context, identities ...domaintypes.Identity) (domaintypes.LookupResult, error)
	LookupPublicKey(ctx context.Context, identity domaintypes.Identity) (domaintypes.PublicKey, error)
}

// KeySource hands out the current identity's key material for the duration
// of one operation.
type KeySource interface {
	Identity() domaintypes.Identity
	PrivateKey() (domaintypes.PrivateKey, error)
}
