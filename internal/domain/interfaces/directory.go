package interfaces

import (
	"context"

	domaintypes "sealkit/internal/domain/types"
)

// DirectoryService stores public identity cards.
type DirectoryService interface {
	PublishCard(ctx context.Context, card domaintypes.Card) (domaintypes.Card, error)
	SearchCards(ctx context.Context, identities []domaintypes.Identity) ([]domaintypes.Card, error)
}

// TokenProvider supplies bearer tokens for the cloud services.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}
