package cloud

import (
	"context"
	"net/http"

	"sealkit/internal/domain"
)

// DirectoryClient is the HTTP Directory Service client.
type DirectoryClient struct {
	c client
}

// NewDirectoryClient returns a client for the directory at base.
func NewDirectoryClient(base string, opts ClientOptions) *DirectoryClient {
	return &DirectoryClient{c: newClient(base, opts)}
}

func (d *DirectoryClient) PublishCard(ctx context.Context, card domain.Card) (domain.Card, error) {
	var out domain.Card
	if err := d.c.do(ctx, http.MethodPost, "/v1/cards", card, &out); err != nil {
		return domain.Card{}, err
	}
	return out, nil
}

func (d *DirectoryClient) SearchCards(ctx context.Context, identities []domain.Identity) ([]domain.Card, error) {
	var out searchResponse
	if err := d.c.do(ctx, http.MethodPost, "/v1/cards/actions/search", searchRequest{Identities: identities}, &out); err != nil {
		return nil, err
	}
	return out.Cards, nil
}

var _ domain.DirectoryService = (*DirectoryClient)(nil)
