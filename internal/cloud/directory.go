package cloud

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sealkit/internal/crypto"
	"sealkit/internal/domain"
)

var ErrInvalidCard = errors.New("invalid card")

// Directory is an in-memory identity directory. It assigns card ids, checks
// self signatures, countersigns with the issuer key when it has one, and
// supersedes a live card only when a publish names it as previous.
type Directory struct {
	mu     sync.RWMutex
	live   map[domain.Identity][]domain.Card
	ids    map[string]struct{}
	issuer *domain.Ed25519Private
}

// NewDirectory returns an empty directory. issuer may be nil.
func NewDirectory(issuer *domain.Ed25519Private) *Directory {
	return &Directory{
		live:   make(map[domain.Identity][]domain.Card),
		ids:    make(map[string]struct{}),
		issuer: issuer,
	}
}

// PublishCard validates and stores card and returns it with its id and
// issuer signature set.
func (d *Directory) PublishCard(_ context.Context, card domain.Card) (domain.Card, error) {
	if err := validateCard(card); err != nil {
		return domain.Card{}, err
	}
	card.ID = card.ComputeID()
	card.Signatures = selfOnly(card.Signatures)
	if d.issuer != nil {
		card.Signatures = append(card.Signatures, domain.CardSignature{
			Signer:    domain.SignerIssuer,
			Signature: crypto.SignCard(*d.issuer, card),
		})
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.ids[card.ID]; dup {
		return domain.Card{}, fmt.Errorf("%w: card %s already published", ErrInvalidCard, card.ID)
	}
	cards := d.live[card.Identity]
	if card.PreviousCardID != "" {
		idx := -1
		for i, c := range cards {
			if c.ID == card.PreviousCardID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.Card{}, fmt.Errorf("card %s: %w", card.PreviousCardID, domain.ErrStaleRecord)
		}
		cards = append(cards[:idx:idx], cards[idx+1:]...)
	}
	d.live[card.Identity] = append(cards, card)
	d.ids[card.ID] = struct{}{}
	return card, nil
}

// SearchCards returns the live cards of every listed identity.
func (d *Directory) SearchCards(_ context.Context, identities []domain.Identity) ([]domain.Card, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[domain.Identity]bool, len(identities))
	var out []domain.Card
	for _, id := range identities {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, d.live[id]...)
	}
	return out, nil
}

func validateCard(card domain.Card) error {
	if card.Identity == "" {
		return fmt.Errorf("%w: empty identity", ErrInvalidCard)
	}
	if card.CreatedAt <= 0 {
		return fmt.Errorf("%w: missing created_at", ErrInvalidCard)
	}
	pub, ok := crypto.CardSigningKey(card)
	if !ok {
		return fmt.Errorf("%w: bad public key", ErrInvalidCard)
	}
	sig, ok := card.Signature(domain.SignerSelf)
	if !ok || !crypto.VerifyCard(pub, card, sig) {
		return fmt.Errorf("%w: bad self signature", ErrInvalidCard)
	}
	return nil
}

func selfOnly(sigs []domain.CardSignature) []domain.CardSignature {
	out := make([]domain.CardSignature, 0, 2)
	for _, s := range sigs {
		if s.Signer == domain.SignerSelf {
			out = append(out, s)
			break
		}
	}
	return out
}

// Compile-time assertion that Directory implements domain.DirectoryService.
var _ domain.DirectoryService = (*Directory)(nil)
