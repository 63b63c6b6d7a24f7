package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sealkit/internal/crypto"
	"sealkit/internal/domain"
	"sealkit/internal/observability"
)

// Resolver publishes cards for one identity and looks up others.
type Resolver struct {
	identity domain.Identity
	svc      domain.DirectoryService
	crypto   domain.CryptoProvider
	verifier *Verifier
	log      zerolog.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(r *Resolver) { r.log = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option { return func(r *Resolver) { r.metrics = m } }

// WithClock overrides the card timestamp source.
func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

// New returns a resolver publishing as identity.
func New(
	identity domain.Identity,
	svc domain.DirectoryService,
	provider domain.CryptoProvider,
	verifier *Verifier,
	opts ...Option,
) *Resolver {
	r := &Resolver{
		identity: identity,
		svc:      svc,
		crypto:   provider,
		verifier: verifier,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Publish creates a self-signed card for keyPair, superseding
// previousCardID when it is not empty.
func (r *Resolver) Publish(ctx context.Context, keyPair domain.KeyPair, previousCardID string) (domain.Card, error) {
	exported := r.crypto.ExportPublicKey(keyPair.Public)
	card := domain.Card{
		Identity:       r.identity,
		PublicKey:      exported,
		PreviousCardID: previousCardID,
		CreatedAt:      r.now().UnixNano(),
	}
	card.Signatures = []domain.CardSignature{{
		Signer:    domain.SignerSelf,
		Signature: crypto.SignCard(keyPair.Private.Signing, card),
	}}

	published, err := r.svc.PublishCard(ctx, card)
	if err != nil {
		return domain.Card{}, domain.DirectoryError(fmt.Errorf("publish: %w", err))
	}
	if _, err := r.verifier.Verify(published); err != nil {
		return domain.Card{}, domain.DirectoryError(err)
	}
	if published.Identity != r.identity || !bytes.Equal(published.PublicKey, exported) {
		return domain.Card{}, domain.DirectoryError(errors.New("directory returned a different card"))
	}
	r.log.Info().
		Str("identity", r.identity.String()).
		Str("card_id", published.ID).
		Str("previous_card_id", previousCardID).
		Msg("card published")
	return published, nil
}

// SearchCards returns the verified live cards of identities. An identity
// without cards is not an error here.
func (r *Resolver) SearchCards(ctx context.Context, identities ...domain.Identity) ([]domain.Card, error) {
	cards, err := r.svc.SearchCards(ctx, identities)
	if err != nil {
		return nil, domain.DirectoryError(fmt.Errorf("search: %w", err))
	}
	for _, c := range cards {
		if _, err := r.verifier.Verify(c); err != nil {
			return nil, domain.DirectoryError(err)
		}
	}
	return cards, nil
}

// LookupPublicKeys resolves every identity to exactly one public key.
//
// Empty or duplicated input fails before any directory call. If any
// identity has zero or several cards the call fails with a
// *domain.LookupError holding both the resolved keys and the per-identity
// errors.
func (r *Resolver) LookupPublicKeys(ctx context.Context, identities ...domain.Identity) (domain.LookupResult, error) {
	if len(identities) == 0 {
		return nil, domain.ErrEmptyInput
	}
	seen := make(map[domain.Identity]struct{}, len(identities))
	for _, id := range identities {
		if _, dup := seen[id]; dup {
			return nil, domain.DuplicateIdentity(id)
		}
		seen[id] = struct{}{}
	}

	cards, err := r.SearchCards(ctx, identities...)
	if err != nil {
		return nil, err
	}
	byIdentity := make(map[domain.Identity][]domain.Card, len(identities))
	for _, c := range cards {
		byIdentity[c.Identity] = append(byIdentity[c.Identity], c)
	}

	found := make(domain.LookupResult, len(identities))
	failures := make(map[domain.Identity]error)
	for _, id := range identities {
		switch matches := byIdentity[id]; len(matches) {
		case 0:
			failures[id] = domain.NotFound(id)
		case 1:
			pub, err := r.crypto.ImportPublicKey(matches[0].PublicKey)
			if err != nil {
				failures[id] = domain.DirectoryError(err)
				continue
			}
			found[id] = pub
		default:
			failures[id] = domain.MultipleRecords(id)
		}
	}
	r.metrics.ObserveLookups(len(found), len(failures))

	if len(failures) > 0 {
		return nil, &domain.LookupError{Found: found, Failures: failures}
	}
	return found, nil
}

// LookupPublicKey resolves a single identity. A failure is returned as the
// identity's own error rather than an aggregate.
func (r *Resolver) LookupPublicKey(ctx context.Context, identity domain.Identity) (domain.PublicKey, error) {
	res, err := r.LookupPublicKeys(ctx, identity)
	if err != nil {
		var lookupErr *domain.LookupError
		if errors.As(err, &lookupErr) {
			return domain.PublicKey{}, lookupErr.Failure(identity)
		}
		return domain.PublicKey{}, err
	}
	return res[identity], nil
}

// Compile-time assertion that Resolver implements domain.CardResolver.
var _ domain.CardResolver = (*Resolver)(nil)
