package identity

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sealkit/internal/crypto"
	"sealkit/internal/domain"
	"sealkit/internal/observability"
	"sealkit/internal/util/memzero"
)

// Deps are the collaborators of a Session.
type Deps struct {
	Identity domain.Identity
	Crypto   domain.CryptoProvider
	Cards    domain.CardResolver
	Local    domain.LocalKeyVault
	Backups  domain.BackupVault
	Logger   *zerolog.Logger
	Metrics  *observability.Metrics
}

// Session is the key lifecycle of one identity.
type Session struct {
	identity domain.Identity
	crypto   domain.CryptoProvider
	cards    domain.CardResolver
	local    domain.LocalKeyVault
	backups  domain.BackupVault
	log      zerolog.Logger
	metrics  *observability.Metrics

	busy atomic.Bool
}

// New returns a session for d.Identity.
func New(d Deps) (*Session, error) {
	switch {
	case d.Identity == "":
		return nil, errors.New("identity is required")
	case d.Crypto == nil, d.Cards == nil, d.Local == nil, d.Backups == nil:
		return nil, errors.New("crypto, cards, local and backups are required")
	}
	log := zerolog.Nop()
	if d.Logger != nil {
		log = *d.Logger
	}
	return &Session{
		identity: d.Identity,
		crypto:   d.Crypto,
		cards:    d.Cards,
		local:    d.Local,
		backups:  d.Backups,
		log:      log.With().Str("identity", d.Identity.String()).Logger(),
		metrics:  d.Metrics,
	}, nil
}

// Identity returns the session's identity.
func (s *Session) Identity() domain.Identity { return s.identity }

// acquire claims the lifecycle guard. The returned func releases it.
func (s *Session) acquire() (func(), error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, domain.ConcurrentOperation(s.identity)
	}
	return func() { s.busy.Store(false) }, nil
}

// inspect fetches the identity's live cards and the local key state
// concurrently.
func (s *Session) inspect(ctx context.Context) ([]domain.Card, bool, error) {
	var (
		cards    []domain.Card
		hasLocal bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cards, err = s.cards.SearchCards(gctx, s.identity)
		return err
	})
	g.Go(func() error {
		var err error
		if hasLocal, err = s.local.Exists(); err != nil {
			return domain.LocalVaultError(err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	return cards, hasLocal, nil
}

// Register creates a key pair, publishes it and stores the private key
// locally. A local key left over from an unfinished registration is
// discarded first.
func (s *Session) Register(ctx context.Context) (card domain.Card, err error) {
	release, err := s.acquire()
	if err != nil {
		return domain.Card{}, err
	}
	defer release()
	defer func() { s.metrics.ObserveLifecycle("register", err) }()

	cards, hasLocal, err := s.inspect(ctx)
	if err != nil {
		return domain.Card{}, err
	}
	switch {
	case len(cards) > 1:
		return domain.Card{}, domain.MultipleRecords(s.identity)
	case len(cards) == 1:
		return domain.Card{}, domain.AlreadyRegistered(s.identity)
	}
	if hasLocal {
		s.log.Warn().Msg("discarding stale local key without a directory card")
		if err := s.local.Delete(); err != nil {
			return domain.Card{}, domain.LocalVaultError(err)
		}
	}

	card, err = s.publishAndStore(ctx, "")
	if err != nil {
		return domain.Card{}, err
	}
	s.log.Info().Str("card_id", card.ID).Msg("identity registered")
	return card, nil
}

// RotatePrivateKey replaces a lost private key: it requires exactly one
// card and no local key, publishes a new card superseding the old one and
// stores the new key.
func (s *Session) RotatePrivateKey(ctx context.Context) (card domain.Card, err error) {
	release, err := s.acquire()
	if err != nil {
		return domain.Card{}, err
	}
	defer release()
	defer func() { s.metrics.ObserveLifecycle("rotate", err) }()

	cards, hasLocal, err := s.inspect(ctx)
	if err != nil {
		return domain.Card{}, err
	}
	switch {
	case len(cards) == 0:
		return domain.Card{}, domain.RegistrationRequired(s.identity)
	case len(cards) > 1:
		return domain.Card{}, domain.MultipleRecords(s.identity)
	case hasLocal:
		return domain.Card{}, domain.PrivateKeyAlreadyExists(s.identity, nil)
	}

	card, err = s.publishAndStore(ctx, cards[0].ID)
	if err != nil {
		return domain.Card{}, err
	}
	s.log.Info().Str("card_id", card.ID).Str("previous_card_id", cards[0].ID).Msg("private key rotated")
	return card, nil
}

func (s *Session) publishAndStore(ctx context.Context, previousCardID string) (domain.Card, error) {
	kp, err := s.crypto.GenerateKeyPair()
	if err != nil {
		return domain.Card{}, fmt.Errorf("generate key pair: %w", err)
	}
	defer kp.Private.Wipe()

	card, err := s.cards.Publish(ctx, kp, previousCardID)
	if err != nil {
		return domain.Card{}, err
	}
	raw := s.crypto.ExportPrivateKey(kp.Private)
	defer memzero.Zero(raw)
	if err := s.local.Save(raw); err != nil {
		s.log.Error().Err(err).Str("card_id", card.ID).Msg("card published but private key not saved")
		return domain.Card{}, s.saveError(err)
	}
	return card, nil
}

func (s *Session) saveError(err error) error {
	if errors.Is(err, domain.ErrKeyExists) {
		return domain.PrivateKeyAlreadyExists(s.identity, err)
	}
	return domain.LocalVaultError(err)
}

// State derives the identity's lifecycle state from the directory and the
// local vault.
func (s *Session) State(ctx context.Context) (domain.KeyState, error) {
	cards, hasLocal, err := s.inspect(ctx)
	if err != nil {
		return domain.StateUnregistered, err
	}
	switch {
	case len(cards) > 1:
		return domain.StateUnregistered, domain.MultipleRecords(s.identity)
	case len(cards) == 0:
		return domain.StateUnregistered, nil
	case hasLocal:
		return domain.StateRegistered, nil
	default:
		return domain.StateKeyLost, nil
	}
}

// HasLocalPrivateKey reports whether the local vault holds a key.
func (s *Session) HasLocalPrivateKey() (bool, error) {
	ok, err := s.local.Exists()
	if err != nil {
		return false, domain.LocalVaultError(err)
	}
	return ok, nil
}

// PrivateKey loads the current private key. The caller owns the returned
// value and should Wipe it when done.
func (s *Session) PrivateKey() (domain.PrivateKey, error) {
	raw, ok, err := s.local.Load()
	if err != nil {
		return domain.PrivateKey{}, domain.LocalVaultError(err)
	}
	if !ok {
		return domain.PrivateKey{}, domain.RegistrationRequired(s.identity)
	}
	defer memzero.Zero(raw)
	priv, err := s.crypto.ImportPrivateKey(raw)
	if err != nil {
		return domain.PrivateKey{}, domain.LocalVaultError(err)
	}
	return priv, nil
}

// PublicKey returns the public half of the current private key.
func (s *Session) PublicKey() (domain.PublicKey, error) {
	priv, err := s.PrivateKey()
	if err != nil {
		return domain.PublicKey{}, err
	}
	defer priv.Wipe()
	return s.crypto.ExtractPublicKey(priv), nil
}

// Fingerprint returns the short fingerprint of the current public key.
func (s *Session) Fingerprint() (domain.Fingerprint, error) {
	pub, err := s.PublicKey()
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(s.crypto.ExportPublicKey(pub)), nil
}

// Cleanup deletes the local private key. Backups are left alone.
func (s *Session) Cleanup() (err error) {
	defer func() { s.metrics.ObserveLifecycle("cleanup", err) }()
	if err := s.local.Delete(); err != nil {
		return domain.LocalVaultError(err)
	}
	s.log.Info().Msg("local private key deleted")
	return nil
}

// Compile-time assertion that Session implements domain.KeySource.
var _ domain.KeySource = (*Session)(nil)
