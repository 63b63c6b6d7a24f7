package identity_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sealkit/internal/backup"
	"sealkit/internal/cloud"
	"sealkit/internal/crypto"
	"sealkit/internal/domain"
	"sealkit/internal/services/directory"
	"sealkit/internal/services/identity"
	"sealkit/internal/store"
)

type harness struct {
	provider *crypto.Provider
	dir      *cloud.Directory
	resolver *directory.Resolver
	local    *store.MemoryKeyVault
	backups  *backup.Memory
	session  *identity.Session
}

func newHarness(t *testing.T, id domain.Identity) *harness {
	t.Helper()
	h := &harness{
		provider: crypto.New(),
		dir:      cloud.NewDirectory(nil),
		local:    store.NewMemoryKeyVault(),
		backups:  backup.NewMemory(),
	}
	v, err := directory.NewVerifier(h.provider, false, nil)
	require.NoError(t, err)
	h.resolver = directory.New(id, h.dir, h.provider, v)
	h.session = h.newSession(t, id, h.resolver)
	return h
}

func (h *harness) newSession(t *testing.T, id domain.Identity, cards domain.CardResolver) *identity.Session {
	t.Helper()
	s, err := identity.New(identity.Deps{
		Identity: id,
		Crypto:   h.provider,
		Cards:    cards,
		Local:    h.local,
		Backups:  h.backups,
	})
	require.NoError(t, err)
	return s
}

func TestRegister_PublishesAndStores(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()

	state, err := h.session.State(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StateUnregistered, state)

	card, err := h.session.Register(ctx)
	require.NoError(t, err)

	pub, err := h.session.PublicKey()
	require.NoError(t, err)
	require.Equal(t, h.provider.ExportPublicKey(pub), card.PublicKey)

	cards, err := h.resolver.SearchCards(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, cards, 1)

	state, err = h.session.State(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StateRegistered, state)

	_, err = h.session.Register(ctx)
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	cards, err = h.resolver.SearchCards(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, cards, 1)
}

func TestRegister_DiscardsStaleLocalKey(t *testing.T) {
	h := newHarness(t, "bob")
	require.NoError(t, h.local.Save([]byte("leftover")))

	_, err := h.session.Register(context.Background())
	require.NoError(t, err)

	priv, err := h.session.PrivateKey()
	require.NoError(t, err)
	require.NotEqual(t, []byte("leftover"), h.provider.ExportPrivateKey(priv))
}

func TestRegister_MultipleRecords(t *testing.T) {
	h := newHarness(t, "carol")
	ctx := context.Background()
	for range 2 {
		kp, err := h.provider.GenerateKeyPair()
		require.NoError(t, err)
		_, err = h.resolver.Publish(ctx, kp, "")
		require.NoError(t, err)
	}

	_, err := h.session.Register(ctx)
	require.ErrorIs(t, err, domain.MultipleRecords("carol"))
	_, err = h.session.RotatePrivateKey(ctx)
	require.ErrorIs(t, err, domain.ErrMultipleRecords)
	_, err = h.session.State(ctx)
	require.ErrorIs(t, err, domain.ErrMultipleRecords)
}

func TestRotate_RecoversLostKey(t *testing.T) {
	h := newHarness(t, "dave")
	ctx := context.Background()

	_, err := h.session.RotatePrivateKey(ctx)
	require.ErrorIs(t, err, domain.ErrRegistrationRequired)

	first, err := h.session.Register(ctx)
	require.NoError(t, err)

	_, err = h.session.RotatePrivateKey(ctx)
	require.ErrorIs(t, err, domain.ErrPrivateKeyAlreadyExists)

	require.NoError(t, h.session.Cleanup())
	state, err := h.session.State(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StateKeyLost, state)

	second, err := h.session.RotatePrivateKey(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.PreviousCardID)

	ok, err := h.session.HasLocalPrivateKey()
	require.NoError(t, err)
	require.True(t, ok)

	pub, err := h.resolver.LookupPublicKey(ctx, "dave")
	require.NoError(t, err)
	mine, err := h.session.PublicKey()
	require.NoError(t, err)
	require.Equal(t, mine, pub)

	_, err = h.session.RotatePrivateKey(ctx)
	require.ErrorIs(t, err, domain.ErrPrivateKeyAlreadyExists)
}

// blockingResolver parks SearchCards until release is closed.
type blockingResolver struct {
	domain.CardResolver
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingResolver) SearchCards(ctx context.Context, ids ...domain.Identity) ([]domain.Card, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.CardResolver.SearchCards(ctx, ids...)
}

func TestLifecycle_ConcurrentCallFailsFast(t *testing.T) {
	h := newHarness(t, "erin")
	br := &blockingResolver{CardResolver: h.resolver, entered: make(chan struct{}), release: make(chan struct{})}
	s := h.newSession(t, "erin", br)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.Register(ctx)
		done <- err
	}()
	<-br.entered

	_, err := s.RotatePrivateKey(ctx)
	require.ErrorIs(t, err, domain.ErrConcurrentOperation)
	_, err = s.Register(ctx)
	require.ErrorIs(t, err, domain.ErrConcurrentOperation)

	close(br.release)
	require.NoError(t, <-done)

	// The guard is released after the first call finished.
	_, err = s.Register(ctx)
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
}

func TestLifecycle_GuardReleasedOnError(t *testing.T) {
	h := newHarness(t, "frank")
	ctx := context.Background()

	_, err := h.session.RotatePrivateKey(ctx)
	require.ErrorIs(t, err, domain.ErrRegistrationRequired)
	_, err = h.session.Register(ctx)
	require.NoError(t, err)
}

func TestBackupRestore(t *testing.T) {
	h := newHarness(t, "grace")
	ctx := context.Background()

	require.ErrorIs(t, h.session.BackupPrivateKey(ctx, "pw"), domain.ErrRegistrationRequired)

	_, err := h.session.Register(ctx)
	require.NoError(t, err)
	before, err := h.session.PrivateKey()
	require.NoError(t, err)

	require.NoError(t, h.session.BackupPrivateKey(ctx, "pw"))
	require.ErrorIs(t, h.session.BackupPrivateKey(ctx, "pw"), domain.ErrPrivateKeyAlreadyExists)

	require.ErrorIs(t, h.session.RestorePrivateKey(ctx, "pw"), domain.ErrPrivateKeyAlreadyExists)

	require.NoError(t, h.session.Cleanup())
	require.Equal(t, 1, h.backups.Len("grace"))

	err = h.session.RestorePrivateKey(ctx, "wrong")
	require.ErrorIs(t, err, domain.ErrBackupVault)
	require.ErrorIs(t, err, domain.ErrBackupNotFound)

	require.NoError(t, h.session.RestorePrivateKey(ctx, "pw"))
	after, err := h.session.PrivateKey()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestChangePasswordAndReset(t *testing.T) {
	h := newHarness(t, "heidi")
	ctx := context.Background()
	_, err := h.session.Register(ctx)
	require.NoError(t, err)
	require.NoError(t, h.session.BackupPrivateKey(ctx, "old"))

	require.ErrorIs(t, h.session.ChangePassword(ctx, "nope", "new"), domain.ErrBackupVault)
	require.NoError(t, h.session.ChangePassword(ctx, "old", "new"))
	require.Equal(t, 1, h.backups.Len("heidi"))

	require.NoError(t, h.session.Cleanup())
	require.ErrorIs(t, h.session.RestorePrivateKey(ctx, "old"), domain.ErrBackupVault)
	require.NoError(t, h.session.RestorePrivateKey(ctx, "new"))

	require.ErrorIs(t, h.session.ResetPrivateKeyBackup(ctx, "old"), domain.ErrBackupVault)
	require.NoError(t, h.session.ResetPrivateKeyBackup(ctx, "new"))
	require.Zero(t, h.backups.Len("heidi"))

	require.NoError(t, h.session.BackupPrivateKey(ctx, "a"))
	require.NoError(t, h.session.BackupPrivateKey(ctx, "b"))
	require.NoError(t, h.session.ResetAllPrivateKeyBackups(ctx))
	require.Zero(t, h.backups.Len("heidi"))
}

// failingVault fails every write.
type failingVault struct{ store.MemoryKeyVault }

func (f *failingVault) Save([]byte) error { return errors.New("disk full") }

func TestRegister_LocalVaultFailureIsReported(t *testing.T) {
	h := newHarness(t, "ivan")
	s, err := identity.New(identity.Deps{
		Identity: "ivan",
		Crypto:   h.provider,
		Cards:    h.resolver,
		Local:    &failingVault{},
		Backups:  h.backups,
	})
	require.NoError(t, err)

	_, err = s.Register(context.Background())
	require.ErrorIs(t, err, domain.ErrLocalVault)

	// The card is published; the identity is now in the crash-window state.
	state, err := s.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StateKeyLost, state)
}

func TestNew_Validates(t *testing.T) {
	_, err := identity.New(identity.Deps{})
	require.Error(t, err)
}
