package message_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sealkit/internal/crypto"
	"sealkit/internal/domain"
	"sealkit/internal/services/message"
)

// staticKeys is a KeySource holding one key pair.
type staticKeys struct {
	id domain.Identity
	kp *domain.KeyPair
}

func (s staticKeys) Identity() domain.Identity { return s.id }

func (s staticKeys) PrivateKey() (domain.PrivateKey, error) {
	if s.kp == nil {
		return domain.PrivateKey{}, domain.RegistrationRequired(s.id)
	}
	return s.kp.Private, nil
}

func newUser(t *testing.T, p *crypto.Provider, id domain.Identity) (*message.Codec, domain.KeyPair) {
	t.Helper()
	kp, err := p.GenerateKeyPair()
	require.NoError(t, err)
	return message.New(staticKeys{id: id, kp: &kp}, p, nil, nil), kp
}

func TestCodec_RoundTripForRecipientsAndSender(t *testing.T) {
	p := crypto.New()
	alice, aliceKP := newUser(t, p, "alice")
	bob, bobKP := newUser(t, p, "bob")
	carol, carolKP := newUser(t, p, "carol")

	env, err := alice.Encrypt([]byte("hi both"), bobKP.Public, carolKP.Public)
	require.NoError(t, err)

	for _, c := range []*message.Codec{bob, carol} {
		got, err := c.Decrypt(env, &aliceKP.Public)
		require.NoError(t, err)
		require.Equal(t, []byte("hi both"), got)
	}

	// The sender was added as a recipient implicitly.
	got, err := alice.Decrypt(env, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("hi both"), got)
}

func TestCodec_WrongSenderFailsClosed(t *testing.T) {
	p := crypto.New()
	alice, _ := newUser(t, p, "alice")
	bob, bobKP := newUser(t, p, "bob")
	_, malloryKP := newUser(t, p, "mallory")

	env, err := alice.Encrypt([]byte("secret"), bobKP.Public)
	require.NoError(t, err)

	got, err := bob.Decrypt(env, &malloryKP.Public)
	require.ErrorIs(t, err, domain.ErrIntegrityCheckFailed)
	require.Nil(t, got)
}

func TestCodec_TamperedEnvelope(t *testing.T) {
	p := crypto.New()
	alice, aliceKP := newUser(t, p, "alice")
	bob, bobKP := newUser(t, p, "bob")

	env, err := alice.Encrypt([]byte("do not touch"), bobKP.Public)
	require.NoError(t, err)

	for _, pos := range []int{0, len(env) / 2, len(env) - 1} {
		mod := append([]byte(nil), env...)
		mod[pos] ^= 0x80
		got, err := bob.Decrypt(mod, &aliceKP.Public)
		require.ErrorIs(t, err, domain.ErrIntegrityCheckFailed, "byte %d", pos)
		require.Nil(t, got)
	}
}

func TestCodec_NonRecipient(t *testing.T) {
	p := crypto.New()
	alice, aliceKP := newUser(t, p, "alice")
	_, bobKP := newUser(t, p, "bob")
	eve, _ := newUser(t, p, "eve")

	env, err := alice.Encrypt([]byte("x"), bobKP.Public)
	require.NoError(t, err)
	_, err = eve.Decrypt(env, &aliceKP.Public)
	require.ErrorIs(t, err, domain.ErrIntegrityCheckFailed)
}

func TestCodec_Text(t *testing.T) {
	p := crypto.New()
	alice, _ := newUser(t, p, "alice")

	env, err := alice.EncryptText("note to self ✓")
	require.NoError(t, err)
	got, err := alice.DecryptText(env, nil)
	require.NoError(t, err)
	require.Equal(t, "note to self ✓", got)

	_, err = alice.DecryptText("%%%", nil)
	require.ErrorIs(t, err, domain.ErrIntegrityCheckFailed)
}

func TestCodec_RequiresRegistration(t *testing.T) {
	c := message.New(staticKeys{id: "nobody"}, crypto.New(), nil, nil)
	_, err := c.Encrypt([]byte("x"))
	require.ErrorIs(t, err, domain.ErrRegistrationRequired)
	_, err = c.Decrypt([]byte("x"), nil)
	require.ErrorIs(t, err, domain.ErrRegistrationRequired)
}

func TestRecipients_DedupesByExport(t *testing.T) {
	p := crypto.New()
	_, a := newUser(t, p, "a")
	_, b := newUser(t, p, "b")

	got := message.Recipients(p, a.Public, []domain.PublicKey{b.Public, a.Public, b.Public})
	require.Equal(t, []domain.PublicKey{a.Public, b.Public}, got)
}
