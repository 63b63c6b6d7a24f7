package crypto_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"sealkit/internal/crypto"
	"sealkit/internal/domain"
)

func mustKeyPair(t *testing.T, p *crypto.Provider) domain.KeyPair {
	t.Helper()
	kp, err := p.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func TestProvider_KeyExportImport(t *testing.T) {
	p := crypto.New()
	kp := mustKeyPair(t, p)

	require.Equal(t, kp.Public, p.ExtractPublicKey(kp.Private))

	rawPub := p.ExportPublicKey(kp.Public)
	require.Len(t, rawPub, 64)
	pub, err := p.ImportPublicKey(rawPub)
	require.NoError(t, err)
	require.Equal(t, kp.Public, pub)

	rawPriv := p.ExportPrivateKey(kp.Private)
	require.Len(t, rawPriv, 96)
	priv, err := p.ImportPrivateKey(rawPriv)
	require.NoError(t, err)
	require.Equal(t, kp.Private, priv)

	_, err = p.ImportPublicKey(rawPub[:10])
	require.ErrorIs(t, err, crypto.ErrInvalidKey)

	rawPriv[40] ^= 0xff
	_, err = p.ImportPrivateKey(rawPriv)
	require.ErrorIs(t, err, crypto.ErrInvalidKey)
}

func TestProvider_SignVerify(t *testing.T) {
	p := crypto.New()
	kp := mustKeyPair(t, p)
	other := mustKeyPair(t, p)
	data := []byte("attack at dawn")

	sig, err := p.Sign(kp.Private, data)
	require.NoError(t, err)
	require.True(t, p.Verify(kp.Public, data, sig))
	require.False(t, p.Verify(other.Public, data, sig))
	require.False(t, p.Verify(kp.Public, []byte("attack at dusk"), sig))
}

func TestProvider_StreamSignerMatchesInMemory(t *testing.T) {
	p := crypto.New()
	kp := mustKeyPair(t, p)
	data := bytes.Repeat([]byte("0123456789"), 1000)

	signer := p.NewSigner()
	for off := 0; off < len(data); off += 333 {
		end := min(off+333, len(data))
		signer.Update(data[off:end])
	}
	streamed, err := signer.Sign(kp.Private)
	require.NoError(t, err)
	require.True(t, p.Verify(kp.Public, data, streamed))

	inMemory, err := p.Sign(kp.Private, data)
	require.NoError(t, err)
	v := p.NewVerifier(inMemory)
	v.Update(data[:10])
	v.Update(data[10:])
	require.True(t, v.Verify(kp.Public))
}

func TestProvider_SignThenEncryptRoundTrip(t *testing.T) {
	p := crypto.New()
	alice := mustKeyPair(t, p)
	bob := mustKeyPair(t, p)
	carol := mustKeyPair(t, p)
	msg := []byte("hello bob")

	ct, err := p.SignThenEncrypt(msg, alice.Private, []domain.PublicKey{alice.Public, bob.Public})
	require.NoError(t, err)

	for _, kp := range []domain.KeyPair{alice, bob} {
		pt, err := p.DecryptThenVerify(ct, kp.Private, []domain.PublicKey{alice.Public})
		require.NoError(t, err)
		require.Equal(t, msg, pt)
	}

	_, err = p.DecryptThenVerify(ct, carol.Private, []domain.PublicKey{alice.Public})
	require.ErrorIs(t, err, crypto.ErrNotRecipient)

	_, err = p.DecryptThenVerify(ct, bob.Private, []domain.PublicKey{carol.Public})
	require.ErrorIs(t, err, crypto.ErrSignature)
}

func TestProvider_DecryptWithoutSignature(t *testing.T) {
	p := crypto.New()
	kp := mustKeyPair(t, p)

	c, err := p.NewCipher([]domain.PublicKey{kp.Public}, nil)
	require.NoError(t, err)
	head, err := c.Start()
	require.NoError(t, err)
	body, err := c.Update([]byte("unsigned"))
	require.NoError(t, err)
	tail, err := c.Final()
	require.NoError(t, err)
	c.Dispose()

	ct := append(append(head, body...), tail...)
	_, err = p.DecryptThenVerify(ct, kp.Private, []domain.PublicKey{kp.Public})
	require.ErrorIs(t, err, crypto.ErrMissingSignature)
}

func TestProvider_NoRecipients(t *testing.T) {
	p := crypto.New()
	kp := mustKeyPair(t, p)
	_, err := p.SignThenEncrypt([]byte("x"), kp.Private, nil)
	require.ErrorIs(t, err, crypto.ErrNoRecipients)
}

func TestFingerprint_Stable(t *testing.T) {
	p := crypto.New()
	kp := mustKeyPair(t, p)
	raw := p.ExportPublicKey(kp.Public)

	require.Equal(t, crypto.Fingerprint(raw), crypto.Fingerprint(raw))
	require.NotEmpty(t, crypto.Fingerprint(raw).String())
	require.Equal(t, crypto.KeyIDOf(raw), crypto.KeyIDOf(raw))

	enc := crypto.EncodeSigningKey(kp.Public.Signing)
	dec, err := crypto.DecodeSigningKey(enc)
	require.NoError(t, err)
	require.Equal(t, kp.Public.Signing, dec)
}

func TestCardSignatures(t *testing.T) {
	p := crypto.New()
	kp := mustKeyPair(t, p)
	card := domain.Card{Identity: "alice", PublicKey: p.ExportPublicKey(kp.Public), CreatedAt: 1}

	sig := crypto.SignCard(kp.Private.Signing, card)
	pub, ok := crypto.CardSigningKey(card)
	require.True(t, ok)
	require.Equal(t, kp.Public.Signing, pub)
	require.True(t, crypto.VerifyCard(pub, card, sig))

	card.CreatedAt = 2
	require.False(t, crypto.VerifyCard(pub, card, sig))

	_, ok = crypto.CardSigningKey(domain.Card{PublicKey: []byte{1}})
	require.False(t, ok)
}

func TestCardSignature_NotAcceptedAsPayloadSignature(t *testing.T) {
	p := crypto.New()
	alice := mustKeyPair(t, p)
	bob := mustKeyPair(t, p)
	card := domain.Card{Identity: "alice", PublicKey: p.ExportPublicKey(alice.Public), CreatedAt: 1}
	snapshot := card.Snapshot()
	cardSig := crypto.SignCard(alice.Private.Signing, card)

	require.False(t, p.Verify(alice.Public, snapshot, cardSig))

	payloadSig, err := p.Sign(alice.Private, snapshot)
	require.NoError(t, err)
	require.False(t, crypto.VerifyCard(alice.Public.Signing, card, payloadSig))

	// Seal the public card snapshot with its lifted card signature.
	c, err := p.NewCipher([]domain.PublicKey{bob.Public}, cardSig)
	require.NoError(t, err)
	defer c.Dispose()
	env, err := c.Start()
	require.NoError(t, err)
	ct, err := c.Update(snapshot)
	require.NoError(t, err)
	env = append(env, ct...)
	tail, err := c.Final()
	require.NoError(t, err)
	env = append(env, tail...)

	_, err = p.DecryptThenVerify(env, bob.Private, []domain.PublicKey{alice.Public})
	require.ErrorIs(t, err, crypto.ErrSignature)
}
