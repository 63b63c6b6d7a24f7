package crypto

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"sealkit/internal/domain"
)

const (
	publicKeySize  = 32 + 32
	privateKeySize = 64 + 32
)

var ErrInvalidKey = errors.New("invalid key encoding")

// Provider is the Ed25519/X25519 crypto provider.
type Provider struct {
	segment int
}

// New returns a provider using DefaultSegmentSize.
func New() *Provider { return &Provider{segment: DefaultSegmentSize} }

// NewWithSegmentSize returns a provider that seals segments of n plaintext bytes.
func NewWithSegmentSize(n int) *Provider {
	if n <= 0 || n > maxSegment {
		n = DefaultSegmentSize
	}
	return &Provider{segment: n}
}

// GenerateKeyPair creates a signing pair and an exchange pair.
func (p *Provider) GenerateKeyPair() (domain.KeyPair, error) {
	edPriv, edPub, err := GenerateEd25519()
	if err != nil {
		return domain.KeyPair{}, err
	}
	xPriv, xPub, err := GenerateX25519()
	if err != nil {
		return domain.KeyPair{}, err
	}
	return domain.KeyPair{
		Private: domain.PrivateKey{Signing: edPriv, Exchange: xPriv},
		Public:  domain.PublicKey{Signing: edPub, Exchange: xPub},
	}, nil
}

func (p *Provider) ExtractPublicKey(priv domain.PrivateKey) domain.PublicKey {
	return extractPublic(priv)
}

func (p *Provider) ExportPublicKey(pub domain.PublicKey) []byte { return exportPublic(pub) }

func (p *Provider) ImportPublicKey(raw []byte) (domain.PublicKey, error) {
	var pub domain.PublicKey
	if len(raw) != publicKeySize {
		return pub, fmt.Errorf("%w: public key want %d bytes, got %d", ErrInvalidKey, publicKeySize, len(raw))
	}
	copy(pub.Signing[:], raw[:32])
	copy(pub.Exchange[:], raw[32:])
	return pub, nil
}

func (p *Provider) ExportPrivateKey(priv domain.PrivateKey) []byte {
	out := make([]byte, 0, privateKeySize)
	out = append(out, priv.Signing[:]...)
	return append(out, priv.Exchange[:]...)
}

// ImportPrivateKey parses an exported private key and checks that the
// embedded signing public key matches its seed.
func (p *Provider) ImportPrivateKey(raw []byte) (domain.PrivateKey, error) {
	var priv domain.PrivateKey
	if len(raw) != privateKeySize {
		return priv, fmt.Errorf("%w: private key want %d bytes, got %d", ErrInvalidKey, privateKeySize, len(raw))
	}
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if string(derived) != string(raw[:64]) {
		return priv, fmt.Errorf("%w: signing key does not match seed", ErrInvalidKey)
	}
	copy(priv.Signing[:], raw[:64])
	copy(priv.Exchange[:], raw[64:])
	return priv, nil
}

func (p *Provider) Sign(priv domain.PrivateKey, data []byte) ([]byte, error) {
	return SignDigest(priv.Signing, Digest(data)), nil
}

func (p *Provider) Verify(pub domain.PublicKey, data, signature []byte) bool {
	return VerifyDigest(pub.Signing, Digest(data), signature)
}

// SignThenEncrypt signs data, then encrypts data and signature as a single
// stream for every recipient.
func (p *Provider) SignThenEncrypt(
	data []byte,
	signer domain.PrivateKey,
	recipients []domain.PublicKey,
) ([]byte, error) {
	sig, err := p.Sign(signer, data)
	if err != nil {
		return nil, err
	}
	c, err := newStreamCipher(recipients, sig, p.segment)
	if err != nil {
		return nil, err
	}
	defer c.Dispose()

	out, err := c.Start()
	if err != nil {
		return nil, err
	}
	body, err := c.Update(data)
	if err != nil {
		return nil, err
	}
	out = append(out, body...)
	tail, err := c.Final()
	if err != nil {
		return nil, err
	}
	return append(out, tail...), nil
}

// DecryptThenVerify decrypts ciphertext and returns the plaintext only if the
// embedded signature verifies against one of signers.
func (p *Provider) DecryptThenVerify(
	ciphertext []byte,
	recipient domain.PrivateKey,
	signers []domain.PublicKey,
) ([]byte, error) {
	d := newStreamDecipher(recipient)
	defer d.Dispose()

	pt, err := d.Update(ciphertext)
	if err != nil {
		return nil, err
	}
	tail, err := d.Final()
	if err != nil {
		return nil, err
	}
	pt = append(pt, tail...)

	sig, ok := d.Signature()
	if !ok {
		return nil, ErrMissingSignature
	}
	digest := Digest(pt)
	for _, s := range signers {
		if VerifyDigest(s.Signing, digest, sig) {
			return pt, nil
		}
	}
	return nil, ErrSignature
}

func (p *Provider) NewSigner() domain.StreamSigner {
	return &streamSigner{h: blake3.New()}
}

func (p *Provider) NewVerifier(signature []byte) domain.StreamVerifier {
	return &streamVerifier{h: blake3.New(), signature: append([]byte(nil), signature...)}
}

func (p *Provider) NewCipher(recipients []domain.PublicKey, signature []byte) (domain.StreamCipher, error) {
	return newStreamCipher(recipients, signature, p.segment)
}

func (p *Provider) NewDecipher(recipient domain.PrivateKey) (domain.StreamDecipher, error) {
	return newStreamDecipher(recipient), nil
}

func extractPublic(priv domain.PrivateKey) domain.PublicKey {
	var pub domain.PublicKey
	copy(pub.Signing[:], priv.Signing[32:])
	// The only error X25519 reports is a low-order point, which a basepoint
	// multiplication cannot produce.
	pub.Exchange, _ = x25519Public(priv.Exchange)
	return pub
}

func exportPublic(pub domain.PublicKey) []byte {
	out := make([]byte, 0, publicKeySize)
	out = append(out, pub.Signing[:]...)
	return append(out, pub.Exchange[:]...)
}

// Compile-time assertion that Provider implements domain.CryptoProvider.
var _ domain.CryptoProvider = (*Provider)(nil)
