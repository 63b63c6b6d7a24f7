package store

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const envelopeVersion = 1

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// sealed key has been modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key file")

// ErrKDFParams is returned for a key file whose scrypt parameters are out of
// the accepted range.
var ErrKDFParams = errors.New("key file KDF parameters out of range")

// envelope is the on-disk structure of a passphrase-protected key.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// seal derives a key from passphrase and encrypts raw. ad binds the
// envelope to its owner.
func seal(passphrase string, raw, ad []byte, N, r, p int) (*envelope, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte // zero nonce; salt-bound key is never reused
	ct := aead.Seal(nil, nonce[:], raw, append(salt[:], ad...))
	return &envelope{V: envelopeVersion, Salt: salt[:], N: N, R: r, P: p, Cipher: ct}, nil
}

// open decrypts the envelope with a key derived from passphrase.
func (e *envelope) open(passphrase string, ad []byte) ([]byte, error) {
	if e.V > envelopeVersion {
		return nil, fmt.Errorf("unsupported key file version %d", e.V)
	}
	if err := checkScryptParams(e.N, e.R, e.P); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), e.Salt, e.N, e.R, e.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte
	pt, err := aead.Open(nil, nonce[:], e.Cipher, append(append([]byte(nil), e.Salt...), ad...))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }

// maxScryptFactor bounds each stored parameter relative to the defaults.
const maxScryptFactor = 4

// checkScryptParams rejects parameters read from disk that would exceed a
// few times the default cost in memory or CPU.
func checkScryptParams(N, r, p int) error {
	dN, dr, dp := scryptParamsDefault()
	if N < 2 || N > dN*maxScryptFactor || r < 1 || r > dr*maxScryptFactor ||
		p < 1 || p > dp*maxScryptFactor {
		return fmt.Errorf("scrypt N=%d r=%d p=%d: %w", N, r, p, ErrKDFParams)
	}
	return nil
}
