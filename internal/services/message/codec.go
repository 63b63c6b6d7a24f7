package message

import (
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"

	"sealkit/internal/domain"
	"sealkit/internal/observability"
)

// Codec signs-then-encrypts and decrypts-then-verifies payloads with the
// key of its KeySource.
type Codec struct {
	keys    domain.KeySource
	crypto  domain.CryptoProvider
	log     zerolog.Logger
	metrics *observability.Metrics
}

// New returns a payload codec. logger and metrics may be nil.
func New(keys domain.KeySource, crypto domain.CryptoProvider, logger *zerolog.Logger, metrics *observability.Metrics) *Codec {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Codec{keys: keys, crypto: crypto, log: log, metrics: metrics}
}

// Encrypt signs payload with the current private key and encrypts it for
// recipients and the sender.
func (c *Codec) Encrypt(payload []byte, recipients ...domain.PublicKey) (envelope []byte, err error) {
	defer func() { c.metrics.ObserveCrypto("encrypt", err) }()

	priv, err := c.keys.PrivateKey()
	if err != nil {
		return nil, err
	}
	defer priv.Wipe()

	rcpts := Recipients(c.crypto, c.crypto.ExtractPublicKey(priv), recipients)
	envelope, err = c.crypto.SignThenEncrypt(payload, priv, rcpts)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	c.log.Debug().Int("recipients", len(rcpts)).Int("size", len(payload)).Msg("payload encrypted")
	return envelope, nil
}

// Decrypt decrypts envelope with the current private key and verifies it
// was signed by sender. A nil sender means the envelope was written by this
// identity.
func (c *Codec) Decrypt(envelope []byte, sender *domain.PublicKey) (payload []byte, err error) {
	defer func() { c.metrics.ObserveCrypto("decrypt", err) }()

	priv, err := c.keys.PrivateKey()
	if err != nil {
		return nil, err
	}
	defer priv.Wipe()

	signer := c.crypto.ExtractPublicKey(priv)
	if sender != nil {
		signer = *sender
	}
	payload, err = c.crypto.DecryptThenVerify(envelope, priv, []domain.PublicKey{signer})
	if err != nil {
		return nil, domain.IntegrityCheckFailed(err)
	}
	return payload, nil
}

// EncryptText encrypts a string and returns the envelope as base64.
func (c *Codec) EncryptText(text string, recipients ...domain.PublicKey) (string, error) {
	envelope, err := c.Encrypt([]byte(text), recipients...)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(envelope), nil
}

// DecryptText reverses EncryptText.
func (c *Codec) DecryptText(envelope string, sender *domain.PublicKey) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", domain.IntegrityCheckFailed(fmt.Errorf("decode envelope: %w", err))
	}
	payload, err := c.Decrypt(raw, sender)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
