package interfaces

import domaintypes "sealkit/internal/domain/types"

// CryptoProvider generates keys, signs, verifies, encrypts and decrypts.
type CryptoProvider interface {
	GenerateKeyPair() (domaintypes.KeyPair, error)
	ExtractPublicKey(priv domaintypes.PrivateKey) domaintypes.PublicKey

	// ExportPublicKey returns the canonical encoding used for equality checks.
	ExportPublicKey(pub domaintypes.PublicKey) []byte
	ImportPublicKey(raw []byte) (domaintypes.PublicKey, error)
	ExportPrivateKey(priv domaintypes.PrivateKey) []byte
	ImportPrivateKey(raw []byte) (domaintypes.PrivateKey, error)

	Sign(priv domaintypes.PrivateKey, data []byte) ([]byte, error)
	Verify(pub domaintypes.PublicKey, data, signature []byte) bool

	// SignThenEncrypt signs data with signer and encrypts data plus signature
	// for every recipient.
	SignThenEncrypt(
		data []byte,
		signer domaintypes.PrivateKey,
		recipients []domaintypes.PublicKey,
	) ([]byte, error)
	// DecryptThenVerify decrypts with recipient and verifies the embedded
	// signature against any of signers.
	DecryptThenVerify(
		ciphertext []byte,
		recipient domaintypes.PrivateKey,
		signers []domaintypes.PublicKey,
	) ([]byte, error)

	NewSigner() StreamSigner
	NewVerifier(signature []byte) StreamVerifier
	NewCipher(recipients []domaintypes.PublicKey, signature []byte) (StreamCipher, error)
	NewDecipher(recipient domaintypes.PrivateKey) (StreamDecipher, error)
}

// StreamSigner accumulates data and produces a signature.
type StreamSigner interface {
	Update(chunk []byte)
	Sign(priv domaintypes.PrivateKey) ([]byte, error)
}

// StreamVerifier accumulates data and checks it against a signature.
type StreamVerifier interface {
	Update(chunk []byte)
	Verify(pub domaintypes.PublicKey) bool
}

// StreamCipher encrypts a stream incrementally. Start must be called once
// before Update, and Final once after the last Update.
type StreamCipher interface {
	Start() ([]byte, error)
	Update(chunk []byte) ([]byte, error)
	Final() ([]byte, error)
	Dispose()
}

// StreamDecipher decrypts a stream incrementally. Signature is only
// meaningful after Final succeeded.
type StreamDecipher interface {
	Update(chunk []byte) ([]byte, error)
	Final() ([]byte, error)
	Signature() ([]byte, bool)
	Dispose()
}
