package domain

import (
	interfaces "sealkit/internal/domain/interfaces"
	types "sealkit/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Identity       = types.Identity
	Fingerprint    = types.Fingerprint
	KeyID          = types.KeyID
	KeyState       = types.KeyState
	LookupResult   = types.LookupResult
	X25519Public   = types.X25519Public
	X25519Private  = types.X25519Private
	Ed25519Public  = types.Ed25519Public
	Ed25519Private = types.Ed25519Private
	PublicKey      = types.PublicKey
	PrivateKey     = types.PrivateKey
	KeyPair        = types.KeyPair
	Card           = types.Card
	CardSignature  = types.CardSignature
	Phase          = types.Phase
	Progress       = types.Progress
	ProgressFunc   = types.ProgressFunc
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	CryptoProvider   = interfaces.CryptoProvider
	StreamSigner     = interfaces.StreamSigner
	StreamVerifier   = interfaces.StreamVerifier
	StreamCipher     = interfaces.StreamCipher
	StreamDecipher   = interfaces.StreamDecipher
	DirectoryService = interfaces.DirectoryService
	TokenProvider    = interfaces.TokenProvider
	LocalKeyVault    = interfaces.LocalKeyVault
	BackupVault      = interfaces.BackupVault
	CardResolver     = interfaces.CardResolver
	KeySource        = interfaces.KeySource
)

const (
	StateUnregistered = types.StateUnregistered
	StateRegistered   = types.StateRegistered
	StateKeyLost      = types.StateKeyLost

	PhaseSigning    = types.PhaseSigning
	PhaseEncrypting = types.PhaseEncrypting
	PhaseDecrypting = types.PhaseDecrypting
	PhaseVerifying  = types.PhaseVerifying

	SignerSelf   = types.SignerSelf
	SignerIssuer = types.SignerIssuer
)
