package interfaces

import (
	"context"

	domaintypes "sealkit/internal/domain/types"
)

// LocalKeyVault is the authoritative local copy of one identity's private key.
//
// Save must return an error matching domain.ErrKeyExists when a key is
// already stored.
type LocalKeyVault interface {
	Save(privateKey []byte) error
	Load() ([]byte, bool, error)
	Delete() error
	Exists() (bool, error)
}

// BackupVault stores password-protected private key backups, namespaced by
// identity and addressed by a password-derived id.
type BackupVault interface {
	Store(ctx context.Context, identity domaintypes.Identity, id string, encryptedKey []byte) error
	Fetch(ctx context.Context, identity domaintypes.Identity, id string) ([]byte, error)
	Delete(ctx context.Context, identity domaintypes.Identity, id string) error
	DeleteAll(ctx context.Context, identity domaintypes.Identity) error
	// Replace atomically swaps the backup at oldID for encryptedKey at newID.
	Replace(
		ctx context.Context,
		identity domaintypes.Identity,
		oldID, newID string,
		encryptedKey []byte,
	) error
}
