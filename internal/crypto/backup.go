package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"sealkit/internal/domain"
	"sealkit/internal/util/memzero"
)

const (
	KeyBytes = 32

	backupKDFTime    = 2
	backupKDFMemory  = 64 * 1024
	backupKDFThreads = 1
	backupIDBytes    = 16
)

var errSealedTooShort = errors.New("sealed backup is too short")

// BackupKey is derived from a backup password. ID addresses the backup in the
// vault; the key-encryption key never leaves this value.
type BackupKey struct {
	ID  string
	kek []byte
}

// DeriveBackupKey derives the backup id and key-encryption key for identity
// from password using Argon2id. The salt is bound to the identity so equal
// passwords of different users yield unrelated ids.
func DeriveBackupKey(password string, identity domain.Identity) (BackupKey, error) {
	salt := sha256.Sum256([]byte("sealkit-backup" + identity.String()))
	master := argon2.IDKey([]byte(password), salt[:], backupKDFTime, backupKDFMemory, backupKDFThreads, KeyBytes)
	defer memzero.Zero(master)

	id := make([]byte, backupIDBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte("backup-id")), id); err != nil {
		return BackupKey{}, err
	}
	kek := make([]byte, KeyBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte("backup-kek")), kek); err != nil {
		return BackupKey{}, err
	}
	return BackupKey{ID: hex.EncodeToString(id), kek: kek}, nil
}

// Seal encrypts an exported private key for storage in the backup vault.
// The identity is bound as associated data.
func (k BackupKey) Seal(identity domain.Identity, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(k.kek)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, []byte(identity)), nil
}

// Open decrypts a sealed backup.
func (k BackupKey) Open(identity domain.Identity, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(k.kek)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, errSealedTooShort
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, []byte(identity))
	if err != nil {
		return nil, ErrAuthentication
	}
	return pt, nil
}

// Wipe zeroes the key-encryption key.
func (k *BackupKey) Wipe() { memzero.Zero(k.kek) }
