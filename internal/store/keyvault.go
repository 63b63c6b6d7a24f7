package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"sealkit/internal/domain"
	"sealkit/internal/util/memzero"
)

const keyFileVersion = 1

// keyFile is the on-disk form of a stored private key. Exactly one of Key
// and Sealed is set.
type keyFile struct {
	V        int             `json:"v"`
	Identity domain.Identity `json:"identity"`
	Key      []byte          `json:"key,omitempty"`
	Sealed   *envelope       `json:"sealed,omitempty"`
}

// FileKeyVault stores one identity's private key under dir/keys.
type FileKeyVault struct {
	path       string
	identity   domain.Identity
	passphrase string
	mu         sync.Mutex
}

// NewFileKeyVault returns a vault for identity rooted at home. A non-empty
// passphrase seals the key at rest.
func NewFileKeyVault(home string, identity domain.Identity, passphrase string) *FileKeyVault {
	name := url.PathEscape(identity.String()) + ".key.json"
	return &FileKeyVault{
		path:       filepath.Join(home, "keys", name),
		identity:   identity,
		passphrase: passphrase,
	}
}

// Path returns the key file location.
func (v *FileKeyVault) Path() string { return v.path }

// Save writes privateKey. It fails with domain.ErrKeyExists when a key is
// already stored.
func (v *FileKeyVault) Save(privateKey []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	kf := keyFile{V: keyFileVersion, Identity: v.identity}
	if v.passphrase != "" {
		N, r, p := scryptParamsDefault()
		env, err := seal(v.passphrase, privateKey, []byte(v.identity), N, r, p)
		if err != nil {
			return fmt.Errorf("seal key: %w", err)
		}
		kf.Sealed = env
	} else {
		kf.Key = privateKey
	}
	return createJSON(v.path, kf, 0o600)
}

// Load returns the stored key, or false when none is stored.
func (v *FileKeyVault) Load() ([]byte, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var kf keyFile
	ok, err := readJSON(v.path, &kf)
	if err != nil || !ok {
		return nil, false, err
	}
	if kf.Identity != v.identity {
		return nil, false, fmt.Errorf("key file belongs to %q", kf.Identity)
	}
	switch {
	case kf.Sealed != nil:
		if v.passphrase == "" {
			return nil, false, fmt.Errorf("key file is sealed: %w", ErrWrongPassphrase)
		}
		raw, err := kf.Sealed.open(v.passphrase, []byte(v.identity))
		if err != nil {
			return nil, false, err
		}
		return raw, true, nil
	case len(kf.Key) > 0:
		return kf.Key, true, nil
	default:
		return nil, false, errors.New("key file has no key")
	}
}

// Delete removes the stored key. Deleting a missing key is not an error.
func (v *FileKeyVault) Delete() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	// Best effort overwrite before unlinking.
	if info, err := os.Stat(v.path); err == nil {
		junk := make([]byte, info.Size())
		_ = os.WriteFile(v.path, junk, 0o600)
		memzero.Zero(junk)
	}
	if err := os.Remove(v.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (v *FileKeyVault) Exists() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, err := os.Stat(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// MemoryKeyVault keeps the key in process memory.
type MemoryKeyVault struct {
	mu  sync.Mutex
	key []byte
}

// NewMemoryKeyVault returns an empty in-memory vault.
func NewMemoryKeyVault() *MemoryKeyVault { return &MemoryKeyVault{} }

func (v *MemoryKeyVault) Save(privateKey []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key != nil {
		return domain.ErrKeyExists
	}
	v.key = append([]byte(nil), privateKey...)
	return nil
}

func (v *MemoryKeyVault) Load() ([]byte, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key == nil {
		return nil, false, nil
	}
	return append([]byte(nil), v.key...), true, nil
}

func (v *MemoryKeyVault) Delete() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	memzero.Zero(v.key)
	v.key = nil
	return nil
}

func (v *MemoryKeyVault) Exists() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.key != nil, nil
}

// Compile-time assertions that both vaults implement domain.LocalKeyVault.
var (
	_ domain.LocalKeyVault = (*FileKeyVault)(nil)
	_ domain.LocalKeyVault = (*MemoryKeyVault)(nil)
)
