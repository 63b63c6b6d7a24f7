package backup

import (
	"context"
	"sync"

	"sealkit/internal/domain"
)

// Memory is an in-memory backup vault.
type Memory struct {
	mu      sync.Mutex
	entries map[domain.Identity]map[string][]byte
}

// NewMemory returns an empty vault.
func NewMemory() *Memory {
	return &Memory{entries: make(map[domain.Identity]map[string][]byte)}
}

func (m *Memory) Store(_ context.Context, identity domain.Identity, id string, encryptedKey []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := m.entries[identity]
	if ns == nil {
		ns = make(map[string][]byte)
		m.entries[identity] = ns
	}
	if _, ok := ns[id]; ok {
		return domain.ErrBackupExists
	}
	ns[id] = append([]byte(nil), encryptedKey...)
	return nil
}

func (m *Memory) Fetch(_ context.Context, identity domain.Identity, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.entries[identity][id]
	if !ok {
		return nil, domain.ErrBackupNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Delete(_ context.Context, identity domain.Identity, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := m.entries[identity]
	if _, ok := ns[id]; !ok {
		return domain.ErrBackupNotFound
	}
	delete(ns, id)
	return nil
}

func (m *Memory) DeleteAll(_ context.Context, identity domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, identity)
	return nil
}

func (m *Memory) Replace(_ context.Context, identity domain.Identity, oldID, newID string, encryptedKey []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := m.entries[identity]
	if _, ok := ns[oldID]; !ok {
		return domain.ErrBackupNotFound
	}
	if _, ok := ns[newID]; ok && newID != oldID {
		return domain.ErrBackupExists
	}
	delete(ns, oldID)
	ns[newID] = append([]byte(nil), encryptedKey...)
	return nil
}

// Len returns the number of backups stored for identity.
func (m *Memory) Len(identity domain.Identity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[identity])
}

// Compile-time assertion that Memory implements domain.BackupVault.
var _ domain.BackupVault = (*Memory)(nil)
