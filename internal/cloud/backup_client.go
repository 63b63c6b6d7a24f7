package cloud

import (
	"context"
	"net/http"
	"net/url"

	"sealkit/internal/domain"
)

// BackupClient is the HTTP Backup Vault client.
type BackupClient struct {
	c client
}

// NewBackupClient returns a client for the backup service at base.
func NewBackupClient(base string, opts ClientOptions) *BackupClient {
	return &BackupClient{c: newClient(base, opts)}
}

func backupPath(identity domain.Identity, id string) string {
	p := "/v1/backups/" + url.PathEscape(identity.String())
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (b *BackupClient) Store(ctx context.Context, identity domain.Identity, id string, encryptedKey []byte) error {
	return b.c.do(ctx, http.MethodPut, backupPath(identity, id), backupBody{Key: encryptedKey}, nil)
}

func (b *BackupClient) Fetch(ctx context.Context, identity domain.Identity, id string) ([]byte, error) {
	var out backupBody
	if err := b.c.do(ctx, http.MethodGet, backupPath(identity, id), nil, &out); err != nil {
		return nil, err
	}
	return out.Key, nil
}

func (b *BackupClient) Delete(ctx context.Context, identity domain.Identity, id string) error {
	return b.c.do(ctx, http.MethodDelete, backupPath(identity, id), nil, nil)
}

func (b *BackupClient) DeleteAll(ctx context.Context, identity domain.Identity) error {
	return b.c.do(ctx, http.MethodDelete, backupPath(identity, ""), nil, nil)
}

func (b *BackupClient) Replace(ctx context.Context, identity domain.Identity, oldID, newID string, encryptedKey []byte) error {
	return b.c.do(ctx, http.MethodPost, backupPath(identity, oldID)+"/actions/replace",
		replaceRequest{NewID: newID, Key: encryptedKey}, nil)
}

var _ domain.BackupVault = (*BackupClient)(nil)
