package app_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"sealkit/internal/app"
	"sealkit/internal/backup"
	"sealkit/internal/cloud"
	"sealkit/internal/crypto"
	"sealkit/internal/domain"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, app.ConfigFileName)

	cfg, err := app.Load(path)
	require.NoError(t, err)
	require.Equal(t, app.DefaultDirectoryURL, cfg.DirectoryURL)
	require.True(t, cfg.StrictVerification())
	require.Equal(t, 64*1024, cfg.ChunkSize)

	yaml := []byte(`
identity: alice
directory_url: http://127.0.0.1:8080
backup:
  kind: redis
  redis_addr: localhost:6379
chunk_size: 4096
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	cfg, err = app.Load(path)
	require.NoError(t, err)
	require.Equal(t, "alice", cfg.Identity)
	require.False(t, cfg.StrictVerification())
	require.Equal(t, app.BackupRedis, cfg.Backup.Kind)
	require.Equal(t, 4096, cfg.ChunkSize)
	require.Equal(t, app.LocalVaultFile, cfg.LocalVault)
	require.NoError(t, cfg.Validate())

	require.NoError(t, os.WriteFile(path, []byte("identity: [oops"), 0o600))
	_, err = app.Load(path)
	require.Error(t, err)
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", app.ConfigFileName)
	cfg := app.Default()
	cfg.Identity = "bob"
	cfg.DirectoryURL = "http://localhost:9"
	require.NoError(t, cfg.Save(path))

	got, err := app.Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Identity, got.Identity)
	require.Equal(t, cfg.DirectoryURL, got.DirectoryURL)
}

func TestConfig_Validate(t *testing.T) {
	cfg := app.Default()
	err := cfg.Validate()
	require.ErrorContains(t, err, "identity is required")
	require.ErrorContains(t, err, "issuer_key is required")

	cfg.Identity = "alice"
	cfg.DirectoryURL = "not a url"
	cfg.Backup.Kind = "s3"
	cfg.LocalVault = "keychain"
	cfg.IssuerKey = "0OIl"
	err = cfg.Validate()
	require.ErrorContains(t, err, "directory_url")
	require.ErrorContains(t, err, "backup.kind")
	require.ErrorContains(t, err, "local_vault")
	require.ErrorContains(t, err, "issuer_key")

	_, issuerPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	cfg = app.Default()
	cfg.Identity = "alice"
	cfg.IssuerKey = crypto.EncodeSigningKey(issuerPub)
	require.NoError(t, cfg.Validate())
}

func TestNewWire_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(cloud.NewServer(cloud.NewDirectory(nil), backup.NewMemory(), cloud.ServerOptions{Token: "t"}))
	t.Cleanup(srv.Close)

	cfg := app.Default()
	cfg.Home = t.TempDir()
	cfg.Identity = "alice"
	cfg.DirectoryURL = srv.URL
	cfg.Token = "t"
	cfg.RateLimit = 0

	w, err := app.NewWire(context.Background(), cfg, app.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	ctx := context.Background()

	_, err = w.Session.Register(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Session.BackupPrivateKey(ctx, "pw"))

	env, err := w.Messages.EncryptText("hello")
	require.NoError(t, err)
	got, err := w.Messages.DecryptText(env, nil)
	require.NoError(t, err)
	require.Equal(t, "hello", got)

	require.NoError(t, w.Session.Cleanup())
	state, err := w.Session.State(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StateKeyLost, state)
	require.NoError(t, w.Session.RestorePrivateKey(ctx, "pw"))

	pub, err := w.Cards.LookupPublicKey(ctx, "alice")
	require.NoError(t, err)
	mine, err := w.Session.PublicKey()
	require.NoError(t, err)
	require.Equal(t, mine, pub)
}
