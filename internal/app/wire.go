package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"sealkit/internal/backup"
	"sealkit/internal/cloud"
	"sealkit/internal/crypto"
	"sealkit/internal/domain"
	"sealkit/internal/observability"
	"sealkit/internal/services/directory"
	filesvc "sealkit/internal/services/file"
	identitysvc "sealkit/internal/services/identity"
	messagesvc "sealkit/internal/services/message"
	"sealkit/internal/store"
)

// Wire bundles all vaults, clients and services for the CLI.
type Wire struct {
	Config   Config
	Crypto   *crypto.Provider
	Cards    *directory.Resolver
	Local    domain.LocalKeyVault
	Backups  domain.BackupVault
	Session  *identitysvc.Session
	Messages *messagesvc.Codec
	Files    *filesvc.Codec
	Metrics  *observability.Metrics

	closers []func() error
}

// Options carries the ambient dependencies of NewWire.
type Options struct {
	Logger     zerolog.Logger
	Registerer prometheus.Registerer // nil means a private registry
}

// NewWire constructs the dependency graph from cfg.
func NewWire(ctx context.Context, cfg Config, opts Options) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	identity := domain.Identity(cfg.Identity)
	log := opts.Logger

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := observability.NewMetrics(reg)

	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clientOpts := cloud.ClientOptions{HTTP: httpClient, RateLimit: cfg.RateLimit, Burst: 5}
	if cfg.Token != "" {
		clientOpts.Tokens = cloud.StaticToken(cfg.Token)
	}

	provider := crypto.New()
	issuer, err := cfg.Issuer()
	if err != nil {
		return nil, err
	}
	verifier, err := directory.NewVerifier(provider, cfg.StrictVerification(), issuer)
	if err != nil {
		return nil, err
	}
	resolver := directory.New(identity,
		cloud.NewDirectoryClient(cfg.DirectoryURL, clientOpts),
		provider,
		verifier,
		directory.WithLogger(log),
		directory.WithMetrics(metrics),
	)

	w := &Wire{Config: cfg, Crypto: provider, Cards: resolver, Metrics: metrics}

	switch cfg.LocalVault {
	case LocalVaultMemory:
		w.Local = store.NewMemoryKeyVault()
	default:
		w.Local = store.NewFileKeyVault(cfg.Home, identity, cfg.Passphrase)
	}

	switch cfg.Backup.Kind {
	case BackupRedis:
		client, err := backup.Dial(ctx, cfg.Backup.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("backup vault: %w", err)
		}
		w.closers = append(w.closers, client.Close)
		w.Backups = backup.NewRedis(client)
	case BackupMemory:
		w.Backups = backup.NewMemory()
	default:
		w.Backups = cloud.NewBackupClient(cfg.BackupURL(), clientOpts)
	}

	w.Session, err = identitysvc.New(identitysvc.Deps{
		Identity: identity,
		Crypto:   provider,
		Cards:    resolver,
		Local:    w.Local,
		Backups:  w.Backups,
		Logger:   &log,
		Metrics:  metrics,
	})
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	w.Messages = messagesvc.New(w.Session, provider, &log, metrics)
	w.Files = filesvc.New(w.Session, provider, &log, metrics)
	return w, nil
}

// FileOptions returns codec options using the configured chunk size.
func (w *Wire) FileOptions(onProgress domain.ProgressFunc) filesvc.Options {
	return filesvc.Options{ChunkSize: w.Config.ChunkSize, OnProgress: onProgress}
}

// Close releases connections opened by NewWire.
func (w *Wire) Close() error {
	var errs []error
	for _, c := range w.closers {
		errs = append(errs, c())
	}
	w.closers = nil
	return errors.Join(errs...)
}
