package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sealkit/internal/backup"
	"sealkit/internal/cloud"
	"sealkit/internal/crypto"
	"sealkit/internal/domain"
	"sealkit/internal/observability"
)

var version = "dev"

var (
	addr       string
	token      string
	seedFile   string
	redisAddr  string
	redisPfx   string
	logLevel   string
	consoleLog bool
)

func main() {
	root := &cobra.Command{
		Use:          "cloudd",
		Short:        "Development directory and backup server for sealkit",
		SilenceUsage: true,
		RunE:         run,
	}
	f := root.Flags()
	f.StringVar(&addr, "addr", ":8080", "listen address")
	f.StringVar(&token, "token", os.Getenv("SEALKIT_TOKEN"), "bearer token required on /v1 routes")
	f.StringVar(&seedFile, "issuer-seed-file", "issuer.seed", "base58 issuer seed, created when missing")
	f.StringVar(&redisAddr, "redis", "", "Redis address for backups (default in-memory)")
	f.StringVar(&redisPfx, "redis-prefix", "sealkit:backup:", "Redis key prefix for backups")
	f.StringVar(&logLevel, "log-level", "info", "log level")
	f.BoolVar(&consoleLog, "console", false, "human-readable logs")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log, err := observability.NewLogger(observability.LoggerOptions{
		Service: "cloudd",
		Version: version,
		Level:   logLevel,
		Console: consoleLog,
	})
	if err != nil {
		return err
	}

	issuer, pub, err := loadIssuer(seedFile)
	if err != nil {
		return fmt.Errorf("issuer key: %w", err)
	}
	log.Info().Str("issuer_key", crypto.EncodeSigningKey(pub)).Str("seed_file", seedFile).Msg("issuer ready")

	vault, closeVault, err := openVault(ctx, log)
	if err != nil {
		return err
	}
	defer closeVault()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := &http.Server{
		Addr: addr,
		Handler: cloud.NewServer(cloud.NewDirectory(&issuer), vault, cloud.ServerOptions{
			Token:    token,
			Logger:   log,
			Metrics:  observability.NewMetrics(reg),
			Gatherer: reg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Bool("auth", token != "").Msg("cloudd listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openVault(ctx context.Context, log zerolog.Logger) (domain.BackupVault, func(), error) {
	if redisAddr == "" {
		log.Warn().Msg("backups are held in memory and lost on exit")
		return backup.NewMemory(), func() {}, nil
	}
	client, err := backup.Dial(ctx, redisAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	log.Info().Str("redis", redisAddr).Msg("backups stored in redis")
	return backup.NewRedis(client, backup.WithKeyPrefix(redisPfx)), func() { _ = client.Close() }, nil
}

// loadIssuer reads the issuer seed from path, generating it on first use.
func loadIssuer(path string) (domain.Ed25519Private, domain.Ed25519Public, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		priv, pub, err := crypto.GenerateEd25519()
		if err != nil {
			return priv, pub, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return priv, pub, err
		}
		seed := base58.Encode(priv[:32])
		return priv, pub, os.WriteFile(path, []byte(seed+"\n"), 0o600)
	}
	if err != nil {
		return domain.Ed25519Private{}, domain.Ed25519Public{}, err
	}
	seed, err := base58.Decode(strings.TrimSpace(string(raw)))
	if err != nil {
		return domain.Ed25519Private{}, domain.Ed25519Public{}, err
	}
	return crypto.Ed25519FromSeed(seed)
}
