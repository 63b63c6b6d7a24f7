package commands

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sealkit/internal/app"
	"sealkit/internal/observability"
)

// version is stamped at build time with -ldflags.
var version = "dev"

var (
	home       string
	configPath string
	identity   string
	directory  string
	issuerKey  string
	token      string
	backupKind string
	logLevel   string

	cfg    app.Config
	logger zerolog.Logger
	wire   *app.Wire
	input  *bufio.Reader
)

// skipWire marks commands that run without the dependency graph.
const skipWire = "skip-wire"

func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sealkit",
		Short:        "Identity keys and end-to-end encryption for payloads and files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if wire != nil {
				_ = wire.Close()
				wire = nil
			}
			input = bufio.NewReader(cmd.InOrStdin())
			if err := loadConfig(cmd); err != nil {
				return err
			}
			var err error
			logger, err = observability.NewLogger(observability.LoggerOptions{
				Service: "sealkit",
				Version: version,
				Level:   cfg.LogLevel,
				Console: true,
				Output:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			if cmd.Annotations[skipWire] != "" {
				return nil
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			wire, err = app.NewWire(cmd.Context(), cfg, app.Options{Logger: logger})
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			err := wire.Close()
			wire = nil
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&home, "home", "", "config dir (default ~/.sealkit)")
	pf.StringVar(&configPath, "config", "", "config file (default <home>/config.yaml)")
	pf.StringVar(&identity, "identity", "", "your directory identity")
	pf.StringVar(&directory, "directory", "", "directory base URL (e.g. http://127.0.0.1:8080)")
	pf.StringVar(&issuerKey, "issuer-key", "", "base58 issuer signing key")
	pf.StringVar(&token, "token", "", "bearer token for the cloud services")
	pf.StringVar(&backupKind, "backup", "", "backup vault: http, redis or memory")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		initCmd(),
		registerCmd(), rotateCmd(), statusCmd(), cleanupCmd(),
		backupCmd(), restoreCmd(), changePasswordCmd(), resetBackupCmd(),
		lookupCmd(),
		encryptCmd(), decryptCmd(), encryptFileCmd(), decryptFileCmd(),
	)
	return root
}

// loadConfig reads the config file and applies flags that were set.
func loadConfig(cmd *cobra.Command) error {
	dir := home
	if dir == "" {
		dir = app.DefaultHome()
	}
	path := configPath
	if path == "" {
		path = filepath.Join(dir, app.ConfigFileName)
	}
	var err error
	cfg, err = app.Load(path)
	if err != nil {
		return err
	}
	configPath = path

	flags := cmd.Flags()
	if flags.Changed("home") || cfg.Home == "" {
		cfg.Home = dir
	}
	overrides := []struct {
		flag string
		dst  *string
		val  string
	}{
		{"identity", &cfg.Identity, identity},
		{"directory", &cfg.DirectoryURL, directory},
		{"issuer-key", &cfg.IssuerKey, issuerKey},
		{"token", &cfg.Token, token},
		{"backup", &cfg.Backup.Kind, backupKind},
		{"log-level", &cfg.LogLevel, logLevel},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.dst = o.val
		}
	}
	return nil
}
