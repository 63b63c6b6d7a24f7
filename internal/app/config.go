package app

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"sealkit/internal/blob"
	"sealkit/internal/crypto"
	"sealkit/internal/domain"
)

const (
	// DefaultDirectoryURL is the production directory. Cards fetched from it
	// must carry a valid issuer signature.
	DefaultDirectoryURL = "https://directory.sealkit.dev"

	ConfigFileName = "config.yaml"

	BackupHTTP   = "http"
	BackupRedis  = "redis"
	BackupMemory = "memory"

	LocalVaultFile   = "file"
	LocalVaultMemory = "memory"
)

// BackupConfig selects the backup vault.
type BackupConfig struct {
	Kind      string `yaml:"kind"`
	URL       string `yaml:"url"`
	RedisAddr string `yaml:"redis_addr"`
}

// Config holds runtime wiring options for building the app.
type Config struct {
	Home         string       `yaml:"home"`          // e.g. $HOME/.sealkit
	Identity     string       `yaml:"identity"`      // directory identity of this user
	DirectoryURL string       `yaml:"directory_url"` // directory base URL
	IssuerKey    string       `yaml:"issuer_key"`    // base58 Ed25519 issuer key
	Token        string       `yaml:"token"`         // bearer token for the cloud services
	LocalVault   string       `yaml:"local_vault"`
	Passphrase   string       `yaml:"passphrase"` // seals the local key file when set
	Backup       BackupConfig `yaml:"backup"`
	ChunkSize    int          `yaml:"chunk_size"`
	RateLimit    float64      `yaml:"rate_limit"` // cloud requests per second, 0 = unlimited
	LogLevel     string       `yaml:"log_level"`

	HTTP *http.Client `yaml:"-"` // optional; defaults to http.DefaultClient
}

// DefaultHome returns $HOME/.sealkit, or .sealkit when the home directory is
// unknown.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sealkit"
	}
	return filepath.Join(home, ".sealkit")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Home:         DefaultHome(),
		DirectoryURL: DefaultDirectoryURL,
		LocalVault:   LocalVaultFile,
		Backup:       BackupConfig{Kind: BackupHTTP},
		ChunkSize:    blob.DefaultChunkSize,
		RateLimit:    10,
		LogLevel:     "info",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func (c Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// StrictVerification reports whether cards need an issuer signature. Only
// the production directory is strict.
func (c Config) StrictVerification() bool { return c.DirectoryURL == DefaultDirectoryURL }

// BackupURL returns the backup service URL, defaulting to the directory.
func (c Config) BackupURL() string {
	if c.Backup.URL != "" {
		return c.Backup.URL
	}
	return c.DirectoryURL
}

// Issuer decodes IssuerKey, returning nil when it is empty.
func (c Config) Issuer() (*domain.Ed25519Public, error) {
	if c.IssuerKey == "" {
		return nil, nil
	}
	pub, err := crypto.DecodeSigningKey(c.IssuerKey)
	if err != nil {
		return nil, fmt.Errorf("issuer_key: %w", err)
	}
	return &pub, nil
}

// Validate checks that cfg can be wired.
func (c Config) Validate() error {
	var errs []error
	if c.Home == "" {
		errs = append(errs, errors.New("home is required"))
	}
	if c.Identity == "" {
		errs = append(errs, errors.New("identity is required"))
	}
	if u, err := url.Parse(c.DirectoryURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("directory_url %q is not an absolute URL", c.DirectoryURL))
	}
	if _, err := c.Issuer(); err != nil {
		errs = append(errs, err)
	}
	if c.StrictVerification() && c.IssuerKey == "" {
		errs = append(errs, errors.New("issuer_key is required for the production directory"))
	}
	switch c.LocalVault {
	case LocalVaultFile, LocalVaultMemory:
	default:
		errs = append(errs, fmt.Errorf("local_vault %q: want %s or %s", c.LocalVault, LocalVaultFile, LocalVaultMemory))
	}
	switch c.Backup.Kind {
	case BackupHTTP, BackupMemory:
	case BackupRedis:
		if c.Backup.RedisAddr == "" {
			errs = append(errs, errors.New("backup.redis_addr is required for the redis backup vault"))
		}
	default:
		errs = append(errs, fmt.Errorf("backup.kind %q: want http, redis or memory", c.Backup.Kind))
	}
	if c.ChunkSize < 0 {
		errs = append(errs, errors.New("chunk_size must not be negative"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate_limit must not be negative"))
	}
	return errors.Join(errs...)
}
