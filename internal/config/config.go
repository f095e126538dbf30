// ABOUTME: healthdash configuration management with backend selection.
// ABOUTME: JSON file under XDG config, HEALTHDASH_* env overrides via viper, storage factories.

package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/harperreed/healthdash/internal/blob"
	"github.com/harperreed/healthdash/internal/storage"
)

// EnvPrefix namespaces environment overrides, e.g. HEALTHDASH_BACKEND.
const EnvPrefix = "HEALTHDASH"

// Config stores healthdash configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default), "postgres" or "badger".
	Backend string `json:"backend,omitempty" mapstructure:"backend"`

	// DataDir is the root directory for local data (database, badger files, report blobs).
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/healthdash.
	DataDir string `json:"data_dir,omitempty" mapstructure:"data_dir"`

	// DatabaseURL is the Postgres connection string for the postgres backend.
	DatabaseURL string `json:"database_url,omitempty" mapstructure:"database_url"`

	// BlobStore selects where uploaded reports go: "local" (default) or "s3".
	BlobStore string `json:"blob_store,omitempty" mapstructure:"blob_store"`
	S3Bucket  string `json:"s3_bucket,omitempty" mapstructure:"s3_bucket"`
	S3Region  string `json:"s3_region,omitempty" mapstructure:"s3_region"`
	S3Prefix  string `json:"s3_prefix,omitempty" mapstructure:"s3_prefix"`

	// SessionSecret signs session tokens.
	SessionSecret string `json:"session_secret,omitempty" mapstructure:"session_secret"`

	// SyntheticFill enables placeholder chart values for metrics with no data.
	SyntheticFill bool `json:"synthetic_fill,omitempty" mapstructure:"synthetic_fill"`

	// ListenAddr is the HTTP API address for `healthdash serve`.
	ListenAddr string `json:"listen_addr,omitempty" mapstructure:"listen_addr"`

	// LogLevel is a zerolog level name. Defaults to warn.
	LogLevel string `json:"log_level,omitempty" mapstructure:"log_level"`
}

var keys = []string{
	"backend", "data_dir", "database_url", "blob_store", "s3_bucket", "s3_region",
	"s3_prefix", "session_secret", "synthetic_fill", "listen_addr", "log_level",
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return "sqlite"
	}
	return strings.ToLower(c.Backend)
}

// GetBlobStore returns the configured blob store, defaulting to "local".
func (c *Config) GetBlobStore() string {
	if c.BlobStore == "" {
		return "local"
	}
	return strings.ToLower(c.BlobStore)
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetListenAddr returns the HTTP listen address, defaulting to 127.0.0.1:8080.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == "" {
		return "127.0.0.1:8080"
	}
	return c.ListenAddr
}

// GetLogLevel returns the log level, defaulting to warn.
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "warn"
	}
	return c.LogLevel
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository implementation based on the configured backend.
func (c *Config) OpenStorage(ctx context.Context) (storage.Repository, error) {
	dataDir := c.GetDataDir()

	switch c.GetBackend() {
	case "sqlite":
		return storage.Open(filepath.Join(dataDir, "healthdash.db"))
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("postgres backend requires database_url")
		}
		return storage.OpenPostgres(ctx, c.DatabaseURL)
	case "badger":
		return storage.OpenKV(filepath.Join(dataDir, "badger"))
	default:
		return nil, fmt.Errorf("unknown backend: %q", c.Backend)
	}
}

// OpenBlobStore creates the report file store.
func (c *Config) OpenBlobStore(ctx context.Context) (blob.Store, error) {
	switch c.GetBlobStore() {
	case "local":
		return blob.NewLocal(filepath.Join(c.GetDataDir(), "reports"))
	case "s3":
		return blob.NewS3(ctx, c.S3Bucket, c.S3Region, c.S3Prefix)
	default:
		return nil, fmt.Errorf("unknown blob store: %q", c.BlobStore)
	}
}

// EnsureSessionSecret generates and saves a signing secret when none is set.
func (c *Config) EnsureSessionSecret() error {
	if c.SessionSecret != "" {
		return nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generate session secret: %w", err)
	}
	secret := hex.EncodeToString(buf)

	// Persist the secret on top of the file contents only, so environment
	// overrides stay out of config.json.
	onDisk, err := read(false)
	if err != nil {
		return err
	}
	onDisk.SessionSecret = secret
	if err := onDisk.Save(); err != nil {
		return err
	}
	c.SessionSecret = secret
	return nil
}

// GetConfigDir returns the healthdash config directory.
func GetConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "healthdash")
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.json")
}

// Load reads config from disk, then applies HEALTHDASH_* environment overrides.
func Load() (*Config, error) {
	return read(true)
}

func read(withEnv bool) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(GetConfigPath())
	v.SetConfigType("json")

	if withEnv {
		v.SetEnvPrefix(EnvPrefix)
		for _, key := range keys {
			if err := v.BindEnv(key); err != nil {
				return nil, fmt.Errorf("bind env %s: %w", key, err)
			}
		}
	}

	if _, err := os.Stat(GetConfigPath()); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
