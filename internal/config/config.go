// Package config loads and validates reviewsearch configuration.
//
// Configuration is resolved in three layers, later layers winning:
//  1. Built-in defaults
//  2. YAML config file (reviewsearch.yaml)
//  3. Environment variables (REVIEWSEARCH_*, plus DATA_DIR for
//     compatibility with existing deployments)
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up in the working directory.
const DefaultConfigFile = "reviewsearch.yaml"

// Duration wraps time.Duration with YAML string support ("5s", "250ms").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete reviewsearch configuration.
type Config struct {
	Version int           `yaml:"version"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address for the REST API.
	Addr string `yaml:"addr"`
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// StorageConfig configures the review store.
type StorageConfig struct {
	// DataDir is the directory holding reviews.jsonl and companions.
	DataDir string `yaml:"data_dir"`
	// LockTimeout bounds the wait for the store write lock. Exceeding it
	// yields a concurrency error rather than blocking the request.
	LockTimeout Duration `yaml:"lock_timeout"`
	// MaxReaders caps concurrent readers of the log.
	MaxReaders int `yaml:"max_readers"`
	// Watch enables the fsnotify watcher that detects appends made by
	// other processes sharing the data directory.
	Watch bool `yaml:"watch"`
}

// SearchConfig configures the search surface.
type SearchConfig struct {
	// DefaultLimit is used when a search request omits limit.
	DefaultLimit int `yaml:"default_limit"`
	// MaxLimit is the upper bound accepted for limit.
	MaxLimit int `yaml:"max_limit"`
	// TokenCacheSize is the LRU capacity for per-review token caches.
	TokenCacheSize int `yaml:"token_cache_size"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:            ":8000",
			LogLevel:        "info",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			DataDir:     "data",
			LockTimeout: Duration(5 * time.Second),
			MaxReaders:  64,
			Watch:       false,
		},
		Search: SearchConfig{
			DefaultLimit:   10,
			MaxLimit:       100,
			TokenCacheSize: 4096,
		},
	}
}

// Load reads configuration from path, layering it over defaults and then
// applying environment overrides. A missing file is not an error: defaults
// plus environment are returned.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults + env only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("REVIEWSEARCH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("REVIEWSEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	// DATA_DIR is the original deployment contract; the prefixed form wins.
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("REVIEWSEARCH_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("REVIEWSEARCH_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Storage.LockTimeout = Duration(d)
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	if c.Storage.LockTimeout <= 0 {
		return fmt.Errorf("storage.lock_timeout must be positive")
	}
	if c.Storage.MaxReaders < 1 {
		return fmt.Errorf("storage.max_readers must be at least 1")
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit must be in [1, max_limit]")
	}
	if c.Search.MaxLimit < 1 {
		return fmt.Errorf("search.max_limit must be at least 1")
	}
	if c.Search.TokenCacheSize < 1 {
		return fmt.Errorf("search.token_cache_size must be at least 1")
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Atomic write: temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
