// Package config loads servicecache settings from TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dshills/servicecache/internal/collection"
	"github.com/dshills/servicecache/internal/storage"
)

const (
	appName    = "servicecache"
	dbFileName = "cache.db"

	// EnvDBPath overrides db_path
	EnvDBPath = "SERVICECACHE_DB_PATH"

	defaultBatchSize = 100
)

// ErrNoServices is returned when no service is configured
var ErrNoServices = errors.New("no services configured")

type Config struct {
	DBPath          string          `koanf:"db_path"`
	Workers         int             `koanf:"workers"`           // executor pool size (default: runtime.NumCPU())
	LookupCacheSize int             `koanf:"lookup_cache_size"` // URL lookup memo entries per collection (default: 1000)
	Services        []ServiceConfig `koanf:"services"`
	Ingest          IngestConfig    `koanf:"ingest"`
}

// ServiceConfig names one service and its table prefix.
type ServiceConfig struct {
	Name   string `koanf:"name"`
	Prefix string `koanf:"prefix"`
}

// IngestConfig tunes catalog loading.
type IngestConfig struct {
	BatchSize int `koanf:"batch_size"` // tracks per batch (default: 100)
	Workers   int `koanf:"workers"`    // concurrent batches (default: runtime.NumCPU())
}

// Load reads the default config files, applies the environment override and
// fills in defaults.
func Load() (*Config, error) {
	return LoadFrom(getConfigPaths()...)
}

// LoadFrom reads the given TOML files in order, later files overriding
// earlier ones. Missing files are skipped.
func LoadFrom(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if env := os.Getenv(EnvDBPath); env != "" {
		cfg.DBPath = env
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.DBPath == "" {
		path, err := DefaultDBPath()
		if err != nil {
			return err
		}
		c.DBPath = path
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.LookupCacheSize <= 0 {
		c.LookupCacheSize = collection.DefaultLookupCacheSize
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = defaultBatchSize
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = runtime.NumCPU()
	}
	for i := range c.Services {
		if c.Services[i].Name == "" {
			c.Services[i].Name = c.Services[i].Prefix
		}
	}
	return nil
}

// Validate checks that at least one service is configured and that every
// prefix is usable and unique.
func (c *Config) Validate() error {
	if len(c.Services) == 0 {
		return ErrNoServices
	}
	seen := make(map[string]bool, len(c.Services))
	for _, s := range c.Services {
		if err := storage.ValidatePrefix(s.Prefix); err != nil {
			return fmt.Errorf("service %q: %w", s.Name, err)
		}
		if seen[s.Prefix] {
			return fmt.Errorf("duplicate service prefix %q", s.Prefix)
		}
		seen[s.Prefix] = true
	}
	return nil
}

// Service returns the service with the given name or prefix.
func (c *Config) Service(name string) (ServiceConfig, bool) {
	for _, s := range c.Services {
		if s.Name == name || s.Prefix == name {
			return s, true
		}
	}
	return ServiceConfig{}, false
}

// DefaultDBPath returns the database location under the XDG data directory,
// creating parent directories as needed.
func DefaultDBPath() (string, error) {
	path, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return "", fmt.Errorf("failed to resolve data path: %w", err)
	}
	return path, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/servicecache/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (highest priority)
		"config.toml",
	}
}
