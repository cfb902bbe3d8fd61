// Package config loads client configuration from the environment.
// Variables are prefixed GROUPSHARE_, for example GROUPSHARE_STORE_BACKEND
// or GROUPSHARE_POSTGRES_DSN.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config holds everything needed to assemble a client: which document
// store backend to talk to, its connection details, and the signed-in
// principal for CLI sessions.
type Config struct {
	// StoreBackend selects the document store adapter: memory, sqlite,
	// postgres, redis or rest. "auto" picks sqlite with a per-user data
	// file, falling back to memory when no home directory exists.
	StoreBackend string `envconfig:"STORE_BACKEND" default:"auto"`

	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RestBaseURL string `envconfig:"REST_BASE_URL" default:""`

	// Principal is the email the CLI acts as. Empty means signed out.
	Principal string `envconfig:"PRINCIPAL" default:""`

	Debug bool `envconfig:"DEBUG" default:"false"`
}

// ResolveDefaults validates StoreBackend and derives backend-specific
// settings left empty.
func (c *Config) ResolveDefaults() error {
	if c.StoreBackend == "" || c.StoreBackend == "auto" {
		c.StoreBackend = "sqlite"
	}

	switch c.StoreBackend {
	case "memory", "redis":
	case "sqlite":
		if c.SQLitePath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				c.StoreBackend = "memory"
				break
			}
			c.SQLitePath = filepath.Join(home, ".groupshare", "groupshare.db")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres backend requires GROUPSHARE_POSTGRES_DSN")
		}
	case "rest":
		if c.RestBaseURL == "" {
			return fmt.Errorf("rest backend requires GROUPSHARE_REST_BASE_URL")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND: %s", c.StoreBackend)
	}
	return nil
}

// New creates a Config by parsing GROUPSHARE_-prefixed environment
// variables and resolving defaults.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("GROUPSHARE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
