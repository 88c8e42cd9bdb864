// Package config loads the bftrelayd daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/xraph/bftrelay/extension"
	"github.com/xraph/bftrelay/internal/logger"
)

// Config is the daemon configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Relay configures the relay and its API.
	Relay extension.Config `yaml:"relay"`

	// Targets maps target addresses to the URLs payloads are POSTed to.
	Targets map[string]string `yaml:"targets"`

	// Logging configures the daemon logger.
	Logging logger.Config `yaml:"logging"`

	// Store selects the persistence backend.
	Store StoreConfig `yaml:"store"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// StoreConfig selects the persistence backend. The memory driver loses state
// on restart.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a Config with defaults applied.
func Default() *Config {
	return &Config{
		Listen:          ":8080",
		Relay:           extension.DefaultConfig(),
		Targets:         map[string]string{},
		Logging:         logger.Config{Level: "info", Format: "json"},
		Store:           StoreConfig{Driver: StoreMemory},
		Metrics:         MetricsConfig{Enabled: true, Path: "/metrics"},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads the YAML file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen is required")
	}
	if c.Relay.Owner == "" {
		return errors.New("relay.owner is required")
	}
	if err := c.Relay.Validate(); err != nil {
		return err
	}
	for addr, raw := range c.Targets {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("target %q is not a hex address", addr)
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("target %s: invalid url %q", addr, raw)
		}
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return errors.New("metrics.path is required when metrics are enabled")
	}
	return nil
}

// TargetURLs returns Targets keyed by parsed address.
func (c *Config) TargetURLs() map[common.Address]string {
	out := make(map[common.Address]string, len(c.Targets))
	for addr, u := range c.Targets {
		out[common.HexToAddress(addr)] = u
	}
	return out
}
