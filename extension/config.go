package extension

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay"
)

// Config holds configuration for the bftrelay extension.
// Fields can be set programmatically via ExtOption functions or loaded from
// YAML configuration files.
type Config struct {
	// Config embeds the core relay configuration.
	bftrelay.Config `json:",inline" yaml:",inline" mapstructure:",squash"`

	// Owner is the 0x-hex address allowed to change the relayer set.
	Owner string `json:"owner" yaml:"owner" mapstructure:"owner"`

	// BasePath is the URL prefix for all relay routes (default: "/bftrelay").
	BasePath string `json:"base_path" yaml:"base_path" mapstructure:"base_path"`

	// AuthSkew is how far an admin auth timestamp may drift (default: 5m).
	AuthSkew time.Duration `json:"auth_skew" yaml:"auth_skew" mapstructure:"auth_skew"`

	// TargetRateLimit caps relay submissions per target per second. 0 disables it.
	TargetRateLimit int `json:"target_rate_limit" yaml:"target_rate_limit" mapstructure:"target_rate_limit"`

	// DisableRoutes disables automatic route registration with the Forge router.
	DisableRoutes bool `json:"disable_routes" yaml:"disable_routes" mapstructure:"disable_routes"`

	// DisableMigrate disables automatic store migration on Init.
	DisableMigrate bool `json:"disable_migrate" yaml:"disable_migrate" mapstructure:"disable_migrate"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Config:   bftrelay.DefaultConfig(),
		BasePath: "/bftrelay",
		AuthSkew: 5 * time.Minute,
	}
}

// Validate checks fields that cannot be defaulted.
func (c Config) Validate() error {
	if c.Owner != "" && !common.IsHexAddress(c.Owner) {
		return fmt.Errorf("extension: owner %q is not a hex address", c.Owner)
	}
	if c.MaxSignatures < 0 || c.MaxPayloadSize < 0 || c.TargetRateLimit < 0 {
		return fmt.Errorf("extension: limits must not be negative")
	}
	return nil
}

// ToRelayOptions converts the embedded Config into bftrelay.Option values.
func (c Config) ToRelayOptions() []bftrelay.Option {
	var opts []bftrelay.Option

	if c.Owner != "" {
		opts = append(opts, bftrelay.WithOwner(common.HexToAddress(c.Owner)))
	}
	if c.ForwardTimeout > 0 {
		opts = append(opts, bftrelay.WithForwardTimeout(c.ForwardTimeout))
	}
	if c.MaxSignatures > 0 {
		opts = append(opts, bftrelay.WithMaxSignatures(c.MaxSignatures))
	}
	if c.MaxPayloadSize > 0 {
		opts = append(opts, bftrelay.WithMaxPayloadSize(c.MaxPayloadSize))
	}

	return opts
}
