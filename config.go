package bftrelay

import "time"

// Config holds the configuration for a Relay instance.
type Config struct {
	// ForwardTimeout bounds a single forwarded call. 0 leaves the call
	// bounded only by the caller's context and the forwarder itself.
	ForwardTimeout time.Duration `json:"forward_timeout" yaml:"forward_timeout" mapstructure:"forward_timeout"`

	// MaxSignatures is the largest signature list a request may carry.
	MaxSignatures int `json:"max_signatures" yaml:"max_signatures" mapstructure:"max_signatures"`

	// MaxPayloadSize is the largest payload, in bytes, a request may carry.
	MaxPayloadSize int `json:"max_payload_size" yaml:"max_payload_size" mapstructure:"max_payload_size"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ForwardTimeout: 0,
		MaxSignatures:  256,
		MaxPayloadSize: 128 << 10,
	}
}
