package extension

import (
	"log/slog"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/forward"
	"github.com/xraph/bftrelay/store"
)

// ExtOption configures the bftrelay extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend via a relay option.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.opts = append(e.opts, bftrelay.WithStore(s))
	}
}

// WithForwarder sets the forwarder via a relay option.
func WithForwarder(f forward.Forwarder) ExtOption {
	return func(e *Extension) {
		e.opts = append(e.opts, bftrelay.WithForwarder(f))
	}
}

// WithLogger sets the logger for the extension and the relay.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
		e.opts = append(e.opts, bftrelay.WithLogger(l))
	}
}

// WithPrefix sets the URL prefix for all relay routes.
func WithPrefix(prefix string) ExtOption {
	return func(e *Extension) {
		e.config.BasePath = prefix
	}
}

// WithConfig sets the extension configuration directly.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithRelayOption appends a raw bftrelay.Option to the extension.
func WithRelayOption(opt bftrelay.Option) ExtOption {
	return func(e *Extension) {
		e.opts = append(e.opts, opt)
	}
}

// WithDisableRoutes disables automatic route registration.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrations disables automatic store migration on Init.
func WithDisableMigrations() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
