package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/api"
)

// ErrNotInitialized is returned when the extension is used before Init.
var ErrNotInitialized = errors.New("extension: not initialized")

// Extension mounts a bftrelay instance into an application.
type Extension struct {
	config Config
	opts   []bftrelay.Option
	relay  *bftrelay.Relay
	logger *slog.Logger
}

// New creates a new bftrelay extension.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init validates the configuration, constructs the relay, migrates its
// store unless migrations are disabled and seeds the registry gauges.
// Options passed to New take precedence over configuration values.
func (e *Extension) Init(ctx context.Context) error {
	if err := e.config.Validate(); err != nil {
		return err
	}

	opts := append(e.config.ToRelayOptions(), e.opts...)
	r, err := bftrelay.New(opts...)
	if err != nil {
		return fmt.Errorf("extension: %w", err)
	}

	if !e.config.DisableMigrate {
		if err := r.Store().Migrate(ctx); err != nil {
			return fmt.Errorf("extension: migrate: %w", err)
		}
	}

	if err := r.SyncMetrics(ctx); err != nil {
		return fmt.Errorf("extension: %w", err)
	}

	e.relay = r
	e.logger.InfoContext(ctx, "bftrelay extension initialized",
		"owner", r.Owner().Hex(),
		"base_path", e.config.BasePath,
	)
	return nil
}

// Relay returns the relay instance, or nil before Init.
func (e *Extension) Relay() *bftrelay.Relay { return e.relay }

// Config returns the extension configuration.
func (e *Extension) Config() Config { return e.config }

// Prefix returns the configured URL prefix.
func (e *Extension) Prefix() string { return e.config.BasePath }

// Handler returns the net/http API mounted under the configured prefix.
func (e *Extension) Handler() (http.Handler, error) {
	if e.relay == nil {
		return nil, ErrNotInitialized
	}

	h := api.NewHandler(e.relay, e.logger,
		api.WithAuthSkew(e.config.AuthSkew),
		api.WithAuthRealm(e.config.BasePath),
		api.WithTargetRateLimit(e.config.TargetRateLimit),
	)

	prefix := strings.TrimSuffix(e.config.BasePath, "/")
	if prefix == "" {
		return h, nil
	}
	mux := http.NewServeMux()
	mux.Handle(prefix+"/", http.StripPrefix(prefix, h))
	return mux, nil
}

// RegisterRoutes registers the Forge routes under the configured prefix.
// It does nothing when routes are disabled.
func (e *Extension) RegisterRoutes(router forge.Router, log forge.Logger) error {
	if e.relay == nil {
		return ErrNotInitialized
	}
	if e.config.DisableRoutes {
		return nil
	}

	g := router.Group(e.config.BasePath)
	api.NewForgeAPI(e.relay, e.config.TargetRateLimit, log).RegisterRoutes(g)
	return nil
}

// Health checks store connectivity.
func (e *Extension) Health(ctx context.Context) error {
	if e.relay == nil {
		return ErrNotInitialized
	}
	return e.relay.Store().Ping(ctx)
}

// Stop closes the relay's store.
func (e *Extension) Stop() error {
	if e.relay == nil {
		return nil
	}
	return e.relay.Store().Close()
}
