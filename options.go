package bftrelay

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/forward"
	"github.com/xraph/bftrelay/observability"
	"github.com/xraph/bftrelay/registry"
	"github.com/xraph/bftrelay/store"
)

// Relay is the BFT transaction relay.
type Relay struct {
	config    Config
	store     store.Store
	registry  *registry.Service
	forwarder forward.Forwarder
	bus       *event.Bus
	owner     common.Address
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer

	// mu serializes every state-changing invocation.
	mu sync.Mutex
}

// Option configures a Relay instance.
type Option func(*Relay) error

// New creates a new Relay with the given options.
// A store, an owner and a forwarder are required.
func New(opts ...Option) (*Relay, error) {
	r := &Relay{
		config: DefaultConfig(),
		clock:  clock.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.store == nil {
		return nil, ErrNoStore
	}
	if r.owner == (common.Address{}) {
		return nil, ErrNoOwner
	}
	if r.forwarder == nil {
		return nil, ErrNoForwarder
	}
	if r.bus == nil {
		r.bus = event.NewBus()
	}
	if r.tracer == nil {
		r.tracer = observability.NewTracer()
	}
	r.registry = registry.NewService(r.store, r.logger)
	return r, nil
}

// WithStore sets the persistence backend for the Relay instance.
func WithStore(s store.Store) Option {
	return func(r *Relay) error {
		r.store = s
		return nil
	}
}

// WithOwner sets the identity allowed to mutate the relayer set.
func WithOwner(owner common.Address) Option {
	return func(r *Relay) error {
		if owner == (common.Address{}) {
			return fmt.Errorf("%w: zero address", ErrNoOwner)
		}
		r.owner = owner
		return nil
	}
}

// WithForwarder sets where authorized payloads are delivered.
func WithForwarder(f forward.Forwarder) Option {
	return func(r *Relay) error {
		r.forwarder = f
		return nil
	}
}

// WithLogger sets the structured logger for the Relay instance.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) error {
		r.logger = logger
		return nil
	}
}

// WithClock sets the source of ledger time used for expiration checks.
func WithClock(c clock.Clock) Option {
	return func(r *Relay) error {
		r.clock = c
		return nil
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Relay) error {
		r.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(r *Relay) error {
		r.tracer = t
		return nil
	}
}

// WithEventBus sets the bus committed events are published to.
func WithEventBus(b *event.Bus) Option {
	return func(r *Relay) error {
		r.bus = b
		return nil
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(r *Relay) error {
		r.config = cfg
		return nil
	}
}

// WithForwardTimeout bounds each forwarded call.
func WithForwardTimeout(d time.Duration) Option {
	return func(r *Relay) error {
		r.config.ForwardTimeout = d
		return nil
	}
}

// WithMaxSignatures sets the largest accepted signature list.
func WithMaxSignatures(n int) Option {
	return func(r *Relay) error {
		r.config.MaxSignatures = n
		return nil
	}
}

// WithMaxPayloadSize sets the largest accepted payload in bytes.
func WithMaxPayloadSize(n int) Option {
	return func(r *Relay) error {
		r.config.MaxPayloadSize = n
		return nil
	}
}
