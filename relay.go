package bftrelay

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/id"
	"github.com/xraph/bftrelay/internal/entity"
	"github.com/xraph/bftrelay/ledger"
	"github.com/xraph/bftrelay/observability"
	"github.com/xraph/bftrelay/registry"
	"github.com/xraph/bftrelay/scope"
	"github.com/xraph/bftrelay/signature"
	"github.com/xraph/bftrelay/store"
)

// Stats summarizes the relay's current state.
type Stats struct {
	Relayers       int            `json:"relayers"`
	Threshold      int            `json:"threshold"`
	FaultTolerance int            `json:"fault_tolerance"`
	Executions     int            `json:"executions"`
	Owner          common.Address `json:"owner"`
}

// ──────────────────────────────────────────────────
// Administrative surface
// ──────────────────────────────────────────────────

// AddRelayer registers addr. The caller attached to ctx must be the owner.
func (r *Relay) AddRelayer(ctx context.Context, addr common.Address) (_ *registry.Relayer, err error) {
	caller, err := r.authorize(ctx)
	if err != nil {
		return nil, err
	}
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero address", ErrInvalidRelayer)
	}

	ctx, span := r.tracer.StartRegistrySpan(ctx, "add", addr.Hex())
	defer func() { r.tracer.EndSpan(span, err) }()

	// Registered before the lock so subscribers run after it is released.
	var committed *event.Event
	defer func() { r.publish(ctx, committed) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	rel, err := r.registry.Add(ctx, addr, caller)
	if err != nil {
		return nil, err
	}

	evt := &event.Event{Kind: event.KindRelayerAdded, Relayer: addr}
	if err := r.appendEvent(ctx, evt); err != nil {
		if rbErr := r.registry.Remove(context.WithoutCancel(ctx), addr); rbErr != nil {
			r.logger.ErrorContext(ctx, "relayer add rollback failed", "relayer", addr.Hex(), "error", rbErr)
		}
		return nil, err
	}
	committed = evt

	r.observeRegistry(ctx, "add")
	r.logger.InfoContext(ctx, "relayer added", "relayer", addr.Hex(), "owner", caller.Hex())
	return rel, nil
}

// RemoveRelayer deregisters addr. The caller attached to ctx must be the owner.
func (r *Relay) RemoveRelayer(ctx context.Context, addr common.Address) (err error) {
	caller, err := r.authorize(ctx)
	if err != nil {
		return err
	}

	ctx, span := r.tracer.StartRegistrySpan(ctx, "remove", addr.Hex())
	defer func() { r.tracer.EndSpan(span, err) }()

	// Registered before the lock so subscribers run after it is released.
	var committed *event.Event
	defer func() { r.publish(ctx, committed) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, err := r.registry.Get(ctx, addr)
	if errors.Is(err, ErrRelayerNotFound) {
		return fmt.Errorf("%w: %s", ErrNotRegistered, addr.Hex())
	}
	if err != nil {
		return err
	}

	if err := r.registry.Remove(ctx, addr); err != nil {
		return err
	}

	evt := &event.Event{Kind: event.KindRelayerRemoved, Relayer: addr}
	if err := r.appendEvent(ctx, evt); err != nil {
		if rbErr := r.store.AddRelayer(context.WithoutCancel(ctx), prev); rbErr != nil {
			r.logger.ErrorContext(ctx, "relayer remove rollback failed", "relayer", addr.Hex(), "error", rbErr)
		}
		return err
	}
	committed = evt

	r.observeRegistry(ctx, "remove")
	r.logger.InfoContext(ctx, "relayer removed", "relayer", addr.Hex(), "owner", caller.Hex())
	return nil
}

// authorize returns the caller if it is the owner.
func (r *Relay) authorize(ctx context.Context) (common.Address, error) {
	caller, ok := scope.Caller(ctx)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no caller", ErrUnauthorized)
	}
	if caller != r.owner {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
	}
	return caller, nil
}

// ──────────────────────────────────────────────────
// Relay surface
// ──────────────────────────────────────────────────

// Relay verifies req and, if a quorum of registered relayers signed it and it
// is fresh and unprocessed, forwards its payload to the target.
//
// Any error leaves no trace: the fingerprint stays unmarked and no event is
// emitted. A request whose forward failed may be resubmitted before it expires.
func (r *Relay) Relay(ctx context.Context, req *Request) (_ *Receipt, err error) {
	if err := r.validate(req); err != nil {
		r.recordRelay(observability.ResultInvalid)
		return nil, err
	}

	// 1. Fingerprint.
	fp := signature.Fingerprint(req.Target, req.Payload, req.Expiration)

	state := StateReceived
	counted := 0
	ctx, span := r.tracer.StartRelaySpan(ctx, fp.Hex(), req.Target.Hex(), len(req.Signatures))
	defer func() {
		r.tracer.EndRelaySpan(span, state.String(), counted, err)
		r.recordRelay(relayResult(err))
	}()

	// Registered before the lock so subscribers run after it is released.
	var committed *event.Event
	defer func() { r.publish(ctx, committed) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	// 2. Recover and dedupe signers. Invalid signatures are skipped.
	digest := signature.Digest(fp)
	recovered := signature.NewSignerSet(len(req.Signatures))
	for i, sig := range req.Signatures {
		addr, recErr := signature.Recover(digest, sig)
		if recErr != nil {
			r.logger.DebugContext(ctx, "skipping invalid signature",
				"fingerprint", fp.Hex(),
				"index", i,
				"error", recErr,
			)
			if r.metrics != nil {
				r.metrics.InvalidSignatures.Inc()
			}
			continue
		}
		recovered.Add(addr)
	}

	// 3. Quorum of current members against the live threshold.
	signers, err := recovered.Filter(func(addr common.Address) (bool, error) {
		return r.store.IsRelayer(ctx, addr)
	})
	if err != nil {
		return nil, fmt.Errorf("relay: check membership: %w", err)
	}
	counted = signers.Len()

	threshold, err := r.registry.Threshold(ctx)
	if err != nil {
		return nil, fmt.Errorf("relay: derive threshold: %w", err)
	}
	if counted < threshold {
		return nil, fmt.Errorf("%w: %d of %d", ErrInsufficientSignatures, counted, threshold)
	}
	state = StateSignatureChecked

	// 4. Freshness against ledger time.
	now := r.clock.Now().UTC()
	if now.Unix() > 0 && uint64(now.Unix()) > req.Expiration {
		return nil, fmt.Errorf("%w: expired at %d, now %d", ErrRequestExpired, req.Expiration, now.Unix())
	}
	state = StateFreshnessChecked

	// 5. Replay.
	processed, err := r.store.IsProcessed(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("relay: check processed: %w", err)
	}
	if processed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, fp.Hex())
	}
	state = StateReplayChecked

	// 6. Mark before forwarding. The store insert is atomic, so a second
	// process racing on the same fingerprint loses here.
	exec := &ledger.Execution{
		Entity:      entity.At(now),
		ID:          id.NewExecutionID(),
		Fingerprint: fp,
		Target:      req.Target,
		Expiration:  req.Expiration,
		Signers:     signers.Addresses(),
		PayloadSize: len(req.Payload),
		ExecutedAt:  now,
	}
	if err := r.store.MarkProcessed(ctx, exec); err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, fp.Hex())
		}
		return nil, fmt.Errorf("relay: mark processed: %w", err)
	}

	// 7. Forward; a failure undoes the mark.
	fctx := ctx
	if r.config.ForwardTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, r.config.ForwardTimeout)
		defer cancel()
	}
	start := r.clock.Now()
	res, fwdErr := r.forwarder.Forward(fctx, req.Target, req.Payload, fp)
	if r.metrics != nil {
		r.metrics.RecordForward(r.clock.Since(start).Seconds())
	}
	if fwdErr != nil {
		if unErr := r.store.UnmarkProcessed(context.WithoutCancel(ctx), fp); unErr != nil {
			r.logger.ErrorContext(ctx, "rollback of processed mark failed",
				"fingerprint", fp.Hex(),
				"error", unErr,
			)
			return nil, errors.Join(fmt.Errorf("%w: %w", ErrForwardingFailed, fwdErr), unErr)
		}
		state = StateRolledBack
		r.logger.WarnContext(ctx, "forward failed, rolled back",
			"fingerprint", fp.Hex(),
			"target", req.Target.Hex(),
			"error", fwdErr,
		)
		return nil, fmt.Errorf("%w: %w", ErrForwardingFailed, fwdErr)
	}
	state = StateForwarded

	// The call has executed, so the mark stands even if the event cannot be logged.
	evt := &event.Event{
		Kind:        event.KindRelayExecuted,
		Target:      req.Target,
		Fingerprint: fp,
	}
	if evtErr := r.appendEvent(ctx, evt); evtErr != nil {
		r.logger.ErrorContext(ctx, "append relay.executed event failed",
			"fingerprint", fp.Hex(),
			"error", evtErr,
		)
	} else {
		committed = evt
	}
	state = StateCommitted

	r.logger.DebugContext(ctx, "relay executed",
		"fingerprint", fp.Hex(),
		"target", req.Target.Hex(),
		"signers", counted,
		"threshold", threshold,
	)

	return &Receipt{Execution: exec, Result: res, State: state}, nil
}

// appendEvent persists evt. Publishing is left to the caller, which must
// not hold r.mu while subscribers run.
func (r *Relay) appendEvent(ctx context.Context, evt *event.Event) error {
	evt.Entity = entity.At(r.clock.Now())
	evt.ID = id.NewEventID()
	if err := r.store.AppendEvent(ctx, evt); err != nil {
		return fmt.Errorf("relay: append event: %w", err)
	}
	return nil
}

// publish hands a committed event to subscribers. A nil evt is a no-op.
func (r *Relay) publish(ctx context.Context, evt *event.Event) {
	if evt != nil {
		r.bus.Publish(ctx, evt)
	}
}

func (r *Relay) recordRelay(result string) {
	if r.metrics != nil {
		r.metrics.RecordRelay(result)
	}
}

func (r *Relay) observeRegistry(ctx context.Context, op string) {
	if r.metrics == nil {
		return
	}
	n, err := r.registry.Count(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "count relayers for metrics", "error", err)
		return
	}
	r.metrics.RecordRegistry(op, n, registry.Threshold(n))
}

// SyncMetrics sets the relayer and threshold gauges from the store. Call it
// once after construction so a relay over a persistent store reports the
// existing registry before the first mutation.
func (r *Relay) SyncMetrics(ctx context.Context) error {
	if r.metrics == nil {
		return nil
	}
	n, err := r.registry.Count(ctx)
	if err != nil {
		return fmt.Errorf("relay: sync metrics: %w", err)
	}
	r.metrics.SetRegistry(n, registry.Threshold(n))
	return nil
}

func relayResult(err error) string {
	switch {
	case err == nil:
		return observability.ResultExecuted
	case errors.Is(err, ErrInsufficientSignatures):
		return observability.ResultInsufficient
	case errors.Is(err, ErrRequestExpired):
		return observability.ResultExpired
	case errors.Is(err, ErrAlreadyProcessed):
		return observability.ResultReplayed
	case errors.Is(err, ErrForwardingFailed):
		return observability.ResultForwardFail
	default:
		return observability.ResultError
	}
}

// ──────────────────────────────────────────────────
// Read surface
// ──────────────────────────────────────────────────

// Owner returns the identity allowed to mutate the relayer set.
func (r *Relay) Owner() common.Address {
	return r.owner
}

// Threshold returns the number of distinct relayer signatures currently required.
func (r *Relay) Threshold(ctx context.Context) (int, error) {
	return r.registry.Threshold(ctx)
}

// IsRelayer reports whether addr is a registered relayer.
func (r *Relay) IsRelayer(ctx context.Context, addr common.Address) (bool, error) {
	return r.registry.IsRelayer(ctx, addr)
}

// IsProcessed reports whether a fingerprint has been executed.
func (r *Relay) IsProcessed(ctx context.Context, fp common.Hash) (bool, error) {
	return r.store.IsProcessed(ctx, fp)
}

// Relayer returns the membership record for addr.
func (r *Relay) Relayer(ctx context.Context, addr common.Address) (*registry.Relayer, error) {
	return r.registry.Get(ctx, addr)
}

// Relayers lists registered relayers, oldest first.
func (r *Relay) Relayers(ctx context.Context, opts registry.ListOpts) ([]*registry.Relayer, error) {
	return r.registry.List(ctx, opts)
}

// Execution returns the record for an executed fingerprint.
func (r *Relay) Execution(ctx context.Context, fp common.Hash) (*ledger.Execution, error) {
	return r.store.GetExecution(ctx, fp)
}

// Executions lists executions, newest first.
func (r *Relay) Executions(ctx context.Context, opts ledger.ListOpts) ([]*ledger.Execution, error) {
	return r.store.ListExecutions(ctx, opts)
}

// Events lists committed events, newest first.
func (r *Relay) Events(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	return r.store.ListEvents(ctx, opts)
}

// Subscribe registers h for committed events and returns its unsubscribe func.
func (r *Relay) Subscribe(h event.Handler) func() {
	return r.bus.Subscribe(h)
}

// SubscribeKind registers h for committed events whose kind matches pattern
// (for example "relayer.*") and returns its unsubscribe func.
func (r *Relay) SubscribeKind(pattern string, h event.Handler) func() {
	return r.bus.Subscribe(event.Filter(pattern, h))
}

// Stats returns a snapshot of the relayer set and ledger size.
func (r *Relay) Stats(ctx context.Context) (*Stats, error) {
	n, err := r.registry.Count(ctx)
	if err != nil {
		return nil, err
	}
	execs, err := r.store.CountExecutions(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Relayers:       n,
		Threshold:      registry.Threshold(n),
		FaultTolerance: registry.FaultTolerance(n),
		Executions:     execs,
		Owner:          r.owner,
	}, nil
}

// Store returns the underlying store.
func (r *Relay) Store() store.Store {
	return r.store
}

// Config returns the active configuration.
func (r *Relay) Config() Config {
	return r.config
}
