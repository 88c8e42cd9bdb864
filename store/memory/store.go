// Package memory provides an in-memory Store implementation for tests and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/ledger"
	"github.com/xraph/bftrelay/registry"
	relaystore "github.com/xraph/bftrelay/store"
)

// compile-time interface check.
var _ relaystore.Store = (*Store)(nil)

// entry pairs a record with its insertion sequence, which breaks
// timestamp ties when ordering.
type entry[T any] struct {
	seq uint64
	v   *T
}

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	relayers   map[common.Address]entry[registry.Relayer]
	executions map[common.Hash]entry[ledger.Execution]
	events     []*event.Event // append order

	seq    uint64
	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		relayers:   make(map[common.Address]entry[registry.Relayer]),
		executions: make(map[common.Hash]entry[ledger.Execution]),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed once Close has been called.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return bftrelay.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

// ──────────────────────────────────────────────────
// registry.Store
// ──────────────────────────────────────────────────

// AddRelayer persists a membership. Returns ErrAlreadyRegistered on conflict.
func (s *Store) AddRelayer(_ context.Context, r *registry.Relayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relayers[r.Address]; ok {
		return bftrelay.ErrAlreadyRegistered
	}
	s.relayers[r.Address] = entry[registry.Relayer]{seq: s.next(), v: r}
	return nil
}

// RemoveRelayer deletes a membership. Returns ErrNotRegistered if absent.
func (s *Store) RemoveRelayer(_ context.Context, addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relayers[addr]; !ok {
		return bftrelay.ErrNotRegistered
	}
	delete(s.relayers, addr)
	return nil
}

// GetRelayer returns the membership for addr.
func (s *Store) GetRelayer(_ context.Context, addr common.Address) (*registry.Relayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.relayers[addr]
	if !ok {
		return nil, bftrelay.ErrRelayerNotFound
	}
	return e.v, nil
}

// IsRelayer reports whether addr is a member.
func (s *Store) IsRelayer(_ context.Context, addr common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.relayers[addr]
	return ok, nil
}

// ListRelayers returns members, oldest first.
func (s *Store) ListRelayers(_ context.Context, opts registry.ListOpts) ([]*registry.Relayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]entry[registry.Relayer], 0, len(s.relayers))
	for _, e := range s.relayers {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	result := make([]*registry.Relayer, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.v)
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// CountRelayers returns the number of members.
func (s *Store) CountRelayers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.relayers), nil
}

// ──────────────────────────────────────────────────
// ledger.Store
// ──────────────────────────────────────────────────

// IsProcessed reports whether fp has been marked.
func (s *Store) IsProcessed(_ context.Context, fp common.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.executions[fp]
	return ok, nil
}

// MarkProcessed inserts exec if its fingerprint is absent.
func (s *Store) MarkProcessed(_ context.Context, exec *ledger.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[exec.Fingerprint]; ok {
		return bftrelay.ErrAlreadyProcessed
	}
	s.executions[exec.Fingerprint] = entry[ledger.Execution]{seq: s.next(), v: exec}
	return nil
}

// UnmarkProcessed removes the mark for fp.
func (s *Store) UnmarkProcessed(_ context.Context, fp common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.executions, fp)
	return nil
}

// GetExecution returns the execution record for fp.
func (s *Store) GetExecution(_ context.Context, fp common.Hash) (*ledger.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.executions[fp]
	if !ok {
		return nil, bftrelay.ErrExecutionNotFound
	}
	return e.v, nil
}

// ListExecutions returns executions, newest first.
func (s *Store) ListExecutions(_ context.Context, opts ledger.ListOpts) ([]*ledger.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]entry[ledger.Execution], 0, len(s.executions))
	for _, e := range s.executions {
		if opts.Target != (common.Address{}) && e.v.Target != opts.Target {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })

	result := make([]*ledger.Execution, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.v)
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// CountExecutions returns the number of processed fingerprints.
func (s *Store) CountExecutions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.executions), nil
}

// ──────────────────────────────────────────────────
// event.Store
// ──────────────────────────────────────────────────

// AppendEvent appends an event to the log.
func (s *Store) AppendEvent(_ context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, evt)
	return nil
}

// ListEvents returns events newest first, optionally filtered.
func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0; i-- {
		if opts.Matches(s.events[i]) {
			result = append(result, s.events[i])
		}
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset >= len(items) {
		return items[:0]
	}
	if offset > 0 {
		items = items[offset:]
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
