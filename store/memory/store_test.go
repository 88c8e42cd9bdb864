package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/id"
	"github.com/xraph/bftrelay/internal/entity"
	"github.com/xraph/bftrelay/ledger"
	"github.com/xraph/bftrelay/registry"
)

func ctx() context.Context { return context.Background() }

var owner = common.HexToAddress("0x00000000000000000000000000000000000000f0")

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	s := New()

	if err := s.Migrate(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); !errors.Is(err, bftrelay.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// registry.Store
// ──────────────────────────────────────────────────

func newRelayer(hex string) *registry.Relayer {
	return &registry.Relayer{
		Entity:  entity.New(),
		ID:      id.NewRelayerID(),
		Address: common.HexToAddress(hex),
		AddedBy: owner,
	}
}

func TestRelayerCRUD(t *testing.T) {
	s := New()
	r := newRelayer("0x01")

	if err := s.AddRelayer(ctx(), r); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRelayer(ctx(), newRelayer("0x01")); !errors.Is(err, bftrelay.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	ok, err := s.IsRelayer(ctx(), r.Address)
	if err != nil || !ok {
		t.Fatalf("expected member, got ok=%v err=%v", ok, err)
	}

	got, err := s.GetRelayer(ctx(), r.Address)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID.String() != r.ID.String() {
		t.Fatalf("got id %s, want %s", got.ID, r.ID)
	}

	if err := s.RemoveRelayer(ctx(), r.Address); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveRelayer(ctx(), r.Address); !errors.Is(err, bftrelay.ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if _, err := s.GetRelayer(ctx(), r.Address); !errors.Is(err, bftrelay.ErrRelayerNotFound) {
		t.Fatalf("expected ErrRelayerNotFound, got %v", err)
	}
	if n, _ := s.CountRelayers(ctx()); n != 0 {
		t.Fatalf("expected 0 relayers, got %d", n)
	}
}

func TestRelayerListOrderAndPagination(t *testing.T) {
	s := New()
	for _, h := range []string{"0x03", "0x01", "0x02"} {
		if err := s.AddRelayer(ctx(), newRelayer(h)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListRelayers(ctx(), registry.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Address != common.HexToAddress("0x03") || all[2].Address != common.HexToAddress("0x02") {
		t.Fatalf("expected registration order, got %v", all)
	}

	page, _ := s.ListRelayers(ctx(), registry.ListOpts{Offset: 1, Limit: 1})
	if len(page) != 1 || page[0].Address != common.HexToAddress("0x01") {
		t.Fatalf("unexpected page %v", page)
	}

	empty, _ := s.ListRelayers(ctx(), registry.ListOpts{Offset: 10})
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil page, got %v", empty)
	}
}

// ──────────────────────────────────────────────────
// ledger.Store
// ──────────────────────────────────────────────────

func newExecution(fp string, target common.Address) *ledger.Execution {
	return &ledger.Execution{
		Entity:      entity.New(),
		ID:          id.NewExecutionID(),
		Fingerprint: common.HexToHash(fp),
		Target:      target,
		Expiration:  100,
		Signers:     []common.Address{common.HexToAddress("0x01")},
		ExecutedAt:  time.Now().UTC(),
	}
}

func TestMarkProcessed(t *testing.T) {
	s := New()
	target := common.HexToAddress("0xaa")
	exec := newExecution("0x01", target)

	if ok, _ := s.IsProcessed(ctx(), exec.Fingerprint); ok {
		t.Fatal("fresh fingerprint should not be processed")
	}
	if err := s.MarkProcessed(ctx(), exec); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkProcessed(ctx(), newExecution("0x01", target)); !errors.Is(err, bftrelay.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if ok, _ := s.IsProcessed(ctx(), exec.Fingerprint); !ok {
		t.Fatal("expected fingerprint processed")
	}

	got, err := s.GetExecution(ctx(), exec.Fingerprint)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID.String() != exec.ID.String() {
		t.Fatal("second mark must not overwrite the first")
	}

	if err := s.UnmarkProcessed(ctx(), exec.Fingerprint); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.IsProcessed(ctx(), exec.Fingerprint); ok {
		t.Fatal("expected mark rolled back")
	}
	if _, err := s.GetExecution(ctx(), exec.Fingerprint); !errors.Is(err, bftrelay.ErrExecutionNotFound) {
		t.Fatalf("expected ErrExecutionNotFound, got %v", err)
	}
}

func TestMarkProcessedConcurrent(t *testing.T) {
	s := New()
	target := common.HexToAddress("0xaa")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.MarkProcessed(ctx(), newExecution("0x42", target)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful mark, got %d", wins)
	}
}

func TestListExecutions(t *testing.T) {
	s := New()
	a := common.HexToAddress("0xaa")
	b := common.HexToAddress("0xbb")

	for i, fp := range []string{"0x01", "0x02", "0x03"} {
		target := a
		if i == 1 {
			target = b
		}
		if err := s.MarkProcessed(ctx(), newExecution(fp, target)); err != nil {
			t.Fatal(err)
		}
	}

	all, _ := s.ListExecutions(ctx(), ledger.ListOpts{})
	if len(all) != 3 || all[0].Fingerprint != common.HexToHash("0x03") {
		t.Fatalf("expected newest first, got %v", all)
	}

	onlyA, _ := s.ListExecutions(ctx(), ledger.ListOpts{Target: a})
	if len(onlyA) != 2 {
		t.Fatalf("expected 2 executions for target a, got %d", len(onlyA))
	}

	if n, _ := s.CountExecutions(ctx()); n != 3 {
		t.Fatalf("expected 3 executions, got %d", n)
	}
}

// ──────────────────────────────────────────────────
// event.Store
// ──────────────────────────────────────────────────

func TestEventLog(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	kinds := []event.Kind{event.KindRelayerAdded, event.KindRelayerAdded, event.KindRelayExecuted, event.KindRelayerRemoved}
	for i, k := range kinds {
		evt := &event.Event{
			Entity: entity.At(base.Add(time.Duration(i) * time.Minute)),
			ID:     id.NewEventID(),
			Kind:   k,
		}
		if err := s.AppendEvent(ctx(), evt); err != nil {
			t.Fatal(err)
		}
	}

	all, _ := s.ListEvents(ctx(), event.ListOpts{})
	if len(all) != 4 || all[0].Kind != event.KindRelayerRemoved {
		t.Fatalf("expected newest first, got %v", all)
	}

	added, _ := s.ListEvents(ctx(), event.ListOpts{Kind: event.KindRelayerAdded})
	if len(added) != 2 {
		t.Fatalf("expected 2 relayer.added events, got %d", len(added))
	}

	from := base.Add(90 * time.Second)
	recent, _ := s.ListEvents(ctx(), event.ListOpts{From: &from})
	if len(recent) != 2 {
		t.Fatalf("expected 2 events after %v, got %d", from, len(recent))
	}

	page, _ := s.ListEvents(ctx(), event.ListOpts{Offset: 1, Limit: 2})
	if len(page) != 2 || page[0].Kind != event.KindRelayExecuted {
		t.Fatalf("unexpected page %v", page)
	}
}
