package extension_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/extension"
	"github.com/xraph/bftrelay/forward"
	"github.com/xraph/bftrelay/observability"
	"github.com/xraph/bftrelay/scope"
	"github.com/xraph/bftrelay/store/memory"
)

const owner = "0x00000000000000000000000000000000000000f0"

func ctx() context.Context { return context.Background() }

func newExt(cfg extension.Config) *extension.Extension {
	return extension.New(
		extension.WithConfig(cfg),
		extension.WithStore(memory.New()),
		extension.WithForwarder(forward.NewRouter()),
	)
}

func TestInitAndServe(t *testing.T) {
	cfg := extension.DefaultConfig()
	cfg.Owner = owner
	cfg.MaxSignatures = 8
	ext := newExt(cfg)

	if _, err := ext.Handler(); !errors.Is(err, extension.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized before Init, got %v", err)
	}

	if err := ext.Init(ctx()); err != nil {
		t.Fatal(err)
	}
	if got := ext.Relay().Owner(); got != common.HexToAddress(owner) {
		t.Fatalf("unexpected owner %s", got.Hex())
	}
	if ext.Relay().Config().MaxSignatures != 8 {
		t.Fatalf("config not applied: %+v", ext.Relay().Config())
	}
	if err := ext.Health(ctx()); err != nil {
		t.Fatalf("health: %v", err)
	}

	h, err := ext.Handler()
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/bftrelay/threshold")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 under prefix, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/threshold")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 outside prefix, got %d", resp.StatusCode)
	}

	if err := ext.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestInitRequiresOwner(t *testing.T) {
	ext := newExt(extension.DefaultConfig())
	if err := ext.Init(ctx()); !errors.Is(err, bftrelay.ErrNoOwner) {
		t.Fatalf("expected ErrNoOwner, got %v", err)
	}
}

func TestInitSeedsRegistryGauges(t *testing.T) {
	st := memory.New()
	prev, err := bftrelay.New(
		bftrelay.WithStore(st),
		bftrelay.WithOwner(common.HexToAddress(owner)),
		bftrelay.WithForwarder(forward.NewRouter()),
	)
	if err != nil {
		t.Fatal(err)
	}
	asOwner := scope.WithCaller(ctx(), common.HexToAddress(owner))
	for _, a := range []string{"0x0a", "0x0b", "0x0c", "0x0d"} {
		if _, err := prev.AddRelayer(asOwner, common.HexToAddress(a)); err != nil {
			t.Fatal(err)
		}
	}

	cfg := extension.DefaultConfig()
	cfg.Owner = owner
	m := observability.NewMetrics(prometheus.NewRegistry())
	ext := extension.New(
		extension.WithConfig(cfg),
		extension.WithStore(st),
		extension.WithForwarder(forward.NewRouter()),
		extension.WithRelayOption(bftrelay.WithMetrics(m)),
	)
	if err := ext.Init(ctx()); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(m.Relayers); got != 4 {
		t.Fatalf("relayers gauge = %f, want 4", got)
	}
	if got := testutil.ToFloat64(m.Threshold); got != 3 {
		t.Fatalf("threshold gauge = %f, want 3", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := extension.DefaultConfig()
	cfg.Owner = "not-hex"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid owner to fail validation")
	}

	cfg = extension.DefaultConfig()
	cfg.TargetRateLimit = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected negative limit to fail validation")
	}
}

func TestEmptyPrefixServesAtRoot(t *testing.T) {
	cfg := extension.DefaultConfig()
	cfg.Owner = owner
	ext := extension.New(
		extension.WithConfig(cfg),
		extension.WithPrefix(""),
		extension.WithStore(memory.New()),
		extension.WithForwarder(forward.NewRouter()),
		extension.WithDisableMigrations(),
	)
	if err := ext.Init(ctx()); err != nil {
		t.Fatal(err)
	}

	h, _ := ext.Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
