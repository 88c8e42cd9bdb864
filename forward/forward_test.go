package forward_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay/forward"
)

var (
	target = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	fp     = common.HexToHash("0x01")
)

func TestRouterForward(t *testing.T) {
	r := forward.NewRouter()
	var got []byte
	r.Mount(target, forward.TargetFunc(func(_ context.Context, payload []byte) ([]byte, error) {
		got = payload
		return []byte("ok"), nil
	}))

	res, err := r.Forward(context.Background(), target, []byte{1, 2, 3}, fp)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("target saw %x", got)
	}
	if string(res.Return) != "ok" {
		t.Fatalf("expected return data ok, got %q", res.Return)
	}
}

func TestRouterUnknownTarget(t *testing.T) {
	r := forward.NewRouter()
	_, err := r.Forward(context.Background(), target, nil, fp)
	if !errors.Is(err, forward.ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
}

func TestRouterRevert(t *testing.T) {
	r := forward.NewRouter()
	boom := errors.New("boom")
	r.Mount(target, forward.TargetFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, boom
	}))

	_, err := r.Forward(context.Background(), target, nil, fp)
	if !errors.Is(err, forward.ErrReverted) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped revert, got %v", err)
	}

	r.Unmount(target)
	if _, err := r.Forward(context.Background(), target, nil, fp); !errors.Is(err, forward.ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget after unmount, got %v", err)
	}
}

func TestHTTPForwarderHappyPath(t *testing.T) {
	var headers http.Header
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("done"))
	}))
	defer srv.Close()

	f := forward.NewHTTPForwarder(5*time.Second, map[common.Address]string{target: srv.URL})
	res, err := f.Forward(context.Background(), target, []byte{0xca, 0xfe}, fp)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if string(res.Return) != "done" {
		t.Fatalf("expected body done, got %q", res.Return)
	}
	if !bytes.Equal(body, []byte{0xca, 0xfe}) {
		t.Fatalf("server received %x", body)
	}
	if headers.Get("X-Relay-Target") != target.Hex() {
		t.Errorf("missing target header, got %q", headers.Get("X-Relay-Target"))
	}
	if headers.Get("X-Relay-Fingerprint") != fp.Hex() {
		t.Errorf("missing fingerprint header, got %q", headers.Get("X-Relay-Fingerprint"))
	}
}

func TestHTTPForwarderNon2xxReverts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	f := forward.NewHTTPForwarder(5*time.Second, nil)
	f.SetTarget(target, srv.URL)

	res, err := f.Forward(context.Background(), target, nil, fp)
	if !errors.Is(err, forward.ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.StatusCode)
	}
	if len(res.Return) != 1024 {
		t.Fatalf("expected response capped at 1024 bytes, got %d", len(res.Return))
	}
}

func TestHTTPForwarderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := forward.NewHTTPForwarder(20*time.Millisecond, map[common.Address]string{target: srv.URL})
	if _, err := f.Forward(context.Background(), target, nil, fp); !errors.Is(err, forward.ErrReverted) {
		t.Fatalf("expected ErrReverted on timeout, got %v", err)
	}
}

func TestHTTPForwarderUnknownTarget(t *testing.T) {
	f := forward.NewHTTPForwarder(time.Second, nil)
	if _, err := f.Forward(context.Background(), target, nil, fp); !errors.Is(err, forward.ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
}
