package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/api"
	"github.com/xraph/bftrelay/forward"
	"github.com/xraph/bftrelay/scope"
	"github.com/xraph/bftrelay/signature"
	"github.com/xraph/bftrelay/store/memory"
)

var (
	targetAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	genesis    = time.Unix(1_700_000_000, 0)
)

type testEnv struct {
	srv   *httptest.Server
	relay *bftrelay.Relay
	clock *clock.Mock
	owner *signature.Signer
	calls *atomic.Int32
	fail  *atomic.Bool
}

// testServer creates a Handler backed by a memory store and returns the test env.
func testServer(t *testing.T, opts ...api.HandlerOption) *testEnv {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(genesis)

	owner, err := signature.GenerateSigner()
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{clock: mock, owner: owner, calls: &atomic.Int32{}, fail: &atomic.Bool{}}

	router := forward.NewRouter()
	router.Mount(targetAddr, forward.TargetFunc(func(_ context.Context, _ []byte) ([]byte, error) {
		env.calls.Add(1)
		if env.fail.Load() {
			return nil, errors.New("target reverted")
		}
		return []byte{0x01}, nil
	}))

	r, err := bftrelay.New(
		bftrelay.WithStore(memory.New()),
		bftrelay.WithOwner(owner.Address()),
		bftrelay.WithForwarder(router),
		bftrelay.WithClock(mock),
	)
	if err != nil {
		t.Fatal(err)
	}
	env.relay = r

	h := api.NewHandler(r, slog.Default(), append([]api.HandlerOption{api.WithClock(mock)}, opts...)...)
	env.srv = httptest.NewServer(h)
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) addRelayers(t *testing.T, n int) []*signature.Signer {
	t.Helper()
	ctx := scope.WithCaller(context.Background(), e.owner.Address())
	out := make([]*signature.Signer, 0, n)
	for range n {
		s, err := signature.GenerateSigner()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := e.relay.AddRelayer(ctx, s.Address()); err != nil {
			t.Fatal(err)
		}
		out = append(out, s)
	}
	return out
}

func do(t *testing.T, method, url string, body []byte, header http.Header) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, b)
	}
}

func (e *testEnv) domain() api.AuthDomain {
	return api.AuthDomain{Owner: e.owner.Address()}
}

// signed performs an owner-gated request signed by s. Each call signs a
// fresh timestamp one second after the previous one.
func (e *testEnv) signed(t *testing.T, s *signature.Signer, method, path string, body []byte) *http.Response {
	t.Helper()
	e.clock.Add(time.Second)
	auth, err := api.SignAuth(s, e.domain(), method, path, e.clock.Now(), body)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, method, e.srv.URL+path, body, http.Header{api.AuthHeader: {auth}})
}

func (e *testEnv) relayBody(t *testing.T, payload []byte, expiration uint64, signers ...*signature.Signer) []byte {
	t.Helper()
	req := api.RelayRequest{Target: targetAddr, Payload: payload, Expiration: expiration}
	for _, s := range signers {
		sig, err := s.SignRequest(targetAddr, payload, expiration)
		if err != nil {
			t.Fatal(err)
		}
		req.Signatures = append(req.Signatures, sig)
	}
	return mustJSON(t, req)
}

func fresh() uint64 { return uint64(genesis.Add(time.Minute).Unix()) }

// --- Threshold ---

func TestThreshold(t *testing.T) {
	env := testServer(t)

	resp := do(t, "GET", env.srv.URL+"/threshold", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	var th api.ThresholdResponse
	decodeBody(t, resp, &th)
	if th.Threshold != 1 {
		t.Fatalf("expected threshold 1 on empty registry, got %d", th.Threshold)
	}

	env.addRelayers(t, 4)

	resp = do(t, "GET", env.srv.URL+"/threshold", nil, nil)
	decodeBody(t, resp, &th)
	if th.Threshold != 3 {
		t.Fatalf("expected threshold 3 for 4 relayers, got %d", th.Threshold)
	}
}

// --- Relayers ---

func TestRelayers_AddRemove(t *testing.T) {
	env := testServer(t)
	relayer := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	resp := env.signed(t, env.owner, "POST", "/relayers", mustJSON(t, map[string]any{"address": relayer}))
	expectStatus(t, resp, http.StatusCreated)
	var created struct {
		Address common.Address `json:"address"`
		AddedBy common.Address `json:"added_by"`
	}
	decodeBody(t, resp, &created)
	if created.Address != relayer || created.AddedBy != env.owner.Address() {
		t.Fatalf("unexpected relayer record: %+v", created)
	}

	// Duplicate
	resp = env.signed(t, env.owner, "POST", "/relayers", mustJSON(t, map[string]any{"address": relayer}))
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	// Get
	resp = do(t, "GET", env.srv.URL+"/relayers/"+relayer.Hex(), nil, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// List
	resp = do(t, "GET", env.srv.URL+"/relayers", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 relayer, got %d", len(list))
	}

	// Remove
	resp = env.signed(t, env.owner, "DELETE", "/relayers/"+relayer.Hex(), nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = do(t, "GET", env.srv.URL+"/relayers/"+relayer.Hex(), nil, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// Remove again
	resp = env.signed(t, env.owner, "DELETE", "/relayers/"+relayer.Hex(), nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// Event log
	resp = do(t, "GET", env.srv.URL+"/events?kind=relayer.removed", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	var events []struct {
		Kind    string         `json:"kind"`
		Relayer common.Address `json:"relayer"`
	}
	decodeBody(t, resp, &events)
	if len(events) != 1 || events[0].Relayer != relayer {
		t.Fatalf("expected one relayer.removed event for %s, got %+v", relayer.Hex(), events)
	}
}

func TestRelayers_AddZeroAddress(t *testing.T) {
	env := testServer(t)

	resp := env.signed(t, env.owner, "POST", "/relayers", mustJSON(t, map[string]any{"address": common.Address{}}))
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestRelayers_AuthRequired(t *testing.T) {
	env := testServer(t)
	body := mustJSON(t, map[string]any{"address": "0x00000000000000000000000000000000000000a1"})

	resp := do(t, "POST", env.srv.URL+"/relayers", body, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = do(t, "POST", env.srv.URL+"/relayers", body, http.Header{api.AuthHeader: {"garbage"}})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestRelayers_NonOwnerForbidden(t *testing.T) {
	env := testServer(t)
	stranger, _ := signature.GenerateSigner()

	resp := env.signed(t, stranger, "POST", "/relayers", mustJSON(t, map[string]any{"address": stranger.Address()}))
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

func TestRelayers_StaleAuth(t *testing.T) {
	env := testServer(t)
	body := mustJSON(t, map[string]any{"address": "0x00000000000000000000000000000000000000a1"})

	auth, err := api.SignAuth(env.owner, env.domain(), "POST", "/relayers", env.clock.Now().Add(-10*time.Minute), body)
	if err != nil {
		t.Fatal(err)
	}
	resp := do(t, "POST", env.srv.URL+"/relayers", body, http.Header{api.AuthHeader: {auth}})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestRelayers_TamperedBody(t *testing.T) {
	env := testServer(t)
	signedBody := mustJSON(t, map[string]any{"address": "0x00000000000000000000000000000000000000a1"})
	sentBody := mustJSON(t, map[string]any{"address": "0x00000000000000000000000000000000000000a2"})

	auth, err := api.SignAuth(env.owner, env.domain(), "POST", "/relayers", env.clock.Now(), signedBody)
	if err != nil {
		t.Fatal(err)
	}

	// Recovery yields some other address, which is not the owner.
	resp := do(t, "POST", env.srv.URL+"/relayers", sentBody, http.Header{api.AuthHeader: {auth}})
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

func TestRelayers_ReplayedAuthRejected(t *testing.T) {
	env := testServer(t)
	a1 := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	addBody := mustJSON(t, map[string]any{"address": a1})

	addAuth, err := api.SignAuth(env.owner, env.domain(), "POST", "/relayers", env.clock.Now(), addBody)
	if err != nil {
		t.Fatal(err)
	}
	resp := do(t, "POST", env.srv.URL+"/relayers", addBody, http.Header{api.AuthHeader: {addAuth}})
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	env.clock.Add(time.Minute)
	resp = env.signed(t, env.owner, "DELETE", "/relayers/"+a1.Hex(), nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	// The captured add is still inside the skew window.
	env.clock.Add(time.Minute)
	resp = do(t, "POST", env.srv.URL+"/relayers", addBody, http.Header{api.AuthHeader: {addAuth}})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	if ok, _ := env.relay.IsRelayer(context.Background(), a1); ok {
		t.Fatal("revoked relayer must stay removed")
	}
}

func TestRelayers_DistinctRequestsSameSecond(t *testing.T) {
	env := testServer(t)

	for _, addr := range []string{
		"0x00000000000000000000000000000000000000a1",
		"0x00000000000000000000000000000000000000a2",
	} {
		resp := env.signed(t, env.owner, "POST", "/relayers", mustJSON(t, map[string]any{"address": addr}))
		expectStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}
}

func TestRelayers_ForeignRealmForbidden(t *testing.T) {
	env := testServer(t)
	body := mustJSON(t, map[string]any{"address": "0x00000000000000000000000000000000000000a1"})

	foreign := api.AuthDomain{Owner: env.owner.Address(), Realm: "/staging"}
	auth, err := api.SignAuth(env.owner, foreign, "POST", "/relayers", env.clock.Now(), body)
	if err != nil {
		t.Fatal(err)
	}

	// Recovery against this deployment's domain yields an address that is not the owner.
	resp := do(t, "POST", env.srv.URL+"/relayers", body, http.Header{api.AuthHeader: {auth}})
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

func TestRelayers_InvalidAddress(t *testing.T) {
	env := testServer(t)

	resp := do(t, "GET", env.srv.URL+"/relayers/not-an-address", nil, nil)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

// --- Relay ---

func TestRelay_EndToEnd(t *testing.T) {
	env := testServer(t)
	relayers := env.addRelayers(t, 4)
	payload := []byte{0xca, 0xfe}

	body := env.relayBody(t, payload, fresh(), relayers[:3]...)
	resp := do(t, "POST", env.srv.URL+"/relay", body, nil)
	expectStatus(t, resp, http.StatusOK)

	var out struct {
		Fingerprint common.Hash `json:"fingerprint"`
		State       string      `json:"state"`
	}
	decodeBody(t, resp, &out)

	want := signature.Fingerprint(targetAddr, payload, fresh())
	if out.Fingerprint != want {
		t.Fatalf("fingerprint %s, want %s", out.Fingerprint.Hex(), want.Hex())
	}
	if out.State != "committed" {
		t.Fatalf("expected committed, got %q", out.State)
	}
	if env.calls.Load() != 1 {
		t.Fatalf("expected 1 forwarded call, got %d", env.calls.Load())
	}

	// Replay check
	resp = do(t, "GET", env.srv.URL+"/processed/"+want.Hex(), nil, nil)
	expectStatus(t, resp, http.StatusOK)
	var processed api.ProcessedResponse
	decodeBody(t, resp, &processed)
	if !processed.Processed {
		t.Fatal("expected fingerprint to be processed")
	}

	// Execution record
	resp = do(t, "GET", env.srv.URL+"/executions/"+want.Hex(), nil, nil)
	expectStatus(t, resp, http.StatusOK)
	var exec map[string]any
	decodeBody(t, resp, &exec)
	if signers, _ := exec["signers"].([]any); len(signers) != 3 {
		t.Fatalf("expected 3 signers on execution, got %v", exec["signers"])
	}

	resp = do(t, "GET", env.srv.URL+"/executions?target="+targetAddr.Hex(), nil, nil)
	expectStatus(t, resp, http.StatusOK)
	var execs []map[string]any
	decodeBody(t, resp, &execs)
	if len(execs) != 1 {
		t.Fatalf("expected 1 execution for target, got %d", len(execs))
	}

	// Resubmission
	resp = do(t, "POST", env.srv.URL+"/relay", body, nil)
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	// Event log
	resp = do(t, "GET", env.srv.URL+"/events?kind=relay.executed", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	var events []map[string]any
	decodeBody(t, resp, &events)
	if len(events) != 1 {
		t.Fatalf("expected 1 relay.executed event, got %d", len(events))
	}
}

func TestRelay_Rejections(t *testing.T) {
	env := testServer(t)
	relayers := env.addRelayers(t, 4)

	tests := []struct {
		name string
		body []byte
		want int
	}{
		{"malformed body", []byte("{"), http.StatusBadRequest},
		{"insufficient signatures", env.relayBody(t, []byte{0x01}, fresh(), relayers[:2]...), http.StatusForbidden},
		{"expired", env.relayBody(t, []byte{0x02}, uint64(genesis.Unix())-1, relayers...), http.StatusGone},
		{"zero target", mustJSON(t, api.RelayRequest{Payload: []byte{0x03}, Expiration: fresh()}), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, "POST", env.srv.URL+"/relay", tt.body, nil)
			expectStatus(t, resp, tt.want)
			resp.Body.Close()
		})
	}

	if env.calls.Load() != 0 {
		t.Fatalf("rejected requests must not forward, got %d calls", env.calls.Load())
	}
}

func TestRelay_ForwardFailure(t *testing.T) {
	env := testServer(t)
	relayers := env.addRelayers(t, 1)
	env.fail.Store(true)

	payload := []byte{0x0f}
	resp := do(t, "POST", env.srv.URL+"/relay", env.relayBody(t, payload, fresh(), relayers...), nil)
	expectStatus(t, resp, http.StatusBadGateway)
	resp.Body.Close()

	fp := signature.Fingerprint(targetAddr, payload, fresh())
	resp = do(t, "GET", env.srv.URL+"/processed/"+fp.Hex(), nil, nil)
	var processed api.ProcessedResponse
	decodeBody(t, resp, &processed)
	if processed.Processed {
		t.Fatal("failed forward must leave the fingerprint unprocessed")
	}

	resp = do(t, "GET", env.srv.URL+"/executions/"+fp.Hex(), nil, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestRelay_TargetRateLimit(t *testing.T) {
	env := testServer(t, api.WithTargetRateLimit(1))
	relayers := env.addRelayers(t, 1)

	resp := do(t, "POST", env.srv.URL+"/relay", env.relayBody(t, []byte{0x01}, fresh(), relayers...), nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = do(t, "POST", env.srv.URL+"/relay", env.relayBody(t, []byte{0x02}, fresh(), relayers...), nil)
	expectStatus(t, resp, http.StatusTooManyRequests)
	resp.Body.Close()

	env.clock.Add(time.Second)

	resp = do(t, "POST", env.srv.URL+"/relay", env.relayBody(t, []byte{0x03}, fresh(), relayers...), nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

// --- Ledger, events, stats ---

func TestExecutions_InvalidFingerprint(t *testing.T) {
	env := testServer(t)

	for _, path := range []string{"/executions/0x1234", "/processed/zz", "/executions?target=nope"} {
		resp := do(t, "GET", env.srv.URL+path, nil, nil)
		expectStatus(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	}
}

func TestEvents_Filters(t *testing.T) {
	env := testServer(t)
	env.addRelayers(t, 2)

	resp := do(t, "GET", env.srv.URL+"/events?kind=bogus", nil, nil)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = do(t, "GET", env.srv.URL+"/events?from=yesterday", nil, nil)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = do(t, "GET", env.srv.URL+"/events?kind=relayer.added&limit=1", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	var events []map[string]any
	decodeBody(t, resp, &events)
	if len(events) != 1 {
		t.Fatalf("expected limit to cap at 1, got %d", len(events))
	}
}

func TestStats(t *testing.T) {
	env := testServer(t)
	env.addRelayers(t, 7)

	resp := do(t, "GET", env.srv.URL+"/stats", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	var stats bftrelay.Stats
	decodeBody(t, resp, &stats)

	if stats.Relayers != 7 || stats.Threshold != 5 || stats.FaultTolerance != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Owner != env.owner.Address() {
		t.Fatalf("expected owner %s, got %s", env.owner.Address().Hex(), stats.Owner.Hex())
	}
}

func TestAuthMessageBindsRequest(t *testing.T) {
	d := api.AuthDomain{Owner: common.HexToAddress("0xf0"), Realm: "/bftrelay"}
	base := api.AuthMessage(d, "POST", "/relayers", 1, []byte("{}"))

	variants := []common.Hash{
		api.AuthMessage(d, "DELETE", "/relayers", 1, []byte("{}")),
		api.AuthMessage(d, "POST", "/relayers/x", 1, []byte("{}")),
		api.AuthMessage(d, "POST", "/relayers", 2, []byte("{}")),
		api.AuthMessage(d, "POST", "/relayers", 1, []byte("{ }")),
		api.AuthMessage(api.AuthDomain{Owner: common.HexToAddress("0xf1"), Realm: d.Realm}, "POST", "/relayers", 1, []byte("{}")),
		api.AuthMessage(api.AuthDomain{Owner: d.Owner, Realm: "/other"}, "POST", "/relayers", 1, []byte("{}")),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collided with base message", i)
		}
	}
}
