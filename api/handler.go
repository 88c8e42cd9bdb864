// Package api provides the HTTP API for a bftrelay instance.
//
// Relay submission and all reads are open. Registry mutations require an
// owner signature in the X-Relay-Auth header; see AuthMessage.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/ratelimit"
)

// Handler is the root HTTP handler for the relay API.
type Handler struct {
	relay   *bftrelay.Relay
	logger  *slog.Logger
	clock   clock.Clock
	limiter *ratelimit.Limiter
	perSec  int
	skew    time.Duration
	realm   string
	seen    *seenAuth
	mux     *http.ServeMux
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithClock sets the clock used to check auth timestamps.
func WithClock(c clock.Clock) HandlerOption {
	return func(h *Handler) { h.clock = c }
}

// WithAuthSkew sets how far an auth timestamp may drift from now.
func WithAuthSkew(d time.Duration) HandlerOption {
	return func(h *Handler) { h.skew = d }
}

// WithAuthRealm sets the realm admin signatures are bound to. See AuthDomain.
func WithAuthRealm(realm string) HandlerOption {
	return func(h *Handler) { h.realm = realm }
}

// WithTargetRateLimit caps relay submissions per target per second.
// 0 disables the limit.
func WithTargetRateLimit(perSecond int) HandlerOption {
	return func(h *Handler) { h.perSec = perSecond }
}

// DefaultAuthSkew is the accepted auth timestamp drift.
const DefaultAuthSkew = 5 * time.Minute

// maxBodySize bounds every request body the API reads.
const maxBodySize = 1 << 20

// NewHandler creates a new API handler for r.
func NewHandler(r *bftrelay.Relay, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		relay:  r,
		logger: logger,
		clock:  clock.New(),
		skew:   DefaultAuthSkew,
		seen:   newSeenAuth(),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.limiter = ratelimit.New(h.perSec, h.clock)

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Relay
	h.mux.HandleFunc("POST /relay", h.submitRelay)
	h.mux.HandleFunc("GET /threshold", h.getThreshold)

	// Relayers
	h.mux.HandleFunc("GET /relayers", h.listRelayers)
	h.mux.HandleFunc("GET /relayers/{address}", h.getRelayer)
	h.mux.Handle("POST /relayers", h.requireOwner(h.addRelayer))
	h.mux.Handle("DELETE /relayers/{address}", h.requireOwner(h.removeRelayer))

	// Ledger
	h.mux.HandleFunc("GET /executions", h.listExecutions)
	h.mux.HandleFunc("GET /executions/{fingerprint}", h.getExecution)
	h.mux.HandleFunc("GET /processed/{fingerprint}", h.getProcessed)

	h.mux.HandleFunc("GET /events", h.listEvents)
	h.mux.HandleFunc("GET /stats", h.getStats)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.recoverPanics(h.logRequests(h.mux)).ServeHTTP(w, r)
}

// logRequests logs every request. Reads log at debug, writes at info.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if r.Method == http.MethodGet {
			level = slog.LevelDebug
		}
		h.logger.Log(r.Context(), level, "api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				h.logger.ErrorContext(r.Context(), "api handler panicked",
					"path", r.URL.Path,
					"panic", p,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // headers already sent
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(v)
}

func queryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryInt parses a non-negative integer query parameter, falling back to
// def when it is absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(queryParam(r, key))
	if err != nil || n < 0 {
		return def
	}
	return n
}
