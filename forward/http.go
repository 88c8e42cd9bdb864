package forward

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const maxResponseBody = 1024 // 1KB cap on captured return data

// HTTPForwarder POSTs payloads to a URL configured per target.
type HTTPForwarder struct {
	client *http.Client

	mu   sync.RWMutex
	urls map[common.Address]string
}

// NewHTTPForwarder creates a forwarder with the given HTTP timeout.
// A zero timeout leaves the call bounded only by the context.
func NewHTTPForwarder(timeout time.Duration, urls map[common.Address]string) *HTTPForwarder {
	m := make(map[common.Address]string, len(urls))
	for addr, u := range urls {
		m[addr] = u
	}
	return &HTTPForwarder{
		client: &http.Client{Timeout: timeout},
		urls:   m,
	}
}

// SetTarget routes addr to url.
func (f *HTTPForwarder) SetTarget(addr common.Address, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls[addr] = url
}

// Forward implements Forwarder. Transport errors and non-2xx responses are reverts.
func (f *HTTPForwarder) Forward(ctx context.Context, target common.Address, payload []byte, fp common.Hash) (Result, error) {
	f.mu.RLock()
	url, ok := f.urls[target]
	f.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTarget, target.Hex())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("%w: create request: %w", ErrReverted, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", "BFTRelay/1.0")
	req.Header.Set("X-Relay-Target", target.Hex())
	req.Header.Set("X-Relay-Fingerprint", fp.Hex())

	start := time.Now()
	resp, err := f.client.Do(req) //nolint:gosec // URL comes from operator configuration.
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		return Result{LatencyMs: latency}, fmt.Errorf("%w: %w", ErrReverted, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	res := Result{StatusCode: resp.StatusCode, Return: body, LatencyMs: latency}
	if readErr != nil {
		return res, fmt.Errorf("%w: read response: %w", ErrReverted, readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, fmt.Errorf("%w: status %d", ErrReverted, resp.StatusCode)
	}
	return res, nil
}
