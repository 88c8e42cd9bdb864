package forward

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Target is an in-process call handler mounted at an address.
type Target interface {
	Call(ctx context.Context, payload []byte) ([]byte, error)
}

// TargetFunc adapts a function to the Target interface.
type TargetFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Call implements Target.
func (f TargetFunc) Call(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}

// Router forwards to in-process targets keyed by address.
type Router struct {
	mu      sync.RWMutex
	targets map[common.Address]Target
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{targets: make(map[common.Address]Target)}
}

// Mount installs t at addr, replacing any existing handler.
func (r *Router) Mount(addr common.Address, t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[addr] = t
}

// Unmount removes the handler at addr.
func (r *Router) Unmount(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.targets, addr)
}

// Forward implements Forwarder.
func (r *Router) Forward(ctx context.Context, target common.Address, payload []byte, _ common.Hash) (Result, error) {
	r.mu.RLock()
	t, ok := r.targets[target]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTarget, target.Hex())
	}

	start := time.Now()
	ret, err := t.Call(ctx, payload)
	res := Result{Return: ret, LatencyMs: int(time.Since(start).Milliseconds())}
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrReverted, err)
	}
	return res, nil
}
