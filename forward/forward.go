// Package forward delivers authorized payloads to their target.
//
// A Forwarder is the boundary between the relay and whatever executes the
// call. A non-nil error means the callee reverted; the relay then rolls the
// whole invocation back.
package forward

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnknownTarget is returned when no handler or URL is configured for a target.
	ErrUnknownTarget = errors.New("forward: unknown target")

	// ErrReverted is returned when the target rejected the call.
	ErrReverted = errors.New("forward: call reverted")
)

// Result captures what the target returned.
type Result struct {
	// StatusCode is the HTTP status for HTTP targets, 0 otherwise.
	StatusCode int `json:"status_code,omitempty"`

	// Return is the call's return data, capped for HTTP targets.
	Return []byte `json:"return,omitempty"`

	// LatencyMs is the wall time spent in the call.
	LatencyMs int `json:"latency_ms"`
}

// Forwarder executes a payload against a target.
type Forwarder interface {
	Forward(ctx context.Context, target common.Address, payload []byte, fp common.Hash) (Result, error)
}
