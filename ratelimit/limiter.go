// Package ratelimit throttles relay submissions per target address.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
)

// Limiter is a token bucket per target. Buckets start full and hold at most
// one second's worth of tokens.
type Limiter struct {
	mu      sync.Mutex
	clock   clock.Clock
	rate    float64 // tokens per second
	buckets map[common.Address]*bucket
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// New creates a limiter admitting perSecond submissions per target.
// perSecond <= 0 disables limiting. A nil clock uses the wall clock.
func New(perSecond int, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	return &Limiter{
		clock:   clk,
		rate:    float64(perSecond),
		buckets: make(map[common.Address]*bucket),
	}
}

// Enabled reports whether the limiter throttles at all.
func (l *Limiter) Enabled() bool {
	return l.rate > 0
}

// Allow takes a token for target if one is available.
func (l *Limiter) Allow(target common.Address) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	b, ok := l.buckets[target]
	if !ok {
		b = &bucket{tokens: l.rate, lastFill: now}
		l.buckets[target] = b
	}

	b.tokens += now.Sub(b.lastFill).Seconds() * l.rate
	if b.tokens > l.rate {
		b.tokens = l.rate
	}
	b.lastFill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Wait blocks until target may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, target common.Address) error {
	if !l.Enabled() {
		return nil
	}

	interval := time.Duration(float64(time.Second) / l.rate)
	for {
		if l.Allow(target) {
			return nil
		}

		t := l.clock.Timer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Reset drops the bucket for target.
func (l *Limiter) Reset(target common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, target)
}
