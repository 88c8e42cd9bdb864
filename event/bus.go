package event

import (
	"context"
	"sync"
)

// Handler receives committed events.
type Handler func(ctx context.Context, evt *Event)

// Bus fans committed events out to in-process subscribers.
// Handlers run synchronously in subscription order. The relay publishes
// after releasing its lock, so a handler may call back into it.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	order    []int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sid := b.nextID
	b.nextID++
	b.handlers[sid] = h
	b.order = append(b.order, sid)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, sid)
		for i, v := range b.order {
			if v == sid {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers evt to every current subscriber.
func (b *Bus) Publish(ctx context.Context, evt *Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.order))
	for _, sid := range b.order {
		hs = append(hs, b.handlers[sid])
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(ctx, evt)
	}
}
