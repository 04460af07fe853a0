// Package events provides the in-process event bus that couples the simulation systems.
// Dispatch is synchronous: every handler runs to completion before Publish returns.
package events

import "sync"

// Handler receives a published event.
type Handler func(Event)

// Bus is a synchronous publish/subscribe dispatcher keyed by event kind.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	all      []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// On registers a handler for one event kind.
func (b *Bus) On(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers a handler that receives every event, after the kind-specific handlers.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish dispatches e to its subscribers in registration order.
// A nil bus drops the event, so systems can be used standalone.
func (b *Bus) Publish(e Event) {
	if b == nil || e == nil {
		return
	}
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[e.Kind()]...)
	all := append([]Handler(nil), b.all...)
	b.mu.RUnlock()

	for _, h := range hs {
		h(e)
	}
	for _, h := range all {
		h(e)
	}
}

// Subscribe registers a typed handler. The event kind is taken from T's zero value.
func Subscribe[T Event](b *Bus, fn func(T)) {
	var zero T
	b.On(zero.Kind(), func(e Event) {
		if typed, ok := e.(T); ok {
			fn(typed)
		}
	})
}
