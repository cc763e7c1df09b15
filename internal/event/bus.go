package event

import (
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// wildcard is the subscription key used by SubscribeAll.
const wildcard = "*"

// Handler is a function that handles an event.
type Handler func(Event)

// subscription pairs a handler with the id used to remove it.
type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous pub-sub event bus. The zero value is not usable;
// construct with NewBus. Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription // event type -> subscriptions
	nextID atomic.Uint64
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers a handler for one event type and returns an id for
// Unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: handler})
	return id
}

// SubscribeAll registers a handler that receives every published event.
func (b *Bus) SubscribeAll(handler Handler) uint64 {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes a subscription by id. Returns false if the id is
// unknown.
func (b *Bus) Unsubscribe(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subs {
		for i, sub := range subs {
			if sub.id == id {
				b.subs[eventType] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish dispatches an event to handlers subscribed to its type, then to
// wildcard handlers, each group in registration order. Handler panics are
// recovered and logged so delivery continues.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	typed := make([]subscription, len(b.subs[ev.EventType()]))
	copy(typed, b.subs[ev.EventType()])
	all := make([]subscription, len(b.subs[wildcard]))
	copy(all, b.subs[wildcard])
	b.mu.RUnlock()

	for _, sub := range typed {
		b.dispatch(sub.handler, ev)
	}
	for _, sub := range all {
		b.dispatch(sub.handler, ev)
	}
}

// dispatch invokes a handler, recovering and logging any panic.
func (b *Bus) dispatch(handler Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: event handler panicked for %s: %v\n%s",
				ev.EventType(), r, debug.Stack())
		}
	}()
	handler(ev)
}
