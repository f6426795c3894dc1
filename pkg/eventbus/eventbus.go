// Package eventbus implements a small type-indexed multicast event bus.
// Handlers subscribe to a Go type (usually an event struct) and are
// invoked, in registration order, whenever a value of that type is
// published. There is no global/package-level bus — every producer
// (playhead, scheduler, status processor) owns its own *Bus instance,
// per spec.md §9's redesign note replacing the original's global signal
// registry.
package eventbus

import (
	"reflect"
	"sync"
)

// Token identifies a subscription for later Unsubscribe calls. Tokens
// are monotonically increasing and unique within a single Bus.
type Token uint64

// Handler is invoked with the published event value. It must not block
// for long: Publish calls handlers synchronously, on the publisher's
// goroutine, in subscription order.
type Handler func(event any)

type subscription struct {
	token   Token
	handler Handler
}

// Bus is a type-indexed multicast dispatcher. The zero value is not
// usable; use New. A Bus is safe for concurrent use.
type Bus struct {
	mu        sync.Mutex
	nextToken Token
	subs      map[reflect.Type][]subscription
}

// New returns a ready-to-use Bus.
func New() *Bus {
	return &Bus{subs: make(map[reflect.Type][]subscription)}
}

// Subscribe registers handler to be called whenever a value whose
// concrete type matches a sample of T is published. The generic
// parameter pins the event type at the call site, e.g.
// eventbus.Subscribe[TempoChanged](bus, func(e TempoChanged) { ... }).
func Subscribe[T any](b *Bus, handler func(T)) Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextToken++
	token := b.nextToken
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.subs[t] = append(b.subs[t], subscription{
		token: token,
		handler: func(event any) {
			handler(event.(T))
		},
	})
	return token
}

// Unsubscribe removes a previously registered handler. It is a no-op if
// the token is unknown (already unsubscribed, or from a different Bus).
func (b *Bus) Unsubscribe(token Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, subs := range b.subs {
		for i, s := range subs {
			if s.token == token {
				b.subs[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers event to every handler subscribed to the type
// parameter T, in the order they subscribed. T is the static type at
// the call site, so an event passed as an interface value is keyed by
// that interface type, not by its dynamic type. Handlers run
// synchronously on the caller's goroutine.
func Publish[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs[t]...)
	b.mu.Unlock()
	for _, s := range subs {
		s.handler(event)
	}
}

// Len reports the number of live subscriptions across all event types,
// mainly useful for tests.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}
