// Package event provides an in-process publish/subscribe bus.
//
// A Bus is an ordinary value: components that need one get it injected
// rather than sharing package state.
//
//	bus := event.New()
//	sub := bus.Subscribe("message:read", func(p any) { ... })
//	defer bus.Unsubscribe(sub)
//	bus.Publish("message:read", receipt)
package event

import (
	"sync"
)

// Handler is a function that receives an event payload.
type Handler func(payload any)

// Subscription identifies one registered handler. The zero value is not a
// live subscription and is ignored by Unsubscribe.
type Subscription struct {
	event string
	id    uint64
}

// Event returns the event name the subscription listens on.
func (s Subscription) Event() string { return s.event }

type entry struct {
	id uint64
	h  Handler
}

// Bus dispatches payloads to the handlers subscribed to an event name.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]entry
	inflight sync.WaitGroup
}

func New() *Bus {
	return &Bus{handlers: make(map[string][]entry)}
}

// Subscribe registers h for event and returns a handle for Unsubscribe.
func (b *Bus) Subscribe(event string, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[event] = append(b.handlers[event], entry{id: b.nextID, h: h})
	return Subscription{event: event, id: b.nextID}
}

// Unsubscribe removes the handler behind s. Unknown or already removed
// subscriptions are a no-op.
func (b *Bus) Unsubscribe(s Subscription) {
	if s.id == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[s.event]
	for i, e := range list {
		if e.id == s.id {
			b.handlers[s.event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.handlers[s.event]) == 0 {
		delete(b.handlers, s.event)
	}
}

// Publish dispatches payload synchronously, in subscription order.
func (b *Bus) Publish(event string, payload any) {
	for _, h := range b.snapshot(event) {
		h(payload)
	}
}

// PublishAsync runs each handler on its own goroutine and returns at once.
func (b *Bus) PublishAsync(event string, payload any) {
	for _, h := range b.snapshot(event) {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			h(payload)
		}(h)
	}
}

// Wait blocks until every handler started by PublishAsync has returned.
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// Has reports whether event has at least one subscriber.
func (b *Bus) Has(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event]) > 0
}

// Flush removes all subscriptions.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string][]entry)
}

func (b *Bus) snapshot(event string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	list := b.handlers[event]
	hs := make([]Handler, len(list))
	for i, e := range list {
		hs[i] = e.h
	}
	return hs
}
