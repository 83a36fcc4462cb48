// Package eventstream carries parsed LLM events from producers to consumers.
//
// Within a parser session events travel on a Bus: a synchronous,
// single-threaded observer that delivers every event to each matching
// handler in registration order. Once a session ends, its Transcript can be
// handed to a Publisher that ships it to an external backend.
package eventstream

import (
	"slices"

	"github.com/papercomputeco/reel/pkg/llm"
)

// Predicate selects the events a handler wants. A nil Predicate matches
// every event.
type Predicate func(llm.Event) bool

// Emit publishes an event back onto the bus it was handed out by.
type Emit func(llm.Event)

// Handler reacts to a delivered event. Anything it passes to emit is queued
// and redelivered to every subscriber, including the emitting handler.
type Handler func(ev llm.Event, emit Emit)

type subscription struct {
	match  Predicate
	handle Handler
}

// Bus is a synchronous event bus.
//
// Publish runs to completion before returning, delivering the published
// event and everything handlers emit in response. Emitted events are queued
// behind the event being delivered, so all subscribers observe events in the
// order they were produced. A Bus is not safe for concurrent use.
type Bus struct {
	subs        []subscription
	queue       []llm.Event
	dispatching bool
	delivered   int
}

// NewBus returns a Bus with no subscribers.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for the events matched by p.
// It returns ErrSubscribeDuringDispatch when called from inside a handler.
func (b *Bus) Subscribe(p Predicate, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	if b.dispatching {
		return ErrSubscribeDuringDispatch
	}

	b.subs = append(b.subs, subscription{match: p, handle: h})
	return nil
}

// Publish delivers ev to every matching subscriber.
func (b *Bus) Publish(ev llm.Event) {
	if ev == nil {
		return
	}

	b.queue = append(b.queue, ev)
	if b.dispatching {
		// The outer Publish call drains the queue.
		return
	}

	b.dispatching = true
	defer func() {
		b.dispatching = false
		b.queue = b.queue[:0]
	}()

	for i := 0; i < len(b.queue); i++ {
		next := b.queue[i]
		b.queue[i] = nil
		b.delivered++

		for _, s := range b.subs {
			if s.match == nil || s.match(next) {
				s.handle(next, b.Publish)
			}
		}
	}
}

// Delivered returns how many events the bus has dispatched.
func (b *Bus) Delivered() int {
	return b.delivered
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	return len(b.subs)
}

// Topics returns a Predicate matching events whose topic is one of ts.
func Topics(ts ...llm.Topic) Predicate {
	return func(ev llm.Event) bool {
		return slices.Contains(ts, ev.Topic())
	}
}

// Canonical matches events produced by the vendor normalizer.
func Canonical(ev llm.Event) bool {
	return llm.IsCanonical(ev.Topic())
}

// Derived matches events produced by subscribers.
func Derived(ev llm.Event) bool {
	return !llm.IsCanonical(ev.Topic())
}
