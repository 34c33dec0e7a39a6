// Package pubsub is the process-wide event bus that lets independent widgets
// (cart items list, cart drawer, product form, quantity grid) react to cart
// mutations without holding references to each other.
package pubsub

import (
	"sync"

	"cart-engine/internal/model"
)

// Event names published on the bus.
const (
	// EventCartUpdate fires after every successful cart mutation.
	EventCartUpdate = "cart-update"
	// EventModalClosed fires when a quick-add overlay finishes closing.
	EventModalClosed = "modal-closed"
)

// Event is the payload delivered to subscribers. Source carries the
// originating widget's tag so it can ignore its own broadcast.
type Event struct {
	Source    string
	Cart      *model.CartState
	VariantID int64
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Handler func(Event)

type subscription struct {
	handler Handler
	removed bool
}

// Bus is a synchronous publish/subscribe hub. The zero value is ready to use.
type Bus struct {
	mu   sync.Mutex
	subs map[string][]*subscription
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]*subscription)}
}

// Subscribe registers a handler for an event name and returns an unsubscribe
// function. Unsubscribing is idempotent and safe to call during teardown or
// from inside a handler.
func (b *Bus) Subscribe(event string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[string][]*subscription)
	}
	sub := &subscription{handler: h}
	b.subs[event] = append(b.subs[event], sub)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub.removed {
			return
		}
		sub.removed = true
		list := b.subs[event]
		for i, s := range list {
			if s == sub {
				b.subs[event] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// SubscribeOnce registers a handler that unsubscribes itself after the first
// delivery. Used by the product form to defer cart rendering until a
// quick-add overlay has closed.
func (b *Bus) SubscribeOnce(event string, h Handler) (unsubscribe func()) {
	var once sync.Once
	var unsub func()
	unsub = b.Subscribe(event, func(e Event) {
		once.Do(func() {
			unsub()
			h(e)
		})
	})
	return unsub
}

// Publish delivers the event to all current subscribers synchronously, in
// subscription order. The subscriber list is snapshotted first, so handlers
// may subscribe or unsubscribe without affecting this delivery.
func (b *Bus) Publish(event string, e Event) {
	b.mu.Lock()
	list := b.subs[event]
	snapshot := make([]*subscription, len(list))
	copy(snapshot, list)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.mu.Lock()
		removed := sub.removed
		b.mu.Unlock()
		if !removed {
			sub.handler(e)
		}
	}
}
