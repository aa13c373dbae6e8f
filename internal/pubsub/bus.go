package pubsub

import "sync"

// Handler receives every published event. Handlers that only care about
// some kinds ignore the rest.
type Handler func(Event)

// Bus is a process-wide publish/subscribe channel with run-to-completion
// delivery. Publishing while no dispatch is in progress delivers the event
// on the caller's goroutine, to every subscriber in registration order.
// Publishing during a dispatch (from a handler, or from another goroutine
// such as a timer callback) enqueues the event; the goroutine already
// dispatching drains it after the current event completes. At most one
// dispatch runs at any time, so handlers never run concurrently and no
// event is ever delivered in the middle of handling another.
type Bus struct {
	mu          sync.Mutex
	queue       []Event
	dispatching bool
	subscribers []Handler
}

// initialQueueCapacity bounds steady-state allocation; the queue only
// grows past this if a handler fans out more than 16 events at once.
const initialQueueCapacity = 16

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{queue: make([]Event, 0, initialQueueCapacity)}
}

// Subscribe registers a handler for all events. Subscriptions are static:
// components register once during initialization and there is no
// unsubscribe.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, h)
	b.mu.Unlock()
}

// Publish enqueues the event and, unless a dispatch is already running,
// drains the queue delivering each event to all subscribers in
// registration order.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	b.queue = append(b.queue, ev)
	if b.dispatching {
		b.mu.Unlock()
		return
	}
	b.dispatching = true

	for len(b.queue) > 0 {
		// Shift rather than reslice so the queue reuses its backing
		// array indefinitely.
		next := b.queue[0]
		copy(b.queue, b.queue[1:])
		b.queue = b.queue[:len(b.queue)-1]
		subscribers := b.subscribers
		b.mu.Unlock()

		for _, h := range subscribers {
			h(next)
		}

		b.mu.Lock()
	}
	b.dispatching = false
	b.mu.Unlock()
}
