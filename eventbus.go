package appcore

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a message dispatched on the event bus. Events are
// transient: they are never persisted and a subscriber added after an event
// fired never receives it.
type Event struct {
	// Name is the event name used for routing, e.g. "module:failed" or
	// "search:query".
	Name string

	// Payload is the data associated with the event, opaque to the bus.
	Payload any

	// Source identifies the emitting module when the event was emitted
	// through a module's convenience accessor. Empty for events emitted
	// directly on the core. Diagnostic only; routing ignores it.
	Source string

	// CreatedAt is when the event was emitted.
	CreatedAt time.Time
}

// EventHandler handles a single event. A returned error is logged and does
// not abort delivery to the remaining handlers.
type EventHandler func(event Event) error

type busSubscription struct {
	id      string
	name    string
	handler EventHandler
}

// EventBus is a synchronous publish/subscribe dispatcher keyed by event
// name. Handlers for a name are delivered in registration order against a
// stable snapshot taken when dispatch begins; removing a handler mid-dispatch
// does not retroactively affect the snapshot being delivered.
//
// Emission from inside a handler is queued and drained after the current
// dispatch completes rather than nested, bounding stack growth.
type EventBus struct {
	mu          sync.Mutex
	handlers    map[string][]*busSubscription
	byID        map[string]*busSubscription
	queue       []Event
	dispatching bool
	logger      Logger
}

// NewEventBus creates an event bus. A nil logger falls back to slog.
func NewEventBus(logger Logger) *EventBus {
	if logger == nil {
		logger = NewSlogLogger(nil)
	}
	return &EventBus{
		handlers: make(map[string][]*busSubscription),
		byID:     make(map[string]*busSubscription),
		logger:   logger,
	}
}

// On registers a handler for the named event and returns a subscription ID
// that can be passed to Off. Multiple handlers for one name are delivered in
// registration order.
func (b *EventBus) On(name string, handler EventHandler) (string, error) {
	if name == "" {
		return "", ErrEventNameEmpty
	}
	if handler == nil {
		return "", fmt.Errorf("%w: event %q", ErrEventHandlerNil, name)
	}

	sub := &busSubscription{
		id:      uuid.NewString(),
		name:    name,
		handler: handler,
	}

	b.mu.Lock()
	b.handlers[name] = append(b.handlers[name], sub)
	b.byID[sub.id] = sub
	b.mu.Unlock()

	return sub.id, nil
}

// Off removes a subscription by ID. Unknown IDs are ignored. Safe to call
// from inside a handler; the snapshot currently being delivered is
// unaffected.
func (b *EventBus) Off(subscriptionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[subscriptionID]
	if !ok {
		return
	}
	delete(b.byID, subscriptionID)

	subs := b.handlers[sub.name]
	for i, s := range subs {
		if s.id == subscriptionID {
			b.handlers[sub.name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[sub.name]) == 0 {
		delete(b.handlers, sub.name)
	}
}

// Emit dispatches an event to every handler registered for name. Within one
// goroutine dispatch is synchronous: all handlers (and any events they emit
// in turn) have run by the time the outermost Emit returns. When another
// goroutine is already draining the queue, the event is handed to that
// drain and Emit returns without waiting for delivery.
func (b *EventBus) Emit(name string, payload any) {
	b.EmitFrom("", name, payload)
}

// EmitFrom is Emit with the emitting module's name attached for diagnostics.
func (b *EventBus) EmitFrom(source, name string, payload any) {
	event := Event{
		Name:      name,
		Payload:   payload,
		Source:    source,
		CreatedAt: time.Now(),
	}

	b.mu.Lock()
	b.queue = append(b.queue, event)
	if b.dispatching {
		// A dispatch loop is already draining the queue; the event runs
		// after the current delivery completes.
		b.mu.Unlock()
		return
	}
	b.dispatching = true
	b.mu.Unlock()

	b.drain()
}

// drain delivers queued events until the queue is empty. Only one goroutine
// drains at a time; the dispatching flag hands the queue off to it.
func (b *EventBus) drain() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.dispatching = false
			b.mu.Unlock()
			return
		}
		event := b.queue[0]
		b.queue = b.queue[1:]
		// Stable snapshot: handlers added or removed during delivery do not
		// affect this dispatch.
		snapshot := make([]*busSubscription, len(b.handlers[event.Name]))
		copy(snapshot, b.handlers[event.Name])
		b.mu.Unlock()

		for _, sub := range snapshot {
			b.deliver(sub, event)
		}
	}
}

// deliver invokes one handler, containing errors and panics so the remaining
// handlers still receive the event.
func (b *EventBus) deliver(sub *busSubscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				"event", event.Name, "subscription", sub.id, "panic", r)
		}
	}()

	if err := sub.handler(event); err != nil {
		b.logger.Error("Event handler failed",
			"event", event.Name, "subscription", sub.id, "error", err)
	}
}

// SubscriberCount returns the number of handlers registered for name.
func (b *EventBus) SubscriberCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[name])
}

// EventNames returns the names that currently have at least one handler.
func (b *EventBus) EventNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	return names
}
