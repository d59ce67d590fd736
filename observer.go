// Package appcore lifecycle observation uses the CloudEvents specification
// for standardized event format and interoperability with external systems.
// The internal event bus stays untyped and synchronous; the observer layer
// mirrors lifecycle transitions outward in CloudEvents form.
package appcore

import (
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer is notified of lifecycle CloudEvents. Observers register with a
// Subject, typically the AppCore itself.
type Observer interface {
	// OnEvent is called for each event the observer subscribed to. Observers
	// should handle events quickly to avoid blocking other observers.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier used for registration tracking
	// and diagnostics.
	ObserverID() string
}

// Subject is implemented by types that emit lifecycle CloudEvents.
type Subject interface {
	// RegisterObserver adds an observer, optionally filtered by event type.
	// An empty filter receives all events.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. Idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers delivers an event to all matching observers. Observer
	// errors are logged, never propagated to the caller.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error
}

// Lifecycle CloudEvent types, in reverse domain notation per the CloudEvents
// specification.
const (
	EventTypeModuleRegistered   = "com.appcore.module.registered"
	EventTypeModuleInitialized  = "com.appcore.module.initialized"
	EventTypeModuleFailed       = "com.appcore.module.failed"
	EventTypeModuleSkipped      = "com.appcore.module.skipped"
	EventTypeModuleDestroyed    = "com.appcore.module.destroyed"
	EventTypeApplicationStarted = "com.appcore.application.started"
	EventTypeApplicationStopped = "com.appcore.application.stopped"
)

type observerEntry struct {
	observer     Observer
	eventTypes   []string
	registeredAt time.Time
}

func (e *observerEntry) matches(eventType string) bool {
	if len(e.eventTypes) == 0 {
		return true
	}
	for _, t := range e.eventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// observerRegistry is the Subject implementation shared by AppCore.
type observerRegistry struct {
	mu      sync.RWMutex
	entries []*observerEntry
	logger  Logger
}

func newObserverRegistry(logger Logger) *observerRegistry {
	return &observerRegistry{logger: logger}
}

func (o *observerRegistry) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &observerEntry{
		observer:     observer,
		eventTypes:   append([]string(nil), eventTypes...),
		registeredAt: time.Now(),
	})
	return nil
}

func (o *observerRegistry) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for i, entry := range o.entries {
		if entry.observer.ObserverID() == observer.ObserverID() {
			o.entries = append(o.entries[:i:i], o.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *observerRegistry) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	o.mu.RLock()
	snapshot := make([]*observerEntry, len(o.entries))
	copy(snapshot, o.entries)
	o.mu.RUnlock()

	for _, entry := range snapshot {
		if !entry.matches(event.Type()) {
			continue
		}
		if err := entry.observer.OnEvent(ctx, event); err != nil {
			o.logger.Error("Observer failed to handle event",
				"observer", entry.observer.ObserverID(),
				"eventType", event.Type(), "error", err)
		}
	}
	return nil
}

// FunctionalObserver wraps a function as an Observer for quick observer
// creation without defining a struct.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer backed by the given function.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) *FunctionalObserver {
	return &FunctionalObserver{id: id, handler: handler}
}

// OnEvent implements Observer by calling the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements Observer.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
