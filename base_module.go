package appcore

import (
	"sync"
)

// BaseModule is an embeddable helper carrying the convenience accessors of
// the module capability contract: bus and state delegation tagged with the
// module's name, and optional-collaborator lookup. It deliberately does not
// implement Init or Destroy; the embedding type owns its lifecycle and the
// contract stays structural rather than inherited.
//
// Bus and state subscriptions made through the helper are tracked, so a
// module's Destroy can release everything with one ReleaseSubscriptions
// call.
type BaseModule struct {
	core *AppCore
	name string

	mu        sync.Mutex
	busSubs   []string
	stateSubs []string
}

// NewBaseModule creates the helper for a module. The name should match the
// name the module was registered under; it tags emitted events for
// diagnostics.
func NewBaseModule(core *AppCore, name string) BaseModule {
	return BaseModule{core: core, name: name}
}

// Name returns the module name the helper was created with.
func (m *BaseModule) Name() string { return m.name }

// Core returns the application core.
func (m *BaseModule) Core() *AppCore { return m.core }

// Emit publishes an event on the shared bus, tagged with the module's name.
func (m *BaseModule) Emit(name string, payload any) {
	m.core.bus.EmitFrom(m.name, name, payload)
}

// On subscribes to a bus event. The subscription is tracked and released by
// ReleaseSubscriptions.
func (m *BaseModule) On(name string, handler EventHandler) (string, error) {
	id, err := m.core.bus.On(name, handler)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.busSubs = append(m.busSubs, id)
	m.mu.Unlock()
	return id, nil
}

// Off removes a bus subscription made through this helper.
func (m *BaseModule) Off(subscriptionID string) {
	m.core.bus.Off(subscriptionID)
	m.mu.Lock()
	m.busSubs = removeID(m.busSubs, subscriptionID)
	m.mu.Unlock()
}

// GetModule looks up an optional collaborator by name. Returns nil when the
// collaborator is not ready; callers must tolerate absence.
func (m *BaseModule) GetModule(name string) Module {
	return m.core.registry.GetModule(name)
}

// GetState reads from the shared state store.
func (m *BaseModule) GetState(path string) any {
	return m.core.state.Get(path)
}

// SetState writes to the shared state store.
func (m *BaseModule) SetState(path string, value any) error {
	return m.core.state.Set(path, value)
}

// SubscribeState subscribes to state changes. The subscription is tracked
// and released by ReleaseSubscriptions.
func (m *BaseModule) SubscribeState(path string, callback StateCallback) (string, error) {
	id, err := m.core.state.Subscribe(path, callback)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.stateSubs = append(m.stateSubs, id)
	m.mu.Unlock()
	return id, nil
}

// UnsubscribeState removes a state subscription made through this helper.
func (m *BaseModule) UnsubscribeState(subscriptionID string) {
	m.core.state.Unsubscribe(subscriptionID)
	m.mu.Lock()
	m.stateSubs = removeID(m.stateSubs, subscriptionID)
	m.mu.Unlock()
}

// Logger returns the core logger.
func (m *BaseModule) Logger() Logger { return m.core.logger }

// ReleaseSubscriptions removes every bus and state subscription made through
// this helper. Idempotent; intended to be called from the module's Destroy.
func (m *BaseModule) ReleaseSubscriptions() {
	m.mu.Lock()
	busSubs := m.busSubs
	stateSubs := m.stateSubs
	m.busSubs = nil
	m.stateSubs = nil
	m.mu.Unlock()

	for _, id := range busSubs {
		m.core.bus.Off(id)
	}
	for _, id := range stateSubs {
		m.core.state.Unsubscribe(id)
	}
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
