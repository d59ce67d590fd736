package appcore

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// StateChange describes a single write observed by a subscriber. Path is the
// exact path that changed, which for a subscriber on an ancestor path is the
// deeper path the write landed on.
type StateChange struct {
	Path     string
	OldValue any
	NewValue any
}

// StateCallback receives state change notifications.
type StateCallback func(change StateChange)

type stateSubscription struct {
	id       string
	path     string
	callback StateCallback
}

// StateStore is a tree of key-addressable values with path-scoped
// subscriptions and bubbling notification. Paths are dotted, e.g.
// "ui.theme". Values are opaque to the store.
//
// A write notifies subscribers of the exact changed path and of every
// ancestor path, so a subscriber on "ui" observes a write to "ui.theme".
// Notifications run synchronously: the write is visible to all subscribers
// before Set returns.
type StateStore struct {
	mu     sync.Mutex
	root   map[string]any
	subs   map[string][]*stateSubscription
	byID   map[string]*stateSubscription
	batch  []StateChange
	inTx   bool
	logger Logger
}

// NewStateStore creates an empty state store. A nil logger falls back to
// slog.
func NewStateStore(logger Logger) *StateStore {
	if logger == nil {
		logger = NewSlogLogger(nil)
	}
	return &StateStore{
		root:   make(map[string]any),
		subs:   make(map[string][]*stateSubscription),
		byID:   make(map[string]*stateSubscription),
		logger: logger,
	}
}

// Get returns the current value at path, or nil if nothing was ever set
// there.
func (s *StateStore) Get(path string) any {
	segments := strings.Split(path, ".")

	s.mu.Lock()
	defer s.mu.Unlock()

	node := any(s.root)
	for _, seg := range segments {
		container, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = container[seg]
		if !ok {
			return nil
		}
	}
	return node
}

// Set writes value at path, creating intermediate containers as needed. A
// no-op write (same comparable value) skips notification; a freshly
// constructed container value always notifies, since identity differs.
func (s *StateStore) Set(path string, value any) error {
	if path == "" {
		return ErrStatePathEmpty
	}
	segments := strings.Split(path, ".")

	s.mu.Lock()
	container := s.root
	for _, seg := range segments[:len(segments)-1] {
		next, ok := container[seg].(map[string]any)
		if !ok {
			// Missing or non-container intermediate: replace with a fresh
			// container so the deeper write can land.
			next = make(map[string]any)
			container[seg] = next
		}
		container = next
	}

	leaf := segments[len(segments)-1]
	oldValue, existed := container[leaf]
	if existed && valuesEqual(oldValue, value) {
		s.mu.Unlock()
		return nil
	}
	container[leaf] = value

	change := StateChange{Path: path, OldValue: oldValue, NewValue: value}
	if s.inTx {
		s.batch = append(s.batch, change)
		s.mu.Unlock()
		return nil
	}
	targets := s.collectSubscribers(path)
	s.mu.Unlock()

	s.notify(targets, change)
	return nil
}

// Batch applies a group of writes and defers all notifications until the
// function returns. Each affected path still notifies independently and in
// write order; batching changes when subscribers run, not how many times.
func (s *StateStore) Batch(fn func(tx *StateTx)) {
	s.mu.Lock()
	if s.inTx {
		// Nested batch joins the outer one.
		s.mu.Unlock()
		fn(&StateTx{store: s})
		return
	}
	s.inTx = true
	s.mu.Unlock()

	fn(&StateTx{store: s})

	s.mu.Lock()
	changes := s.batch
	s.batch = nil
	s.inTx = false
	type pending struct {
		targets []*stateSubscription
		change  StateChange
	}
	flushed := make([]pending, 0, len(changes))
	for _, change := range changes {
		flushed = append(flushed, pending{s.collectSubscribers(change.Path), change})
	}
	s.mu.Unlock()

	for _, p := range flushed {
		s.notify(p.targets, p.change)
	}
}

// StateTx is the handle passed to a Batch function.
type StateTx struct {
	store *StateStore
}

// Set writes within the batch. Notification is deferred to batch end.
func (tx *StateTx) Set(path string, value any) error {
	return tx.store.Set(path, value)
}

// Get reads within the batch and observes earlier writes of the same batch.
func (tx *StateTx) Get(path string) any {
	return tx.store.Get(path)
}

// Subscribe registers a callback for writes at path or anywhere below it.
// Returns a subscription ID for Unsubscribe.
func (s *StateStore) Subscribe(path string, callback StateCallback) (string, error) {
	if path == "" {
		return "", ErrStatePathEmpty
	}
	if callback == nil {
		return "", fmt.Errorf("%w: path %q", ErrStateCallbackNil, path)
	}

	sub := &stateSubscription{
		id:       uuid.NewString(),
		path:     path,
		callback: callback,
	}

	s.mu.Lock()
	s.subs[path] = append(s.subs[path], sub)
	s.byID[sub.id] = sub
	s.mu.Unlock()

	return sub.id, nil
}

// Unsubscribe removes a subscription by ID. Unknown IDs are ignored.
func (s *StateStore) Unsubscribe(subscriptionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byID[subscriptionID]
	if !ok {
		return
	}
	delete(s.byID, subscriptionID)

	subs := s.subs[sub.path]
	for i, candidate := range subs {
		if candidate.id == subscriptionID {
			s.subs[sub.path] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(s.subs[sub.path]) == 0 {
		delete(s.subs, sub.path)
	}
}

// Snapshot returns a deep copy of the state tree. Container values are
// copied; leaf values are shared.
func (s *StateStore) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTree(s.root)
}

// collectSubscribers gathers, under the lock, subscribers for the exact path
// and every ancestor, in exact-first bubbling order. Registration order is
// preserved within one path.
func (s *StateStore) collectSubscribers(path string) []*stateSubscription {
	var targets []*stateSubscription
	current := path
	for {
		targets = append(targets, s.subs[current]...)
		idx := strings.LastIndex(current, ".")
		if idx < 0 {
			return targets
		}
		current = current[:idx]
	}
}

// notify invokes callbacks outside the lock, containing panics so one
// subscriber cannot break delivery to the rest.
func (s *StateStore) notify(targets []*stateSubscription, change StateChange) {
	for _, sub := range targets {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("State subscriber panicked",
						"path", change.Path, "subscription", sub.id, "panic", r)
				}
			}()
			sub.callback(change)
		}()
	}
}

// valuesEqual reports whether two values are equal under the store's
// equality policy: comparable values compare with ==, anything else (maps,
// slices, fresh containers) never compares equal. Comparability is checked
// on the dynamic values, not the static types: a struct with an interface
// field holding a slice is uncomparable even though its type is comparable,
// and such values must always notify rather than panic.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}

func copyTree(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		if child, ok := value.(map[string]any); ok {
			dst[key] = copyTree(child)
			continue
		}
		dst[key] = value
	}
	return dst
}
