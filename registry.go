package appcore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InitResult aggregates the outcome of one InitializeAll pass. Callers
// decide which names are critical for overall bootstrap success; a failed
// non-critical module can be treated as simply absent, since collaborators
// already must tolerate GetModule returning nil.
type InitResult struct {
	// Ready lists modules that initialized successfully, in resolved order.
	Ready []string

	// Failed lists modules whose Init returned an error.
	Failed []string

	// Skipped lists modules that were never constructed because a direct or
	// transitive dependency failed, or because bootstrap was aborted.
	Skipped []string

	// Errors maps failed module names to their wrapped init errors.
	Errors map[string]error
}

// AllReady reports whether every registered module reached ready.
func (r *InitResult) AllReady() bool {
	return len(r.Failed) == 0 && len(r.Skipped) == 0
}

// ModuleFailure is the payload of the "module:failed" bus event.
type ModuleFailure struct {
	Module string
	Err    error
}

// ModuleRegistry holds module descriptors, computes a valid initialization
// order, drives async init/destroy, tracks per-module status, and exposes
// lookup by name.
type ModuleRegistry struct {
	mu          sync.Mutex
	descriptors map[string]*ModuleDescriptor
	order       []string // registration order, for deterministic resolution
	resolved    []string
	initialized bool
	core        *AppCore
	logger      Logger
}

// NewModuleRegistry creates a registry bound to the given core. The core
// reference is handed to every module factory.
func NewModuleRegistry(core *AppCore, logger Logger) *ModuleRegistry {
	if logger == nil {
		logger = NewSlogLogger(nil)
	}
	return &ModuleRegistry{
		descriptors: make(map[string]*ModuleDescriptor),
		core:        core,
		logger:      logger,
	}
}

// Register adds a module descriptor. It fails with ErrDuplicateModule if the
// name is already taken, before any side effect. Dependency names are
// validated at resolution time, since a dependency may legitimately be
// registered later in the same bootstrap pass.
func (r *ModuleRegistry) Register(name string, factory ModuleFactory, dependencies ...string) error {
	if name == "" {
		return ErrEmptyModuleName
	}
	if factory == nil {
		return fmt.Errorf("%w: module %q", ErrNilFactory, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, name)
	}

	r.descriptors[name] = &ModuleDescriptor{
		Name:         name,
		Factory:      factory,
		Dependencies: append([]string(nil), dependencies...),
		Status:       StatusRegistered,
		RegisteredAt: time.Now(),
	}
	r.order = append(r.order, name)
	r.logger.Debug("Registered module", "module", name, "dependencies", dependencies)
	return nil
}

// ResolveOrder topologically sorts the dependency graph and returns an order
// in which every module appears strictly after all of its dependencies. The
// order is deterministic for a fixed registration sequence: ties break by
// registration order. It fails with ErrCyclicDependency on any cycle and
// with ErrUnknownDependency when a dependency name was never registered.
func (r *ModuleRegistry) ResolveOrder() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveOrderLocked()
}

func (r *ModuleRegistry) resolveOrderLocked() ([]string, error) {
	var result []string
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	var visit func(string) error
	visit = func(node string) error {
		if inStack[node] {
			return fmt.Errorf("%w: %s", ErrCyclicDependency, node)
		}
		if visited[node] {
			return nil
		}
		inStack[node] = true

		for _, dep := range r.descriptors[node].Dependencies {
			if _, exists := r.descriptors[dep]; !exists {
				return fmt.Errorf("%w: %s depends on %s",
					ErrUnknownDependency, node, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		visited[node] = true
		inStack[node] = false
		result = append(result, node)
		return nil
	}

	for _, node := range r.order {
		if err := visit(node); err != nil {
			return nil, err
		}
	}

	r.resolved = result
	r.logger.Debug("Resolved module order", "order", result)
	return append([]string(nil), result...), nil
}

// InitializeAll constructs and initializes every registered module in
// resolved order. Independent branches of the dependency graph run
// concurrently; a module's Init never starts before all of its declared
// dependencies reached ready. A failed Init marks the module failed, emits
// "module:failed" on the bus, and skips every module that transitively
// depends on it; independent branches continue unaffected.
//
// Structural errors (cycles, unknown dependencies) abort bootstrap and are
// returned directly. Per-module failures are isolated and reported through
// the returned InitResult.
func (r *ModuleRegistry) InitializeAll(ctx context.Context) (*InitResult, error) {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		return nil, ErrAlreadyInitialized
	}
	r.initialized = true

	order, err := r.resolveOrderLocked()
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	done := make(map[string]chan struct{}, len(order))
	for _, name := range order {
		done[name] = make(chan struct{})
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, name := range order {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer close(done[name])
			r.initModule(ctx, name, done)
		}(name)
	}
	wg.Wait()

	return r.collectResult(order), nil
}

// initModule runs the lifecycle for a single module: wait for dependencies,
// construct lazily, init, record outcome.
func (r *ModuleRegistry) initModule(ctx context.Context, name string, done map[string]chan struct{}) {
	descriptor := r.descriptor(name)
	r.setStatus(descriptor, StatusResolving)

	for _, dep := range descriptor.Dependencies {
		select {
		case <-done[dep]:
		case <-ctx.Done():
			r.markSkipped(descriptor, fmt.Errorf("%w: %v", ErrBootstrapAborted, ctx.Err()))
			return
		}
	}

	if blocking := r.blockedBy(descriptor); blocking != "" {
		r.markSkipped(descriptor, fmt.Errorf("%w: dependency %s did not become ready",
			ErrModuleInit, blocking))
		return
	}
	if ctx.Err() != nil {
		r.markSkipped(descriptor, fmt.Errorf("%w: %v", ErrBootstrapAborted, ctx.Err()))
		return
	}

	// Lazy construction: the instance exists only once its dependencies are
	// all ready.
	instance := descriptor.Factory(r.core)

	r.mu.Lock()
	descriptor.instance = instance
	descriptor.Status = StatusInitializing
	r.mu.Unlock()

	r.logger.Debug("Initializing module", "module", name)
	if err := instance.Init(ctx); err != nil {
		wrapped := fmt.Errorf("%w: %s: %w", ErrModuleInit, name, err)
		r.mu.Lock()
		descriptor.Status = StatusFailed
		descriptor.Err = wrapped
		r.mu.Unlock()

		r.logger.Error("Module initialization failed", "module", name, "error", err)
		r.core.emitLifecycle(EventTypeModuleFailed, name, err)
		r.core.bus.Emit(EventModuleFailed, ModuleFailure{Module: name, Err: wrapped})
		return
	}

	now := time.Now()
	r.mu.Lock()
	descriptor.Status = StatusReady
	descriptor.InitializedAt = &now
	r.mu.Unlock()

	r.logger.Info("Module initialized", "module", name)
	r.core.emitLifecycle(EventTypeModuleInitialized, name, nil)
	r.core.bus.Emit(EventModuleReady, name)
}

// blockedBy returns the name of the first declared dependency that is not
// ready, or "" when all are ready.
func (r *ModuleRegistry) blockedBy(descriptor *ModuleDescriptor) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dep := range descriptor.Dependencies {
		if r.descriptors[dep].Status != StatusReady {
			return dep
		}
	}
	return ""
}

func (r *ModuleRegistry) markSkipped(descriptor *ModuleDescriptor, reason error) {
	r.mu.Lock()
	descriptor.Status = StatusSkipped
	descriptor.Err = reason
	r.mu.Unlock()

	r.logger.Warn("Module skipped", "module", descriptor.Name, "reason", reason)
	r.core.emitLifecycle(EventTypeModuleSkipped, descriptor.Name, reason)
	r.core.bus.Emit(EventModuleSkipped, descriptor.Name)
}

func (r *ModuleRegistry) collectResult(order []string) *InitResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &InitResult{Errors: make(map[string]error)}
	for _, name := range order {
		descriptor := r.descriptors[name]
		switch descriptor.Status {
		case StatusReady:
			result.Ready = append(result.Ready, name)
		case StatusFailed:
			result.Failed = append(result.Failed, name)
			result.Errors[name] = descriptor.Err
		case StatusSkipped:
			result.Skipped = append(result.Skipped, name)
		}
	}
	return result
}

// GetModule returns the live instance for name only if the module is ready,
// else nil. Absence is a normal, tolerable case: collaborators looked up
// this way are optional by contract.
func (r *ModuleRegistry) GetModule(name string) Module {
	r.mu.Lock()
	defer r.mu.Unlock()

	descriptor, ok := r.descriptors[name]
	if !ok || descriptor.Status != StatusReady {
		return nil
	}
	return descriptor.instance
}

// Status returns the lifecycle status for name.
func (r *ModuleRegistry) Status(name string) (ModuleStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	descriptor, ok := r.descriptors[name]
	if !ok {
		return "", false
	}
	return descriptor.Status, true
}

// ModuleStatuses returns a snapshot of every module's status.
func (r *ModuleRegistry) ModuleStatuses() map[string]ModuleStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make(map[string]ModuleStatus, len(r.descriptors))
	for name, descriptor := range r.descriptors {
		statuses[name] = descriptor.Status
	}
	return statuses
}

// DestroyAll tears down every module that reached ready, in the reverse of
// the resolved order. Individual Destroy failures are logged and swallowed
// so teardown always attempts every remaining module.
func (r *ModuleRegistry) DestroyAll(ctx context.Context) {
	r.mu.Lock()
	resolved := append([]string(nil), r.resolved...)
	r.mu.Unlock()

	for i := len(resolved) - 1; i >= 0; i-- {
		name := resolved[i]
		descriptor := r.descriptor(name)

		r.mu.Lock()
		if descriptor.Status != StatusReady {
			r.mu.Unlock()
			continue
		}
		descriptor.Status = StatusDestroying
		instance := descriptor.instance
		r.mu.Unlock()

		r.logger.Debug("Destroying module", "module", name)
		if err := instance.Destroy(ctx); err != nil {
			r.logger.Error("Module destroy failed",
				"module", name, "error", fmt.Errorf("%w: %s: %w", ErrModuleDestroy, name, err))
		}

		r.setStatus(descriptor, StatusDestroyed)
		r.core.emitLifecycle(EventTypeModuleDestroyed, name, nil)
	}
}

func (r *ModuleRegistry) descriptor(name string) *ModuleDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.descriptors[name]
}

func (r *ModuleRegistry) setStatus(descriptor *ModuleDescriptor, status ModuleStatus) {
	r.mu.Lock()
	descriptor.Status = status
	r.mu.Unlock()
}
