package appcore

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// AppCore is the composition root. It owns one EventBus, one StateStore, and
// one ModuleRegistry, and hands itself to every module factory. There are no
// ambient globals: everything a module may touch is reachable from the core
// it was constructed with.
type AppCore struct {
	bus       *EventBus
	state     *StateStore
	registry  *ModuleRegistry
	observers *observerRegistry
	logger    Logger
	config    *CoreConfig

	mu         sync.Mutex
	initCancel context.CancelFunc
}

// Option configures an AppCore at construction time.
type Option func(*AppCore)

// WithConfig overrides the default core configuration.
func WithConfig(config *CoreConfig) Option {
	return func(core *AppCore) {
		if config != nil {
			core.config = config
		}
	}
}

// New creates an application core. A nil logger falls back to slog.
func New(logger Logger, opts ...Option) *AppCore {
	if logger == nil {
		logger = NewSlogLogger(nil)
	}

	core := &AppCore{
		bus:       NewEventBus(logger),
		state:     NewStateStore(logger),
		observers: newObserverRegistry(logger),
		logger:    logger,
		config:    DefaultCoreConfig(),
	}
	core.registry = NewModuleRegistry(core, logger)

	for _, opt := range opts {
		opt(core)
	}
	return core
}

// Register adds a module under a unique name with its declared dependencies.
// Registration is bootstrap-time only; it fails with ErrDuplicateModule when
// the name is taken.
func (core *AppCore) Register(name string, factory ModuleFactory, dependencies ...string) error {
	if err := core.registry.Register(name, factory, dependencies...); err != nil {
		return err
	}
	core.emitLifecycle(EventTypeModuleRegistered, name, nil)
	return nil
}

// Init resolves the dependency graph and initializes every registered module.
// Structural errors (duplicate names surface at Register; cycles and unknown
// dependencies here) abort bootstrap. Per-module init failures are isolated
// and aggregated in the returned InitResult.
func (core *AppCore) Init(ctx context.Context) (*InitResult, error) {
	initCtx, cancel := context.WithCancel(ctx)
	core.mu.Lock()
	core.initCancel = cancel
	core.mu.Unlock()

	result, err := core.registry.InitializeAll(initCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	core.emitLifecycle(EventTypeApplicationStarted, "", nil)
	core.logger.Info("Application core initialized",
		"ready", len(result.Ready), "failed", len(result.Failed), "skipped", len(result.Skipped))
	return result, nil
}

// Destroy tears down all ready modules in reverse dependency order. If
// initialization is still in flight its context is cancelled first, so
// suspended init work unwinds instead of racing with teardown.
func (core *AppCore) Destroy(ctx context.Context) {
	core.mu.Lock()
	if core.initCancel != nil {
		core.initCancel()
		core.initCancel = nil
	}
	core.mu.Unlock()

	core.registry.DestroyAll(ctx)
	core.emitLifecycle(EventTypeApplicationStopped, "", nil)
}

// Run initializes the application and blocks until SIGINT or SIGTERM, then
// destroys all modules. Init uses the configured timeout; teardown uses the
// configured destroy timeout.
func (core *AppCore) Run() error {
	initCtx, cancel := context.WithTimeout(context.Background(), core.config.InitTimeout)
	defer cancel()

	result, err := core.Init(initCtx)
	if err != nil {
		return err
	}
	for name, initErr := range result.Errors {
		core.logger.Warn("Running without failed module", "module", name, "error", initErr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	core.logger.Info("Received signal, shutting down", "signal", sig)

	destroyCtx, cancelDestroy := context.WithTimeout(context.Background(), core.config.DestroyTimeout)
	defer cancelDestroy()
	core.Destroy(destroyCtx)
	return nil
}

// Emit publishes an event on the shared bus.
func (core *AppCore) Emit(name string, payload any) {
	core.bus.Emit(name, payload)
}

// On subscribes a handler to the named event and returns a subscription ID.
func (core *AppCore) On(name string, handler EventHandler) (string, error) {
	return core.bus.On(name, handler)
}

// Off removes a bus subscription by ID.
func (core *AppCore) Off(subscriptionID string) {
	core.bus.Off(subscriptionID)
}

// GetModule returns the named module's live instance only if it is ready,
// else nil. Callers must treat absence as a normal, tolerable case.
func (core *AppCore) GetModule(name string) Module {
	return core.registry.GetModule(name)
}

// GetState returns the value at a state path, or nil.
func (core *AppCore) GetState(path string) any {
	return core.state.Get(path)
}

// SetState writes a value at a state path, notifying the exact path and
// every ancestor.
func (core *AppCore) SetState(path string, value any) error {
	return core.state.Set(path, value)
}

// SubscribeState registers a callback for writes at or below a state path.
func (core *AppCore) SubscribeState(path string, callback StateCallback) (string, error) {
	return core.state.Subscribe(path, callback)
}

// UnsubscribeState removes a state subscription by ID.
func (core *AppCore) UnsubscribeState(subscriptionID string) {
	core.state.Unsubscribe(subscriptionID)
}

// Bus exposes the shared event bus.
func (core *AppCore) Bus() *EventBus { return core.bus }

// State exposes the shared state store.
func (core *AppCore) State() *StateStore { return core.state }

// Registry exposes the module registry.
func (core *AppCore) Registry() *ModuleRegistry { return core.registry }

// Logger returns the core logger.
func (core *AppCore) Logger() Logger { return core.logger }

// Config returns the core configuration.
func (core *AppCore) Config() *CoreConfig { return core.config }

// RegisterObserver implements Subject.
func (core *AppCore) RegisterObserver(observer Observer, eventTypes ...string) error {
	return core.observers.RegisterObserver(observer, eventTypes...)
}

// UnregisterObserver implements Subject.
func (core *AppCore) UnregisterObserver(observer Observer) error {
	return core.observers.UnregisterObserver(observer)
}

// NotifyObservers implements Subject.
func (core *AppCore) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	return core.observers.NotifyObservers(ctx, event)
}

// emitLifecycle mirrors a lifecycle transition to registered observers as a
// CloudEvent. Observer failures are contained inside the observer registry.
func (core *AppCore) emitLifecycle(eventType, module string, cause error) {
	data := map[string]any{}
	if module != "" {
		data["module"] = module
	}
	if cause != nil {
		data["error"] = cause.Error()
	}
	event := NewCloudEvent(eventType, "appcore", data, nil)
	_ = core.observers.NotifyObservers(context.Background(), event)
}
