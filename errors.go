package appcore

import (
	"errors"
)

// Core errors
var (
	// Registration and resolution errors. These are structural: they are
	// raised before any module runs and abort the entire bootstrap.
	ErrDuplicateModule   = errors.New("module already registered")
	ErrUnknownDependency = errors.New("module depends on unregistered module")
	ErrCyclicDependency  = errors.New("cyclic module dependency detected")
	ErrNilFactory        = errors.New("module factory cannot be nil")
	ErrEmptyModuleName   = errors.New("module name cannot be empty")

	// Lifecycle errors. Per-module init failures are isolated and collected
	// in the InitResult; destroy failures are logged and swallowed.
	ErrModuleInit          = errors.New("module initialization failed")
	ErrModuleDestroy       = errors.New("module destroy failed")
	ErrAlreadyInitialized  = errors.New("registry already initialized")
	ErrBootstrapAborted    = errors.New("bootstrap aborted")
	ErrResourceUnavailable = errors.New("external resource did not become available")

	// Event bus errors
	ErrEventHandlerNil = errors.New("event handler cannot be nil")
	ErrEventNameEmpty  = errors.New("event name cannot be empty")

	// State store errors
	ErrStatePathEmpty   = errors.New("state path cannot be empty")
	ErrStateCallbackNil = errors.New("state callback cannot be nil")

	// Observer errors
	ErrObserverNil       = errors.New("observer cannot be nil")
	ErrNoObserverSubject = errors.New("no subject available for event emission")

	// Configuration errors
	ErrConfigNil             = errors.New("config is nil")
	ErrConfigNotPointer      = errors.New("config must be a pointer to a struct")
	ErrUnsupportedConfigFile = errors.New("unsupported config file extension")
	ErrConfigFeeder          = errors.New("config feeder error")
)
