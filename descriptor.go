package appcore

import (
	"time"
)

// ModuleStatus represents the current lifecycle state of a module.
type ModuleStatus string

const (
	// StatusRegistered indicates the descriptor exists but the module has
	// not been scheduled yet.
	StatusRegistered ModuleStatus = "registered"

	// StatusResolving indicates the module's dependencies are being checked
	// ahead of construction.
	StatusResolving ModuleStatus = "resolving"

	// StatusInitializing indicates the factory ran and Init is in flight.
	StatusInitializing ModuleStatus = "initializing"

	// StatusReady indicates Init completed and the instance is usable.
	StatusReady ModuleStatus = "ready"

	// StatusFailed indicates Init returned an error. There is no transition
	// back to ready without re-registration under a fresh bootstrap.
	StatusFailed ModuleStatus = "failed"

	// StatusSkipped indicates a direct or transitive dependency failed, so
	// the module was never constructed.
	StatusSkipped ModuleStatus = "skipped"

	// StatusDestroying indicates Destroy is in flight during teardown.
	StatusDestroying ModuleStatus = "destroying"

	// StatusDestroyed indicates teardown completed for this module.
	StatusDestroyed ModuleStatus = "destroyed"
)

// ModuleDescriptor holds the registry's record of one registered module.
// The descriptor is owned by the registry for its entire lifetime; the live
// instance exists only after the module's dependencies resolved and its
// factory ran.
type ModuleDescriptor struct {
	// Name is the unique identifier for this module.
	Name string

	// Factory constructs the module instance. Invoked lazily, immediately
	// before Init.
	Factory ModuleFactory

	// Dependencies lists the names of modules that must reach ready before
	// this module initializes. Order is preserved as declared.
	Dependencies []string

	// Status tracks the current lifecycle state.
	Status ModuleStatus

	// RegisteredAt tracks when the descriptor was created.
	RegisteredAt time.Time

	// InitializedAt tracks when Init completed, if it did.
	InitializedAt *time.Time

	// Err holds the init failure for failed modules.
	Err error

	instance Module
}

// Instance returns the live module instance, or nil if the module was never
// constructed.
func (d *ModuleDescriptor) Instance() Module {
	return d.instance
}
