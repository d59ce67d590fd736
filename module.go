// Package appcore provides the orchestration core that assembles
// independently-authored components into one running application: a
// dependency-aware module registry, a process-wide publish/subscribe event
// bus, and a reactive key-path state store.
//
// Applications are composed of uniquely-named modules that declare
// dependencies on each other by name. A single AppCore owns the shared bus,
// store, and registry, and is handed to every module factory. Modules never
// hold direct references to each other; all coordination happens through
// core.Emit/On and core.GetState/SetState, with optional synchronous lookups
// via core.GetModule for already-ready collaborators.
//
// Basic usage:
//
//	core := appcore.New(appcore.NewSlogLogger(nil))
//	core.Register("state", newStateModule)
//	core.Register("theme", newThemeModule, "state")
//	result, err := core.Init(context.Background())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer core.Destroy(context.Background())
package appcore

import "context"

// Module is the capability contract every orchestrated component must
// satisfy. It is structural: any type with these methods participates in the
// lifecycle, no shared base class required. The embeddable BaseModule helper
// provides the convenience accessors most modules want.
type Module interface {
	// Init brings the module to a fully usable state. It is called exactly
	// once, after all of the module's declared dependencies have reached
	// READY. Init may suspend on external resources but must respect ctx
	// cancellation: if application teardown begins mid-init, ctx is
	// cancelled and in-flight work should unwind.
	//
	// On failure Init must return an error rather than leave the module
	// half-constructed; the registry marks the module FAILED and skips
	// everything that depends on it.
	Init(ctx context.Context) error

	// Destroy releases all resources acquired during Init (timers,
	// subscriptions, observers). It is called during teardown in reverse
	// dependency order, only for modules that reached READY. Destroy should
	// be idempotent: teardown across failure paths can otherwise invoke it
	// twice.
	Destroy(ctx context.Context) error
}

// ModuleFactory constructs a module instance. The factory receives the
// application core so the instance can reach the shared event bus, state
// store, and registry. Factories run lazily: the registry invokes a factory
// immediately before the module's Init, and never for modules whose
// dependencies failed.
type ModuleFactory func(core *AppCore) Module
