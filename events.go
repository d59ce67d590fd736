package appcore

// Bus event names emitted by the core itself. Modules are free to define
// their own names; the convention is "topic:action".
const (
	// EventModuleReady fires after a module's Init completes. Payload is the
	// module name.
	EventModuleReady = "module:ready"

	// EventModuleFailed fires when a module's Init returns an error. Payload
	// is a ModuleFailure.
	EventModuleFailed = "module:failed"

	// EventModuleSkipped fires when a module is skipped because a dependency
	// failed or bootstrap was aborted. Payload is the module name.
	EventModuleSkipped = "module:skipped"
)
