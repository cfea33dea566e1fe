package core

// JSRuntime abstracts the JavaScript engine (QuickJS, V8 or goja) behind a
// common interface used by the shim setup functions in internal/webapi,
// the event loop in internal/eventloop and the host in internal/engine.
//
// Implementations are single-threaded: callers must serialize every call.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// EvalBool evaluates JavaScript and returns the result as a Go bool.
	EvalBool(js string) (bool, error)

	// RegisterFunc registers a Go function as a global JavaScript function.
	// Supported argument and return types are string, int, float64 and bool.
	// A (T, error) return throws in JS when the error is non-nil.
	RegisterFunc(name string, fn any) error

	// SetGlobal sets a global variable on the JS context. Basic Go types
	// (string, int, float64, bool) are converted directly; anything else
	// goes through JSON.
	SetGlobal(name string, value any) error

	// RunMicrotasks pumps the microtask queue (Promise callbacks, etc.).
	RunMicrotasks()

	// Interrupt asks the engine to abort the script currently running.
	// Safe to call from another goroutine.
	Interrupt()

	// Close releases the engine and all script-heap memory.
	Close() error
}

// RuntimeFactory creates a fresh, empty JSRuntime for the given config.
type RuntimeFactory func(cfg EngineConfig) (JSRuntime, error)
