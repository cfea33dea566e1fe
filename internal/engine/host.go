// Package engine hosts one JavaScript runtime with the browser shim
// installed, and runs labelled scripts against it.
package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/eventloop"
	"github.com/cryguy/mermaid/internal/webapi"
)

// ScriptError reports an exception raised by a script, a rejected promise,
// or a failure in a native bridge function.
type ScriptError struct {
	Label   string
	Message string
}

func (e *ScriptError) Error() string {
	if e.Label == "" {
		return e.Message
	}
	return e.Label + ": " + e.Message
}

// resolveSlot is the global that holds a value while Resolve settles it.
const resolveSlot = "__resolve_slot"

// Host owns a runtime and its event loop. It is not safe for concurrent
// use; callers serialize access.
type Host struct {
	rt     core.JSRuntime
	el     *eventloop.EventLoop
	cfg    core.EngineConfig
	logger *log.Logger
	setups []webapi.SetupFunc

	broken atomic.Bool
}

// Option configures a Host.
type Option func(*Host)

// WithLogger routes script console output to l.
func WithLogger(l *log.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithConfig sets execution limits.
func WithConfig(cfg core.EngineConfig) Option {
	return func(h *Host) { h.cfg = cfg.WithDefaults() }
}

// WithSetups replaces the default shim.
func WithSetups(setups ...webapi.SetupFunc) Option {
	return func(h *Host) { h.setups = setups }
}

// New installs the shim into rt and returns a Host that owns it. On error
// rt is closed.
func New(rt core.JSRuntime, opts ...Option) (*Host, error) {
	h := &Host{
		rt:  rt,
		el:  eventloop.New(),
		cfg: core.DefaultEngineConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = log.New(io.Discard)
	}
	if h.setups == nil {
		h.setups = webapi.Setups(h.logger)
	}

	for i, setup := range h.setups {
		if err := setup(rt, h.el); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("installing shim (step %d): %w", i+1, err)
		}
	}
	return h, nil
}

// Execute runs src as a classic script and returns its completion value
// as a string.
func (h *Host) Execute(label, src string) (string, error) {
	var out string
	err := h.guard(label, func() error {
		var err error
		out, err = h.rt.EvalString(src)
		return err
	})
	return out, err
}

// Run runs src and discards its completion value.
func (h *Host) Run(label, src string) error {
	return h.guard(label, func() error {
		return h.rt.Eval(src)
	})
}

// Resolve evaluates expr and, if the result is a promise, drives microtasks
// and timers until it settles. The settled value is returned as a string;
// objects are JSON-encoded. A rejection is returned as a *ScriptError
// carrying the rejection reason.
func (h *Host) Resolve(label, expr string) (string, error) {
	var out string
	err := h.guard(label, func() error {
		if err := h.rt.Eval(fmt.Sprintf("globalThis.%s = (%s);", resolveSlot, expr)); err != nil {
			return err
		}
		defer func() {
			_ = h.rt.Eval("delete globalThis." + resolveSlot + ";")
			h.el.Reset()
		}()

		deadline := time.Now().Add(h.timeout())
		if err := webapi.AwaitValue(h.rt, resolveSlot, deadline, h.el); err != nil {
			return err
		}

		var err error
		out, err = h.rt.EvalString(`(function(v) {
			if (v === undefined || v === null) return '';
			if (typeof v === 'object') return JSON.stringify(v);
			return String(v);
		})(globalThis.` + resolveSlot + `)`)
		return err
	})
	return out, err
}

// Broken reports whether a script was interrupted or panicked. A broken
// Host must be closed and replaced.
func (h *Host) Broken() bool {
	return h.broken.Load()
}

// Close releases the runtime.
func (h *Host) Close() error {
	h.el.Reset()
	if h.rt == nil {
		return nil
	}
	err := h.rt.Close()
	h.rt = nil
	return err
}

func (h *Host) timeout() time.Duration {
	return time.Duration(h.cfg.ExecutionTimeout) * time.Millisecond
}

// guard runs fn under a watchdog that interrupts the runtime when the
// execution timeout passes, and turns panics and script failures into
// *ScriptError.
func (h *Host) guard(label string, fn func() error) (err error) {
	if h.rt == nil {
		return &ScriptError{Label: label, Message: "engine is closed"}
	}
	if serr := h.rt.SetGlobal("__scriptLabel", label); serr != nil {
		return &ScriptError{Label: label, Message: serr.Error()}
	}

	var timedOut atomic.Bool
	timeout := h.timeout()
	// The watchdog fires slightly after the await deadline so a slow
	// resolve reports a timeout instead of an interrupted script.
	watchdog := time.AfterFunc(timeout+timeout/10, func() {
		timedOut.Store(true)
		h.rt.Interrupt()
	})

	defer func() {
		watchdog.Stop()
		if r := recover(); r != nil {
			h.broken.Store(true)
			h.logger.Error("script panicked", "script", label, "panic", r)
			err = &ScriptError{Label: label, Message: fmt.Sprintf("engine panic: %v", r)}
			return
		}
		if timedOut.Load() {
			h.broken.Store(true)
			err = &ScriptError{Label: label, Message: fmt.Sprintf("execution timed out (limit: %v)", timeout)}
		}
	}()

	if err := fn(); err != nil {
		return wrapScriptError(label, err, &h.broken)
	}
	return nil
}

func wrapScriptError(label string, err error, broken *atomic.Bool) error {
	var rej *webapi.RejectionError
	switch {
	case errors.As(err, &rej):
		return &ScriptError{Label: label, Message: rej.Reason}
	case errors.Is(err, webapi.ErrAwaitTimeout):
		broken.Store(true)
		return &ScriptError{Label: label, Message: err.Error()}
	}
	return &ScriptError{Label: label, Message: cleanMessage(err.Error())}
}

// cleanMessage trims engine stack traces from an exception message,
// keeping the first line.
func cleanMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = strings.TrimSpace(msg[:i])
	}
	return msg
}
