package webapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/eventloop"
)

// ErrAwaitTimeout is returned by AwaitValue when the deadline passes before
// the promise settles.
var ErrAwaitTimeout = errors.New("promise resolution timed out")

// RejectionError carries the reason a promise was rejected with.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "promise rejected: " + e.Reason
}

// drainSlice bounds a single event loop drain so microtasks queued by a
// timer callback get a turn before the next timer.
const drainSlice = 10 * time.Millisecond

// AwaitValue settles the value held in globalThis[globalVar]. Non-promise
// values are left untouched. For a promise, it pumps microtasks and fires
// timers on el until the promise settles or deadline passes, then stores
// the fulfilled value back into globalThis[globalVar].
func AwaitValue(rt core.JSRuntime, globalVar string, deadline time.Time, el *eventloop.EventLoop) error {
	isPromise, err := rt.EvalBool(fmt.Sprintf(
		"(function(v) { return v !== null && typeof v === 'object' && typeof v.then === 'function'; })(globalThis[%q])",
		globalVar))
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", globalVar, err)
	}
	if !isPromise {
		return nil
	}

	setupJS := fmt.Sprintf(`
		delete globalThis.__awaited_result;
		delete globalThis.__awaited_state;
		Promise.resolve(globalThis[%q]).then(
			function(r) { globalThis.__awaited_result = r; globalThis.__awaited_state = 'fulfilled'; },
			function(e) { globalThis.__awaited_result = e; globalThis.__awaited_state = 'rejected'; }
		);
	`, globalVar)
	if err := rt.Eval(setupJS); err != nil {
		return fmt.Errorf("setting up promise await: %w", err)
	}
	defer func() {
		_ = rt.Eval("delete globalThis.__awaited_result; delete globalThis.__awaited_state;")
	}()

	var state string
	for {
		rt.RunMicrotasks()

		if el != nil && el.HasPending() {
			slice := time.Now().Add(drainSlice)
			if slice.After(deadline) {
				slice = deadline
			}
			// Errors thrown inside timer callbacks are the library's own
			// business; a fatal one will reject the awaited promise.
			el.Drain(rt, slice)
			rt.RunMicrotasks()
		}

		state, err = rt.EvalString("String(globalThis.__awaited_state)")
		if err != nil {
			return fmt.Errorf("checking promise state: %w", err)
		}
		if state != "undefined" {
			break
		}
		if time.Now().After(deadline) {
			return ErrAwaitTimeout
		}
		if el == nil || !el.HasPending() {
			time.Sleep(time.Millisecond)
		}
	}

	if state == "rejected" {
		reason, _ := rt.EvalString(`(function(e) {
			if (e && typeof e === 'object' && e.message !== undefined) return String(e.message);
			return String(e);
		})(globalThis.__awaited_result)`)
		return &RejectionError{Reason: reason}
	}

	return rt.Eval(fmt.Sprintf("globalThis[%q] = globalThis.__awaited_result;", globalVar))
}
