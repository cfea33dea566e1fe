package webapi

import (
	"time"

	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/eventloop"
)

// timersJS is the JavaScript side of setTimeout/setInterval. Callbacks live
// in globalThis.__timerCallbacks keyed by the Go-assigned timer id.
const timersJS = `
(function() {
	globalThis.__timerCallbacks = {};
	function schedule(fn, delay, extra, interval) {
		if (typeof fn !== 'function') return 0;
		var args = Array.prototype.slice.call(extra, 2);
		var id = __timerRegister(Number(delay) || 0, interval);
		globalThis.__timerCallbacks[id] = { fn: fn, args: args, interval: interval };
		return id;
	}
	globalThis.setTimeout = function(fn, delay) { return schedule(fn, delay, arguments, false); };
	globalThis.setInterval = function(fn, delay) { return schedule(fn, delay, arguments, true); };
	globalThis.clearTimeout = globalThis.clearInterval = function(id) {
		if (typeof id !== 'number') return;
		__timerClear(id);
		delete globalThis.__timerCallbacks[id];
	};
	globalThis.requestAnimationFrame = function(fn) {
		return setTimeout(function() { fn(performance.now()); }, 16);
	};
	globalThis.cancelAnimationFrame = globalThis.clearTimeout;
})();
`

// SetupTimers registers Go-backed timers driven by el.
func SetupTimers(rt core.JSRuntime, el *eventloop.EventLoop) error {
	if err := rt.RegisterFunc("__timerRegister", func(delayMs int, isInterval bool) int {
		return el.RegisterTimer(time.Duration(delayMs)*time.Millisecond, isInterval)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__timerClear", func(id int) {
		el.ClearTimer(id)
	}); err != nil {
		return err
	}
	return rt.Eval(timersJS)
}
