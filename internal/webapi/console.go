package webapi

import (
	"github.com/charmbracelet/log"

	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/eventloop"
)

// consoleJS builds globalThis.console on top of the Go-backed __console.
// Objects are JSON-encoded where possible so layout warnings that carry
// structured detail stay readable in the log.
const consoleJS = `
(function() {
	function fmt(arg) {
		if (arg instanceof Error) return arg.message || String(arg);
		if (typeof arg === 'object' && arg !== null) {
			try { return JSON.stringify(arg); } catch (e) { return '[object Object]'; }
		}
		return String(arg);
	}
	var levels = ['log', 'info', 'warn', 'error', 'debug'];
	var con = {};
	for (var i = 0; i < levels.length; i++) {
		(function(lvl) {
			con[lvl] = function() {
				var parts = [];
				for (var j = 0; j < arguments.length; j++) parts.push(fmt(arguments[j]));
				__console(String(globalThis.__scriptLabel || ''), lvl, parts.join(' '));
			};
		})(levels[i]);
	}
	con.trace = con.debug;
	con.time = con.timeEnd = con.group = con.groupEnd = function() {};
	globalThis.console = con;
})();
`

// SetupConsole returns a setup function that replaces globalThis.console
// with one that forwards to logger. log/info/debug are reported at debug
// level since diagram libraries are chatty.
func SetupConsole(logger *log.Logger) SetupFunc {
	return func(rt core.JSRuntime, _ *eventloop.EventLoop) error {
		if err := rt.RegisterFunc("__console", func(label, level, message string) {
			if logger == nil {
				return
			}
			switch level {
			case "warn":
				logger.Warn(message, "script", label)
			case "error":
				logger.Error(message, "script", label)
			default:
				logger.Debug(message, "script", label, "console", level)
			}
		}); err != nil {
			return err
		}
		return rt.Eval(consoleJS)
	}
}
