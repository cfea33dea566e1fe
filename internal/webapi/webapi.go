// Package webapi builds the minimal browser-like environment a diagram
// layout library expects: console, timers, a handful of globals, and a
// synthetic document/window.
package webapi

import (
	"github.com/charmbracelet/log"

	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/eventloop"
)

// SetupFunc installs one group of globals into a runtime.
type SetupFunc func(rt core.JSRuntime, el *eventloop.EventLoop) error

// Setups returns the shim in load order. logger receives console output.
func Setups(logger *log.Logger) []SetupFunc {
	return []SetupFunc{
		SetupConsole(logger),
		SetupGlobals,
		SetupTimers,
		SetupDOM,
	}
}
