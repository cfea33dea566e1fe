//go:build goja && !v8

package mermaid

import (
	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/gojaengine"
)

// BackendName identifies the compiled-in JavaScript engine.
const BackendName = "goja"

var newRuntime core.RuntimeFactory = gojaengine.New
