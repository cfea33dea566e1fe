//go:build !v8 && !goja

package mermaid

import (
	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/quickjs"
)

// BackendName identifies the compiled-in JavaScript engine.
const BackendName = "quickjs"

var newRuntime core.RuntimeFactory = quickjs.New
