//go:build v8

package mermaid

import (
	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/v8engine"
)

// BackendName identifies the compiled-in JavaScript engine.
const BackendName = "v8"

var newRuntime core.RuntimeFactory = v8engine.New
