// Package library supplies diagram library source text: the embedded
// default and caller-provided replacements loaded from disk or over HTTP.
//
// The embedded default is not Mermaid. It is a compact stand-in that
// exposes the same initialize/parse/render API and only understands
// flowcharts (graph/flowchart headers with nodes and edges). Every other
// diagram type is rejected as a render error. To render the full Mermaid
// grammar, supply the real mermaid bundle as a custom library, either with
// WithCustomLibrary/SetCustomLibrary, the --custom-mermaid flag, or the
// [library] source setting.
package library

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
)

//go:embed mermaid.js
var embedded string

var (
	defaultOnce sync.Once
	defaultText string
)

// Default returns the built-in flowchart-only stand-in library. The text is
// prepared once per process and shared read-only by every session.
func Default() string {
	defaultOnce.Do(func() {
		defaultText = strings.TrimSpace(embedded) + "\n"
	})
	return defaultText
}

// ErrTooLarge is returned when a library exceeds the configured size limit.
var ErrTooLarge = errors.New("library source too large")

// reModule spots top-level import/export statements. It only needs to be
// right for bundles: a classic UMD build never starts a line with them.
var reModule = regexp.MustCompile(`(?m)^\s*(?:import\s*[\w{*'"]|export\s*(?:\{|\*|default\b|const\b|let\b|var\b|function\b|class\b|async\b))`)

// IsModule reports whether src looks like an ES module.
func IsModule(src string) bool {
	return reModule.MatchString(src)
}

// moduleVar holds the converted module's namespace object. The library
// wrapper runs inside a function, so it stays local to that wrapper.
const moduleVar = "__mermaid_module"

// Prepare turns src into a classic script that leaves the library on
// globalThis.mermaid. Classic scripts are returned unchanged; ES modules
// are converted with esbuild, and a default export is unwrapped.
func Prepare(src string) (string, error) {
	if !IsModule(src) {
		return src, nil
	}
	result := api.Transform(src, api.TransformOptions{
		Format:     api.FormatIIFE,
		GlobalName: moduleVar,
		Target:     api.ES2020,
		Loader:     api.LoaderJS,
	})
	if len(result.Errors) > 0 {
		msg := result.Errors[0].Text
		if loc := result.Errors[0].Location; loc != nil {
			msg = fmt.Sprintf("%d:%d: %s", loc.Line, loc.Column, msg)
		}
		return "", fmt.Errorf("transforming ES module library: %s", msg)
	}
	code := string(result.Code)
	code += "globalThis.mermaid = " + moduleVar + " && " + moduleVar + ".default ? " + moduleVar + ".default : " + moduleVar + ";\n"
	return code, nil
}
