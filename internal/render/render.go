// Package render drives a diagram library inside a script host and turns
// its output into a sized SVG document.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/webapi"
)

// Script labels, as they appear in logs and error messages.
const (
	LabelSetup  = "[mermaid_setup]"
	LabelLib    = "[mermaid_lib]"
	LabelInit   = "[mermaid_init_config]"
	LabelRender = "[mermaid_render]"
)

// ErrInvalidOutput is returned when the library produced something that
// is not an SVG document.
var ErrInvalidOutput = errors.New("invalid diagram output")

// Host is the part of engine.Host the orchestrator drives.
type Host interface {
	Run(label, src string) error
	Resolve(label, expr string) (string, error)
}

// Orchestrator runs the five render steps against one host.
type Orchestrator struct {
	host   Host
	logger *log.Logger
	newID  func() string
}

// New returns an Orchestrator for host. logger may be nil.
func New(host Host, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		host:   host,
		logger: logger,
		newID:  func() string { return "mermaid-" + uuid.NewString() },
	}
}

// Render produces an SVG for diagram using library as the diagram library
// source. Every step runs on every call; the host keeps whatever state the
// previous call left behind.
func (o *Orchestrator) Render(diagram string, cfg core.RenderConfig, library string) (string, error) {
	if err := o.host.Run(LabelSetup, webapi.DOMScript()); err != nil {
		return "", fmt.Errorf("setting up environment: %w", err)
	}

	if err := o.host.Run(LabelLib, wrapLibrary(library)); err != nil {
		// A library that fails to even parse is reported the same way as
		// one that throws while loading; the next step decides whether
		// anything usable was left behind.
		if o.logger != nil {
			o.logger.Warn("diagram library failed to load", "err", err)
		}
	}

	initJS, err := initScript(cfg)
	if err != nil {
		return "", err
	}
	if err := o.host.Run(LabelInit, initJS); err != nil {
		return "", fmt.Errorf("initializing diagram library: %w", err)
	}

	id := o.newID()
	svg, err := o.host.Resolve(LabelRender, renderExpr(id, diagram))
	if err != nil {
		return "", fmt.Errorf("rendering diagram: %w", err)
	}

	return SizeRoot(svg, cfg.Width, cfg.Height)
}

// wrapLibrary isolates library load failures: they are reported through
// console.warn and never abort the render on their own. The previous
// mermaid global is removed first so a library that fails to load cannot
// leave an earlier one in charge.
func wrapLibrary(src string) string {
	return "delete globalThis.mermaid;\n(function() {\ntry {\n" + src +
		"\n} catch (e) {\nconsole.warn('Some Mermaid features may not work:', e && e.message ? e.message : String(e));\n}\n})();\n"
}

type themeVariables struct {
	PrimaryColor       string `json:"primaryColor"`
	PrimaryTextColor   string `json:"primaryTextColor"`
	PrimaryBorderColor string `json:"primaryBorderColor"`
	LineColor          string `json:"lineColor"`
	Background         string `json:"background"`
}

type flowchartConfig struct {
	UseMaxWidth bool `json:"useMaxWidth"`
	HTMLLabels  bool `json:"htmlLabels"`
}

type initConfig struct {
	StartOnLoad    bool            `json:"startOnLoad"`
	Theme          string          `json:"theme"`
	ThemeVariables themeVariables  `json:"themeVariables"`
	Flowchart      flowchartConfig `json:"flowchart"`
	SecurityLevel  string          `json:"securityLevel"`
}

func initScript(cfg core.RenderConfig) (string, error) {
	data, err := json.Marshal(initConfig{
		Theme: cfg.Theme,
		ThemeVariables: themeVariables{
			PrimaryColor:       "#fff",
			PrimaryTextColor:   "#000",
			PrimaryBorderColor: "#000",
			LineColor:          "#000",
			Background:         cfg.Background,
		},
		Flowchart:     flowchartConfig{UseMaxWidth: true, HTMLLabels: true},
		SecurityLevel: "loose",
	})
	if err != nil {
		return "", fmt.Errorf("encoding init config: %w", err)
	}
	return `if (typeof mermaid === 'undefined' || typeof mermaid.initialize !== 'function') {
	throw new Error('mermaid library is not loaded');
}
mermaid.initialize(` + string(data) + `);`, nil
}

func renderExpr(id, diagram string) string {
	return fmt.Sprintf(`(function() {
	var code = `+"`%s`"+`;
	var container = document.createElement('div');
	container.id = %q + '-container';
	document.body.appendChild(container);
	return Promise.resolve(mermaid.render(%q, code, container)).then(function(r) {
		if (typeof r === 'string') return r;
		return r && typeof r.svg === 'string' ? r.svg : '';
	});
})()`, EscapeTemplate(diagram), id, id)
}

// EscapeTemplate escapes s for embedding in a JavaScript template literal.
func EscapeTemplate(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "`", "\\`", "${", `\${`)
	return r.Replace(s)
}
