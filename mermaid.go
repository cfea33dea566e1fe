// Package mermaid renders Mermaid diagram definitions to SVG, PNG, JPEG,
// WebP or GIF without a browser. A Renderer owns one embedded JavaScript
// engine that runs the diagram library against a synthetic DOM; raster
// formats are produced from the resulting SVG in Go.
package mermaid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/engine"
	"github.com/cryguy/mermaid/internal/library"
	"github.com/cryguy/mermaid/internal/raster"
	"github.com/cryguy/mermaid/internal/render"
)

// Renderer is a render session. Renders on one Renderer are serialized;
// use several Renderers for parallelism.
type Renderer struct {
	cfg     core.EngineConfig
	logger  *log.Logger
	factory core.RuntimeFactory

	// slot is a one-element semaphore guarding host, orch and poisoned.
	slot     chan struct{}
	host     *engine.Host
	orch     *render.Orchestrator
	poisoned bool

	mu        sync.Mutex
	custom    string
	customErr error
	hasCustom bool
	closed    bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithEngineConfig sets the engine limits. Zero fields take defaults.
func WithEngineConfig(cfg EngineConfig) Option {
	return func(r *Renderer) { r.cfg = cfg.WithDefaults() }
}

// WithLogger routes engine and script diagnostics to l.
func WithLogger(l *log.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithCustomLibrary starts the session with src as its diagram library.
func WithCustomLibrary(src string) Option {
	return func(r *Renderer) { r.setCustom(src) }
}

// NewRenderer creates a session and its script engine.
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		cfg:     core.DefaultEngineConfig(),
		factory: newRuntime,
		slot:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.NewWithOptions(io.Discard, log.Options{Level: log.WarnLevel})
	}
	if err := r.startEngine(); err != nil {
		return nil, err
	}
	return r, nil
}

// startEngine replaces the session engine with a fresh one. Caller holds
// the slot, or has exclusive access during construction.
func (r *Renderer) startEngine() error {
	if r.host != nil {
		_ = r.host.Close()
		r.host, r.orch = nil, nil
	}
	rt, err := r.factory(r.cfg)
	if err != nil {
		return newError(KindInit, "create engine", BackendName, err)
	}
	host, err := engine.New(rt, engine.WithConfig(r.cfg), engine.WithLogger(r.logger))
	if err != nil {
		return newError(KindInit, "create engine", "installing environment", err)
	}
	r.host = host
	r.orch = render.New(host, r.logger)
	r.poisoned = false
	r.logger.Debug("engine ready", "backend", BackendName)
	return nil
}

// SetCustomLibrary replaces the diagram library used by subsequent renders
// on this session. ES module sources are converted to a classic script.
// An empty src restores the built-in library.
func (r *Renderer) SetCustomLibrary(src string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setCustom(src)
}

func (r *Renderer) setCustom(src string) {
	if src == "" {
		r.custom, r.customErr, r.hasCustom = "", nil, false
		return
	}
	r.custom, r.customErr = library.Prepare(src)
	r.hasCustom = true
}

func (r *Renderer) libraryText() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasCustom {
		return library.Default(), nil
	}
	return r.custom, r.customErr
}

// Render renders diagram to format. ctx bounds only the wait for the
// session; a render that has started runs to completion or to the engine
// execution timeout.
func (r *Renderer) Render(ctx context.Context, diagram string, format Format, opts RenderOptions) ([]byte, error) {
	if !format.Valid() {
		return nil, newError(KindInvalidFormat, "render", fmt.Sprintf("unsupported format %v", format), nil)
	}
	opts, err := opts.Normalize()
	if err != nil {
		return nil, newError(KindRender, "render", "invalid options", err)
	}

	svg, err := r.renderSVG(ctx, diagram, opts.Config())
	if err != nil {
		return nil, err
	}
	if format == FormatSVG {
		return []byte(svg), nil
	}

	out, err := raster.Convert(svg, format, raster.Target{
		Width:   int(opts.Width),
		Height:  int(opts.Height),
		Scale:   opts.Scale,
		Quality: opts.Quality,
	})
	if err != nil {
		return nil, newError(KindRender, "rasterize", format.String(), err)
	}
	return out, nil
}

// RenderString renders diagram as an SVG document.
func (r *Renderer) RenderString(ctx context.Context, diagram string, opts RenderOptions) (string, error) {
	out, err := r.Render(ctx, diagram, FormatSVG, opts)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RenderToFile renders diagram and writes the result to path in one write.
func (r *Renderer) RenderToFile(ctx context.Context, diagram, path string, format Format, opts RenderOptions) error {
	out, err := r.Render(ctx, diagram, format, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return newError(KindIO, "write", path, err)
	}
	return nil
}

func (r *Renderer) renderSVG(ctx context.Context, diagram string, cfg RenderConfig) (string, error) {
	select {
	case r.slot <- struct{}{}:
	case <-ctx.Done():
		return "", newError(KindRender, "render", "waiting for session", ctx.Err())
	}
	defer func() { <-r.slot }()

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return "", newError(KindInit, "render", "renderer is closed", nil)
	}

	if r.poisoned || r.host == nil || r.host.Broken() {
		r.logger.Debug("replacing script engine after failed render")
		if err := r.startEngine(); err != nil {
			return "", err
		}
	}

	lib, err := r.libraryText()
	if err != nil {
		return "", newError(KindRender, "render", "custom library", err)
	}

	svg, err := r.orch.Render(diagram, cfg, lib)
	if err != nil {
		var se *engine.ScriptError
		if errors.As(err, &se) {
			r.poisoned = true
		}
		return "", newError(KindRender, "render", "", err)
	}
	return svg, nil
}

// Close releases the script engine. It waits for an in-flight render.
func (r *Renderer) Close() error {
	r.slot <- struct{}{}
	defer func() { <-r.slot }()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.host == nil {
		return nil
	}
	err := r.host.Close()
	r.host, r.orch = nil, nil
	if err != nil {
		return newError(KindInit, "close", "", err)
	}
	return nil
}

// QuickRender renders diagram with default options on a throwaway session.
func QuickRender(ctx context.Context, diagram string, format Format) ([]byte, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Render(ctx, diagram, format, DefaultOptions())
}
