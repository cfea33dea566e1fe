// Package config loads mermaid-it settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/cryguy/mermaid/internal/core"
)

// Config is the on-disk configuration. Every section is optional.
type Config struct {
	Engine  Engine  `toml:"engine"`
	Render  Render  `toml:"render"`
	Server  Server  `toml:"server"`
	Library Library `toml:"library"`
}

// Engine mirrors core.EngineConfig.
type Engine struct {
	MemoryLimitMB    int `toml:"memory_limit_mb"`
	ExecutionTimeout int `toml:"execution_timeout_ms"`
	MaxScriptSizeKB  int `toml:"max_script_size_kb"`
}

// Render holds default render options.
type Render struct {
	Width      uint32  `toml:"width"`
	Height     uint32  `toml:"height"`
	Background string  `toml:"background"`
	Theme      string  `toml:"theme"`
	Scale      float64 `toml:"scale"`
	Quality    float64 `toml:"quality"`
}

// Server configures the HTTP adapter.
type Server struct {
	Addr      string `toml:"addr"`
	PoolSize  int    `toml:"pool_size"`
	MaxBodyKB int    `toml:"max_body_kb"`
}

// Library points at a replacement diagram library.
type Library struct {
	// Source is a file path or an http(s) URL. Empty uses the built-in one.
	Source string `toml:"source"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	ec := core.DefaultEngineConfig()
	ro := core.DefaultOptions()
	return Config{
		Engine: Engine{
			MemoryLimitMB:    ec.MemoryLimitMB,
			ExecutionTimeout: ec.ExecutionTimeout,
			MaxScriptSizeKB:  ec.MaxScriptSizeKB,
		},
		Render: Render{
			Width:      ro.Width,
			Height:     ro.Height,
			Background: ro.Background,
			Theme:      ro.Theme,
			Scale:      ro.Scale,
			Quality:    ro.Quality,
		},
		Server: Server{
			Addr:      ":8080",
			PoolSize:  2,
			MaxBodyKB: 256,
		},
	}
}

// Load reads path over the defaults. A missing path is an error; an empty
// path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("parsing config: unknown key %q", undecoded[0].String())
	}
	return cfg, cfg.Validate()
}

// Validate checks values a TOML type check cannot.
func (c Config) Validate() error {
	var errs []error
	if c.Render.Width == 0 || c.Render.Height == 0 {
		errs = append(errs, errors.New("render.width and render.height must be positive"))
	}
	if c.Render.Scale <= 0 {
		errs = append(errs, errors.New("render.scale must be positive"))
	}
	if c.Server.PoolSize < 1 {
		errs = append(errs, errors.New("server.pool_size must be at least 1"))
	}
	if c.Server.MaxBodyKB < 1 {
		errs = append(errs, errors.New("server.max_body_kb must be at least 1"))
	}
	return errors.Join(errs...)
}

// EngineConfig converts the engine section.
func (c Config) EngineConfig() core.EngineConfig {
	return core.EngineConfig{
		MemoryLimitMB:    c.Engine.MemoryLimitMB,
		ExecutionTimeout: c.Engine.ExecutionTimeout,
		MaxScriptSizeKB:  c.Engine.MaxScriptSizeKB,
	}.WithDefaults()
}

// RenderOptions converts the render section.
func (c Config) RenderOptions() core.RenderOptions {
	return core.RenderOptions{
		Width:      c.Render.Width,
		Height:     c.Render.Height,
		Background: c.Render.Background,
		Theme:      c.Render.Theme,
		Scale:      c.Render.Scale,
		Quality:    c.Render.Quality,
	}
}
