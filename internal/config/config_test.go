package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cryguy/mermaid/internal/core"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Render.Width != core.DefaultWidth || cfg.Render.Theme != core.DefaultTheme {
		t.Errorf("render defaults = %+v", cfg.Render)
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
[engine]
execution_timeout_ms = 5000

[render]
width = 1024
theme = "dark"
background = "transparent"

[server]
addr = "127.0.0.1:9000"
pool_size = 4

[library]
source = "https://example.com/mermaid.min.js"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Engine.ExecutionTimeout != 5000 {
		t.Errorf("timeout = %d", cfg.Engine.ExecutionTimeout)
	}
	if cfg.Engine.MemoryLimitMB != core.DefaultEngineConfig().MemoryLimitMB {
		t.Errorf("unset memory limit lost its default: %d", cfg.Engine.MemoryLimitMB)
	}
	if cfg.Render.Width != 1024 || cfg.Render.Height != core.DefaultHeight {
		t.Errorf("geometry = %dx%d", cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.Render.Theme != "dark" || cfg.Render.Background != "transparent" {
		t.Errorf("render = %+v", cfg.Render)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.PoolSize != 4 || cfg.Server.MaxBodyKB != 256 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Library.Source != "https://example.com/mermaid.min.js" {
		t.Errorf("library source = %q", cfg.Library.Source)
	}

	opts := cfg.RenderOptions()
	if opts.Width != 1024 || opts.Theme != "dark" {
		t.Errorf("RenderOptions = %+v", opts)
	}
	if ec := cfg.EngineConfig(); ec.ExecutionTimeout != 5000 {
		t.Errorf("EngineConfig = %+v", ec)
	}
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("[render]\ncolour = \"red\"\n"))
	if err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("err = %v, want unknown key", err)
	}
}

func TestParse_BadType(t *testing.T) {
	if _, err := Parse([]byte("[render]\nwidth = \"wide\"\n")); err == nil {
		t.Fatal("expected a type error")
	}
}

func TestParse_Validate(t *testing.T) {
	_, err := Parse([]byte("[render]\nwidth = 0\nscale = -1\n\n[server]\npool_size = 0\n"))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"render.width", "render.scale", "server.pool_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg != Default() {
		t.Errorf("empty path = %+v, want defaults", cfg)
	}

	path := filepath.Join(t.TempDir(), "mermaid-it.toml")
	if err := os.WriteFile(path, []byte("[render]\nscale = 2.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Render.Scale != 2.5 {
		t.Errorf("scale = %v", cfg.Render.Scale)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
