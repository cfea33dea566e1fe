// Package cli implements the mermaid-it command-line interface.
//
// Commands:
//   - render: render a diagram file (or stdin) to an image
//   - serve: run the HTTP/WebSocket render server
//   - formats: list output formats
//
// All commands accept --verbose (-v) for debug logging and --config for a
// TOML settings file.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cryguy/mermaid"
	"github.com/cryguy/mermaid/internal/config"
	"github.com/cryguy/mermaid/internal/library"
)

const appName = "mermaid-it"

// Log levels exported for main.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// version is set by main from build flags.
var version = "dev"

// SetVersion sets the string printed by --version.
func SetVersion(v string) { version = v }

// CLI holds state shared by all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
	out        io.Writer
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), out: w}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Render Mermaid diagrams to various image formats",
		Long:         `mermaid-it renders Mermaid diagrams to SVG, PNG, JPEG, WebP and GIF using an embedded JavaScript engine, with no browser involved.`,
		Version:      version + " (" + mermaid.BackendName + ")",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "TOML config file")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.formatsCommand())
	return root
}

func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// sessionOptions builds renderer options, loading a custom diagram library
// when ref is set.
func (c *CLI) sessionOptions(ctx context.Context, cfg config.Config, ref string) ([]mermaid.Option, error) {
	opts := []mermaid.Option{
		mermaid.WithEngineConfig(cfg.EngineConfig()),
		mermaid.WithLogger(c.Logger),
	}
	if ref == "" {
		return opts, nil
	}
	prog := newProgress(c.Logger)
	src, err := library.NewLoader(cfg.EngineConfig()).Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	prog.done("Loaded custom library " + ref)
	return append(opts, mermaid.WithCustomLibrary(src)), nil
}
