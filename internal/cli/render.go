package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cryguy/mermaid"
	"github.com/cryguy/mermaid/internal/source"
)

// renderOpts holds the render command flags.
type renderOpts struct {
	output     string
	format     string
	width      uint32
	height     uint32
	background string
	theme      string
	scale      float64
	quality    float64
	custom     string
}

func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render INPUT",
		Short: "Render a diagram file to an image",
		Long: `Render the diagram in INPUT ('-' for stdin). Markdown and HTML inputs may
hold several diagrams; each is written to its own numbered file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (default: input name with the format extension, or output.svg)")
	f.StringVarP(&opts.format, "format", "f", "", "output format: "+strings.Join(mermaid.Formats(), ", ")+" (default: from --output, else svg)")
	f.Uint32VarP(&opts.width, "width", "W", mermaid.DefaultWidth, "width in logical pixels")
	f.Uint32VarP(&opts.height, "height", "H", mermaid.DefaultHeight, "height in logical pixels")
	f.StringVarP(&opts.background, "background", "b", mermaid.DefaultBackground, "background color (CSS color)")
	f.StringVarP(&opts.theme, "theme", "t", mermaid.DefaultTheme, "diagram theme")
	f.Float64VarP(&opts.scale, "scale", "s", mermaid.DefaultScale, "raster scale factor")
	f.Float64VarP(&opts.quality, "quality", "q", mermaid.DefaultQuality, "JPEG/WebP quality (1-100)")
	f.StringVarP(&opts.custom, "custom-mermaid", "c", "", "custom Mermaid.js file or URL")
	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, opts renderOpts) error {
	ctx := cmd.Context()
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	// Config supplies defaults; explicit flags win.
	ro := cfg.RenderOptions()
	flags := cmd.Flags()
	if flags.Changed("width") {
		ro.Width = opts.width
	}
	if flags.Changed("height") {
		ro.Height = opts.height
	}
	if flags.Changed("background") {
		ro.Background = opts.background
	}
	if flags.Changed("theme") {
		ro.Theme = opts.theme
	}
	if flags.Changed("scale") {
		ro.Scale = opts.scale
	}
	if flags.Changed("quality") {
		ro.Quality = opts.quality
	}
	libRef := cfg.Library.Source
	if opts.custom != "" {
		libRef = opts.custom
	}

	format, output, err := resolveOutput(input, opts.format, opts.output)
	if err != nil {
		return err
	}

	data, err := readInput(input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	diagrams, err := source.Extract(input, data)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	c.Logger.Debug("extracted diagrams", "input", input, "count", len(diagrams))

	sessionOpts, err := c.sessionOptions(ctx, cfg, libRef)
	if err != nil {
		return err
	}
	prog := newProgress(c.Logger)
	r, err := mermaid.NewRenderer(sessionOpts...)
	if err != nil {
		return err
	}
	defer r.Close()
	prog.done("Started " + mermaid.BackendName + " engine")

	paths := outputPaths(output, len(diagrams))
	for i, diagram := range diagrams {
		prog := newProgress(c.Logger)
		out, err := r.Render(ctx, diagram, format, ro)
		if err != nil {
			if len(diagrams) > 1 {
				return fmt.Errorf("diagram %d of %d: %w", i+1, len(diagrams), err)
			}
			return err
		}
		if err := writeOutput(paths[i], out); err != nil {
			return err
		}
		prog.done("Rendered " + paths[i])
		detail := format.String()
		if format.IsRaster() {
			detail = fmt.Sprintf("%s %dx%d", format, int(float64(ro.Width)*ro.Scale), int(float64(ro.Height)*ro.Scale))
		}
		fmt.Fprintln(c.out, successLine(paths[i], len(out), detail))
	}
	return nil
}

// resolveOutput decides the format and output path from the flags. An
// explicit --format wins; otherwise the --output extension decides.
func resolveOutput(input, formatFlag, output string) (mermaid.Format, string, error) {
	var (
		format mermaid.Format
		err    error
	)
	switch {
	case formatFlag != "":
		format, err = mermaid.ParseFormat(formatFlag)
	case output != "":
		format, err = mermaid.FormatFromPath(output)
	default:
		format = mermaid.FormatSVG
	}
	if err != nil {
		return 0, "", err
	}

	if output == "" {
		if input == "-" {
			output = "output" + format.Ext()
		} else {
			output = strings.TrimSuffix(input, filepath.Ext(input)) + format.Ext()
		}
	}
	return format, output, nil
}

// outputPaths numbers output paths when there is more than one diagram:
// out.png becomes out-1.png, out-2.png, ...
func outputPaths(output string, n int) []string {
	if n <= 1 {
		return []string{output}
	}
	ext := filepath.Ext(output)
	base := strings.TrimSuffix(output, ext)
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s-%d%s", base, i+1, ext)
	}
	return paths
}

func readInput(input string, stdin io.Reader) ([]byte, error) {
	if input == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
