package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cryguy/mermaid"
)

func TestResolveOutput(t *testing.T) {
	tests := []struct {
		input, format, output string
		wantFormat            mermaid.Format
		wantPath              string
	}{
		{"flow.mmd", "", "", mermaid.FormatSVG, "flow.svg"},
		{"docs/flow.mmd", "png", "", mermaid.FormatPNG, "docs/flow.png"},
		{"flow.mmd", "", "out/diagram.jpg", mermaid.FormatJPEG, "out/diagram.jpg"},
		{"flow.mmd", "webp", "diagram.png", mermaid.FormatWebP, "diagram.png"},
		{"-", "gif", "", mermaid.FormatGIF, "output.gif"},
		{"-", "", "", mermaid.FormatSVG, "output.svg"},
	}
	for _, tt := range tests {
		f, path, err := resolveOutput(tt.input, tt.format, tt.output)
		if err != nil {
			t.Errorf("resolveOutput(%q, %q, %q): %v", tt.input, tt.format, tt.output, err)
			continue
		}
		if f != tt.wantFormat || path != tt.wantPath {
			t.Errorf("resolveOutput(%q, %q, %q) = %v, %q; want %v, %q",
				tt.input, tt.format, tt.output, f, path, tt.wantFormat, tt.wantPath)
		}
	}
}

func TestResolveOutput_Invalid(t *testing.T) {
	for _, tc := range [][3]string{
		{"flow.mmd", "bmp", ""},
		{"flow.mmd", "", "diagram.tiff"},
		{"flow.mmd", "", "diagram"},
	} {
		if _, _, err := resolveOutput(tc[0], tc[1], tc[2]); !errors.Is(err, mermaid.ErrInvalidFormat) {
			t.Errorf("resolveOutput(%q, %q, %q): err = %v, want ErrInvalidFormat", tc[0], tc[1], tc[2], err)
		}
	}
}

func TestOutputPaths(t *testing.T) {
	if got := outputPaths("out.png", 1); !reflect.DeepEqual(got, []string{"out.png"}) {
		t.Errorf("single = %v", got)
	}
	want := []string{"dir/out-1.png", "dir/out-2.png", "dir/out-3.png"}
	if got := outputPaths("dir/out.png", 3); !reflect.DeepEqual(got, want) {
		t.Errorf("multi = %v, want %v", got, want)
	}
}

func TestReadInput_Stdin(t *testing.T) {
	data, err := readInput("-", strings.NewReader("graph TD\nA-->B"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "graph TD\nA-->B" {
		t.Errorf("data = %q", data)
	}
}

func TestFormatSize(t *testing.T) {
	cases := map[int]string{512: "512 B", 2048: "2.0 KB", 3 * 1024 * 1024: "3.0 MB"}
	for n, want := range cases {
		if got := formatSize(n); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestRenderCommand_Markdown(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.md")
	doc := "# Flows\n\n```mermaid\ngraph TD\nA-->B\n```\n\n```mermaid\ngraph LR\nX-->Y\n```\n"
	if err := os.WriteFile(input, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	c := New(&out, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"render", input, "-o", filepath.Join(dir, "flow.png"), "-W", "200", "-H", "100"})
	if err := root.Execute(); err != nil {
		t.Fatalf("render: %v\n%s", err, out.String())
	}

	for _, name := range []string{"flow-1.png", "flow-2.png"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !bytes.HasPrefix(data, []byte("\x89PNG")) {
			t.Errorf("%s is not a png", name)
		}
	}
	if !strings.Contains(out.String(), "flow-2.png") {
		t.Errorf("output does not report the second file:\n%s", out.String())
	}
}

func TestRenderCommand_ConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mermaid-it.toml")
	if err := os.WriteFile(cfgPath, []byte("[render]\nwidth = 320\nheight = 240\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	input := filepath.Join(dir, "flow.mmd")
	if err := os.WriteFile(input, []byte("graph TD\nA-->B"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	root := New(&out, LogInfo).RootCommand()
	root.SetArgs([]string{"--config", cfgPath, "render", input, "-H", "200"})
	if err := root.Execute(); err != nil {
		t.Fatalf("render: %v", err)
	}
	svg, err := os.ReadFile(filepath.Join(dir, "flow.svg"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(svg, []byte(`width="320" height="200"`)) {
		t.Errorf("config width or flag height not applied: %.200s", svg)
	}
}

func TestRenderCommand_NoDiagrams(t *testing.T) {
	input := filepath.Join(t.TempDir(), "empty.md")
	if err := os.WriteFile(input, []byte("# nothing\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	root := New(&out, LogInfo).RootCommand()
	root.SetArgs([]string{"render", input})
	root.SetErr(&out)
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "no mermaid diagrams") {
		t.Errorf("err = %v", err)
	}
}
