// Package source pulls diagram definitions out of the documents they are
// usually embedded in.
package source

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	gohtml "golang.org/x/net/html"
)

// Kind is the container format of an input document.
type Kind int

const (
	KindText Kind = iota
	KindMarkdown
	KindHTML
)

// ErrNoDiagrams is returned when a document holds no diagram definitions.
var ErrNoDiagrams = errors.New("no mermaid diagrams found")

// Detect picks the container format from the file name, falling back to a
// look at the content for unnamed input such as stdin.
func Detect(name string, data []byte) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return KindMarkdown
	case ".html", ".htm":
		return KindHTML
	case ".mmd", ".mermaid", ".txt":
		return KindText
	}
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("```")) || bytes.Contains(trimmed, []byte("\n```mermaid")):
		return KindMarkdown
	case bytes.HasPrefix(trimmed, []byte("<")):
		return KindHTML
	}
	return KindText
}

// Extract returns the diagrams found in data, in document order. Plain
// text input is a single diagram.
func Extract(name string, data []byte) ([]string, error) {
	var out []string
	switch Detect(name, data) {
	case KindMarkdown:
		out = fromMarkdown(data)
	case KindHTML:
		out = fromHTML(data)
	default:
		if s := strings.TrimSpace(string(data)); s != "" {
			out = []string{s}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoDiagrams
	}
	return out, nil
}

func fromMarkdown(src []byte) []string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var out []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if !strings.EqualFold(string(block.Language(src)), "mermaid") {
			return ast.WalkSkipChildren, nil
		}
		var b strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		return ast.WalkSkipChildren, nil
	})
	return out
}

// fromHTML collects the text of <pre> and <div> elements carrying the
// "mermaid" class, the markup the browser integration scans for.
func fromHTML(src []byte) []string {
	z := gohtml.NewTokenizer(bytes.NewReader(src))
	var (
		out   []string
		buf   strings.Builder
		tag   string
		depth int
	)
	for {
		switch z.Next() {
		case gohtml.ErrorToken:
			return out
		case gohtml.StartTagToken:
			tok := z.Token()
			if depth > 0 {
				if tok.Data == tag {
					depth++
				}
				continue
			}
			if (tok.Data == "pre" || tok.Data == "div") && hasClass(tok, "mermaid") {
				tag, depth = tok.Data, 1
				buf.Reset()
			}
		case gohtml.EndTagToken:
			if depth == 0 {
				continue
			}
			if tok := z.Token(); tok.Data == tag {
				depth--
				if depth == 0 {
					if s := strings.TrimSpace(buf.String()); s != "" {
						out = append(out, s)
					}
				}
			}
		case gohtml.TextToken:
			if depth > 0 {
				buf.WriteString(z.Token().Data)
			}
		}
	}
}

func hasClass(tok gohtml.Token, class string) bool {
	for _, a := range tok.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
