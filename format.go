package mermaid

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cryguy/mermaid/internal/core"
)

// ParseFormat resolves a case-insensitive format token. "jpg" is accepted
// as an alias of "jpeg".
func ParseFormat(token string) (Format, error) {
	f, ok := core.LookupFormat(token)
	if !ok {
		return 0, newError(KindInvalidFormat, "parse format",
			fmt.Sprintf("unsupported format %q (want one of %s)", token, strings.Join(Formats(), ", ")), nil)
	}
	return f, nil
}

// FormatFromPath infers the output format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, newError(KindInvalidFormat, "parse format",
			fmt.Sprintf("cannot infer format from %q: no extension", path), nil)
	}
	return ParseFormat(ext)
}

// Formats lists the canonical format tokens.
func Formats() []string {
	return core.FormatTokens()
}
