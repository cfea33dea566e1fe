package render

import (
	"fmt"
	"regexp"
	"strings"
)

const stableID = "mermaid-diagram"

var (
	rootTagRe  = regexp.MustCompile(`(?s)<svg\b[^>]*>`)
	sizeAttrRe = regexp.MustCompile(`\s(?:width|height|viewBox)\s*=\s*(?:"[^"]*"|'[^']*')`)
	renderIDRe = regexp.MustCompile(`mermaid-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
)

// SizeRoot sets width, height and viewBox="0 0 W H" on the root <svg>
// element, replacing any existing attributes of those names. Other
// elements are left alone.
func SizeRoot(svg string, width, height uint32) (string, error) {
	if strings.TrimSpace(svg) == "" {
		return "", fmt.Errorf("%w: library returned empty output", ErrInvalidOutput)
	}
	loc := rootTagRe.FindStringIndex(svg)
	if loc == nil {
		return "", fmt.Errorf("%w: no <svg> element in output", ErrInvalidOutput)
	}

	tag := svg[loc[0]:loc[1]]
	tag = sizeAttrRe.ReplaceAllString(tag, "")
	tag = "<svg" + fmt.Sprintf(` width="%d" height="%d" viewBox="0 0 %d %d"`, width, height, width, height) +
		strings.TrimPrefix(tag, "<svg")

	return svg[:loc[0]] + tag + svg[loc[1]:], nil
}

// NormalizeIDs replaces the per-render element id with a fixed one so two
// renders of the same input compare equal.
func NormalizeIDs(svg string) string {
	return renderIDRe.ReplaceAllString(svg, stableID)
}
