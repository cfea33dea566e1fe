package raster

import (
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor understands the color syntaxes diagram libraries emit: CSS
// names, #rgb, #rrggbb, #rrggbbaa, rgb()/rgba() and "transparent".
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return color.RGBA{}, false
	case "transparent", "none":
		return color.RGBA{}, true
	}
	if c, ok := colornames.Map[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	if strings.HasPrefix(s, "rgb") {
		return parseFunc(s)
	}
	return color.RGBA{}, false
}

func parseHex(h string) (color.RGBA, bool) {
	switch len(h) {
	case 3, 4:
		var b strings.Builder
		for _, r := range h {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		h = b.String()
	case 6, 8:
	default:
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	if len(h) == 6 {
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
	}
	return premultiply(uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)), true
}

func parseFunc(s string) (color.RGBA, bool) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return color.RGBA{}, false
	}
	parts := strings.FieldsFunc(s[open+1:end], func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
	if len(parts) != 3 && len(parts) != 4 {
		return color.RGBA{}, false
	}
	var ch [4]uint8
	ch[3] = 0xff
	for i, p := range parts {
		pct := strings.HasSuffix(p, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return color.RGBA{}, false
		}
		switch {
		case i == 3 && pct:
			f = f / 100 * 255
		case i == 3:
			f *= 255
		case pct:
			f = f / 100 * 255
		}
		ch[i] = uint8(min(255, max(0, f+0.5)))
	}
	return premultiply(ch[0], ch[1], ch[2], ch[3]), true
}

// premultiply converts straight alpha to the premultiplied form color.RGBA
// holds.
func premultiply(r, g, b, a uint8) color.RGBA {
	m := func(c uint8) uint8 { return uint8(uint16(c) * uint16(a) / 0xff) }
	return color.RGBA{R: m(r), G: m(g), B: m(b), A: a}
}
