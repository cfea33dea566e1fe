package core

import (
	"fmt"
	"math"
	"strings"
)

// Format is an output encoding produced by the render pipeline.
type Format int

const (
	FormatSVG  Format = iota // vector passthrough
	FormatPNG                // lossless raster, alpha preserved
	FormatJPEG               // lossy raster, RGB only
	FormatWebP               // alpha-capable raster with float quality
	FormatGIF                // palette raster, single frame
)

var formatInfo = [...]struct {
	token string
	mime  string
	ext   string
}{
	FormatSVG:  {"svg", "image/svg+xml", ".svg"},
	FormatPNG:  {"png", "image/png", ".png"},
	FormatJPEG: {"jpeg", "image/jpeg", ".jpg"},
	FormatWebP: {"webp", "image/webp", ".webp"},
	FormatGIF:  {"gif", "image/gif", ".gif"},
}

// formatAliases maps accepted lower-case tokens to formats. "jpg" is the
// legacy spelling kept for older callers.
var formatAliases = map[string]Format{
	"svg":  FormatSVG,
	"png":  FormatPNG,
	"jpeg": FormatJPEG,
	"jpg":  FormatJPEG,
	"webp": FormatWebP,
	"gif":  FormatGIF,
}

// LookupFormat resolves a case-insensitive format token.
func LookupFormat(token string) (Format, bool) {
	f, ok := formatAliases[strings.ToLower(strings.TrimSpace(token))]
	return f, ok
}

// FormatTokens lists the canonical tokens in declaration order.
func FormatTokens() []string {
	out := make([]string, len(formatInfo))
	for i, fi := range formatInfo {
		out[i] = fi.token
	}
	return out
}

// Valid reports whether f is one of the declared formats.
func (f Format) Valid() bool { return f >= FormatSVG && f <= FormatGIF }

// String returns the canonical token.
func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatInfo[f].token
}

// MIMEType returns the media type of encoded output.
func (f Format) MIMEType() string {
	if !f.Valid() {
		return "application/octet-stream"
	}
	return formatInfo[f].mime
}

// Ext returns the conventional file extension, including the dot.
func (f Format) Ext() string {
	if !f.Valid() {
		return ""
	}
	return formatInfo[f].ext
}

// IsRaster reports whether the format goes through rasterization.
func (f Format) IsRaster() bool { return f.Valid() && f != FormatSVG }

// HasAlpha reports whether the encoder keeps an alpha channel. Formats
// without alpha get an opaque white background before drawing.
func (f Format) HasAlpha() bool { return f == FormatPNG || f == FormatWebP }

// RenderConfig fully determines the vector stage output for one call.
type RenderConfig struct {
	Width      uint32
	Height     uint32
	Background string
	Theme      string
	Scale      float64
}

// RenderOptions is RenderConfig plus encoder tuning.
type RenderOptions struct {
	Width      uint32
	Height     uint32
	Background string
	Theme      string
	Scale      float64
	// Quality is used by the JPEG (rounded to an integer) and WebP encoders.
	Quality float64
}

const (
	DefaultWidth      = 800
	DefaultHeight     = 600
	DefaultBackground = "white"
	DefaultTheme      = "default"
	DefaultScale      = 1.0
	DefaultQuality    = 90
)

// DefaultOptions returns the central defaults.
func DefaultOptions() RenderOptions {
	return RenderOptions{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: DefaultBackground,
		Theme:      DefaultTheme,
		Scale:      DefaultScale,
		Quality:    DefaultQuality,
	}
}

// Normalize fills empty string fields and a zero quality from the
// defaults, clamps quality into [1,100] and validates geometry. Width and
// height are never defaulted: zero is a caller error.
func (o RenderOptions) Normalize() (RenderOptions, error) {
	if o.Background == "" {
		o.Background = DefaultBackground
	}
	if o.Theme == "" {
		o.Theme = DefaultTheme
	}
	if o.Quality == 0 || math.IsNaN(o.Quality) {
		o.Quality = DefaultQuality
	}
	o.Quality = math.Max(1, math.Min(100, o.Quality))
	if o.Width == 0 || o.Height == 0 {
		return o, fmt.Errorf("invalid dimensions %dx%d: width and height must be positive", o.Width, o.Height)
	}
	if o.Scale <= 0 || math.IsNaN(o.Scale) || math.IsInf(o.Scale, 0) {
		return o, fmt.Errorf("invalid scale %v: must be a positive finite number", o.Scale)
	}
	return o, nil
}

// Config returns the vector-stage subset of the options.
func (o RenderOptions) Config() RenderConfig {
	return RenderConfig{
		Width:      o.Width,
		Height:     o.Height,
		Background: o.Background,
		Theme:      o.Theme,
		Scale:      o.Scale,
	}
}
