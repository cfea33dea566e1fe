package mermaid

import "github.com/cryguy/mermaid/internal/core"

// Type aliases re-exporting internal/core types so callers can use
// mermaid.RenderOptions etc. without importing the internal package.

type Format = core.Format
type RenderConfig = core.RenderConfig
type RenderOptions = core.RenderOptions
type EngineConfig = core.EngineConfig
type JSRuntime = core.JSRuntime

// Formats re-exported from core.
const (
	FormatSVG  = core.FormatSVG
	FormatPNG  = core.FormatPNG
	FormatJPEG = core.FormatJPEG
	FormatWebP = core.FormatWebP
	FormatGIF  = core.FormatGIF
)

// Defaults re-exported from core.
const (
	DefaultWidth      = core.DefaultWidth
	DefaultHeight     = core.DefaultHeight
	DefaultBackground = core.DefaultBackground
	DefaultTheme      = core.DefaultTheme
	DefaultScale      = core.DefaultScale
	DefaultQuality    = core.DefaultQuality
)

// Theme names understood by the built-in library.
const (
	ThemeDefault = "default"
	ThemeDark    = "dark"
	ThemeForest  = "forest"
	ThemeNeutral = "neutral"
	ThemeBase    = "base"
)

// Functions re-exported from core.
var DefaultOptions = core.DefaultOptions
var DefaultEngineConfig = core.DefaultEngineConfig
