// Package raster converts SVG documents into encoded pixel images.
package raster

import (
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/cryguy/mermaid/internal/core"
)

// MaxPixels caps the canvas a single conversion may allocate.
const MaxPixels = 100_000_000

var (
	ErrParse      = errors.New("svg parse error")
	ErrDimensions = errors.New("invalid raster dimensions")
	ErrEncode     = errors.New("encode error")
)

// Target describes the output canvas. Width and Height are the logical
// SVG size; the canvas is Width*Scale by Height*Scale pixels. The
// background color is not part of it: that is already painted by the
// diagram library into the SVG itself.
type Target struct {
	Width   int
	Height  int
	Scale   float64
	Quality float64
}

// PixelSize returns the canvas size for t, truncating fractional pixels.
func (t Target) PixelSize() (int, int) {
	return int(float64(t.Width) * t.Scale), int(float64(t.Height) * t.Scale)
}

// Convert renders svg into format f. SVG output is returned unchanged.
func Convert(svg string, f core.Format, t Target) ([]byte, error) {
	if f == core.FormatSVG {
		return []byte(svg), nil
	}
	if !f.IsRaster() {
		return nil, fmt.Errorf("%w: unsupported format %v", ErrEncode, f)
	}

	if err := checkRoot(svg); err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	pw, ph := t.PixelSize()
	if pw <= 0 || ph <= 0 {
		return nil, fmt.Errorf("%w: %dx%d at scale %v yields a %dx%d canvas", ErrDimensions, t.Width, t.Height, t.Scale, pw, ph)
	}
	if int64(pw)*int64(ph) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDimensions, pw, ph, MaxPixels)
	}

	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	if !f.HasAlpha() {
		draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	}

	icon.SetTarget(0, 0, float64(pw), float64(ph))
	scanner := rasterx.NewScannerGV(pw, ph, img, img.Bounds())
	dasher := rasterx.NewDasher(pw, ph, scanner)
	icon.Draw(dasher, 1.0)

	vb := icon.ViewBox
	if vb.W > 0 && vb.H > 0 {
		drawText(img, svg, viewport{
			minX: vb.X, minY: vb.Y,
			sx: float64(pw) / vb.W, sy: float64(ph) / vb.H,
		})
	}

	return encode(img, f, t.Quality)
}

// checkRoot rejects input whose first element is not <svg>. oksvg accepts
// nearly anything, including empty input, without complaint.
func checkRoot(svg string) error {
	dec := xml.NewDecoder(strings.NewReader(svg))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return fmt.Errorf("%w: no root element", ErrParse)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrParse, err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != "svg" {
				return fmt.Errorf("%w: root element is <%s>, want <svg>", ErrParse, se.Name.Local)
			}
			return nil
		}
	}
}
