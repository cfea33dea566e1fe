package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/gen2brain/webp"

	"github.com/cryguy/mermaid/internal/core"
)

func encode(img *image.RGBA, f core.Format, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case core.FormatPNG:
		err = png.Encode(&buf, img)
	case core.FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(quality)})
	case core.FormatWebP:
		err = webp.Encode(&buf, img, webp.Options{Quality: int(math.Round(clampQuality(quality)))})
	case core.FormatGIF:
		err = gif.Encode(&buf, img, &gif.Options{
			NumColors: 256,
			Drawer:    draw.FloydSteinberg,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported format %v", ErrEncode, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, f, err)
	}
	return buf.Bytes(), nil
}

func clampQuality(q float64) float64 {
	if q == 0 || math.IsNaN(q) {
		return core.DefaultQuality
	}
	return math.Max(1, math.Min(100, q))
}

// jpegQuality rounds the float quality to the integer scale the encoder
// takes.
func jpegQuality(q float64) int {
	return int(math.Round(clampQuality(q)))
}
