package raster

import (
	"encoding/xml"
	"image"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// The SVG rasterizer draws shapes only, so <text> is drawn in a second
// pass with the Go Regular font. Only what diagram labels use is honored:
// x/y, ancestor translate() transforms, font-size, text-anchor and fill.

const defaultFontSize = 16

var (
	fontOnce sync.Once
	fontFace *opentype.Font
	fontErr  error
)

func regularFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		fontFace, fontErr = opentype.Parse(goregular.TTF)
	})
	return fontFace, fontErr
}

// viewport maps user-space coordinates onto the canvas.
type viewport struct {
	minX, minY float64
	sx, sy     float64
}

func (v viewport) point(x, y float64) (float64, float64) {
	return (x - v.minX) * v.sx, (y - v.minY) * v.sy
}

// textStyle is the inherited presentation state at one element.
type textStyle struct {
	dx, dy   float64
	fill     string
	fontSize float64
	anchor   string
	hidden   bool
}

type textRun struct {
	x, y  float64
	style textStyle
	body  strings.Builder
}

func drawText(dst *image.RGBA, svg string, vp viewport) {
	f, err := regularFont()
	if err != nil {
		return
	}
	faces := map[float64]font.Face{}
	defer func() {
		for _, face := range faces {
			_ = face.Close()
		}
	}()
	faceFor := func(px float64) font.Face {
		if face, ok := faces[px]; ok {
			return face
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: px, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil
		}
		faces[px] = face
		return face
	}

	dec := xml.NewDecoder(strings.NewReader(svg))
	dec.Strict = false
	stack := []textStyle{{fill: "black", fontSize: defaultFontSize, anchor: "start"}}
	var run *textRun
	depthInText := 0

	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			st := inherit(stack[len(stack)-1], t.Attr)
			stack = append(stack, st)
			if run != nil {
				depthInText++
				continue
			}
			if t.Name.Local == "text" {
				run = &textRun{style: st}
				run.x, run.y = attrFloat(t.Attr, "x"), attrFloat(t.Attr, "y")
				depthInText = 0
			}
		case xml.CharData:
			if run != nil {
				run.body.Write(t)
			}
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			if run == nil {
				continue
			}
			if depthInText > 0 {
				depthInText--
				continue
			}
			drawRun(dst, run, vp, faceFor)
			run = nil
		}
	}
}

func drawRun(dst *image.RGBA, run *textRun, vp viewport, faceFor func(float64) font.Face) {
	label := strings.Join(strings.Fields(run.body.String()), " ")
	st := run.style
	if label == "" || st.hidden {
		return
	}
	col, ok := ParseColor(st.fill)
	if !ok || col.A == 0 {
		return
	}
	px := st.fontSize * vp.sy
	if px < 1 {
		return
	}
	face := faceFor(px)
	if face == nil {
		return
	}

	x, y := vp.point(run.x+st.dx, run.y+st.dy)
	width := float64(font.MeasureString(face, label)) / 64
	switch st.anchor {
	case "middle":
		x -= width / 2
	case "end":
		x -= width
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(label)
}

func inherit(parent textStyle, attrs []xml.Attr) textStyle {
	st := parent
	for _, a := range attrs {
		applyProperty(&st, a.Name.Local, a.Value)
	}
	// Inline style wins over presentation attributes.
	for _, a := range attrs {
		if a.Name.Local != "style" {
			continue
		}
		for _, decl := range strings.Split(a.Value, ";") {
			k, v, ok := strings.Cut(decl, ":")
			if ok {
				applyProperty(&st, strings.TrimSpace(k), strings.TrimSpace(v))
			}
		}
	}
	return st
}

func applyProperty(st *textStyle, name, value string) {
	switch name {
	case "fill":
		st.fill = value
	case "font-size":
		if v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(value), "px"), 64); err == nil && v > 0 {
			st.fontSize = v
		}
	case "text-anchor":
		st.anchor = strings.TrimSpace(value)
	case "display":
		if strings.TrimSpace(value) == "none" {
			st.hidden = true
		}
	case "visibility":
		st.hidden = strings.TrimSpace(value) == "hidden"
	case "transform":
		tx, ty := parseTranslate(value)
		st.dx += tx
		st.dy += ty
	}
}

// parseTranslate sums the translate() terms of a transform list. Other
// transform functions are ignored.
func parseTranslate(s string) (float64, float64) {
	var tx, ty float64
	for {
		i := strings.Index(s, "translate(")
		if i < 0 {
			return tx, ty
		}
		s = s[i+len("translate("):]
		end := strings.IndexByte(s, ')')
		if end < 0 {
			return tx, ty
		}
		args := strings.FieldsFunc(s[:end], func(r rune) bool { return r == ',' || r == ' ' })
		if len(args) > 0 {
			v, _ := strconv.ParseFloat(args[0], 64)
			tx += v
		}
		if len(args) > 1 {
			v, _ := strconv.ParseFloat(args[1], 64)
			ty += v
		}
		s = s[end+1:]
	}
}

func attrFloat(attrs []xml.Attr, name string) float64 {
	for _, a := range attrs {
		if a.Name.Local == name {
			// x and y may be lists for per-glyph placement; the first
			// entry positions the run.
			fields := strings.FieldsFunc(a.Value, func(r rune) bool { return r == ',' || r == ' ' })
			if len(fields) == 0 {
				return 0
			}
			v, _ := strconv.ParseFloat(strings.TrimSuffix(fields[0], "px"), 64)
			return v
		}
	}
	return 0
}
