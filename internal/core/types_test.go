package core

import (
	"math"
	"testing"
)

func TestLookupFormat(t *testing.T) {
	cases := []struct {
		token string
		want  Format
		ok    bool
	}{
		{"svg", FormatSVG, true},
		{"PNG", FormatPNG, true},
		{" jpeg ", FormatJPEG, true},
		{"jpg", FormatJPEG, true},
		{"WebP", FormatWebP, true},
		{"gif", FormatGIF, true},
		{"bmp", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := LookupFormat(tc.token)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("LookupFormat(%q) = %v, %v; want %v, %v", tc.token, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFormat_Metadata(t *testing.T) {
	cases := []struct {
		f      Format
		mime   string
		ext    string
		raster bool
		alpha  bool
	}{
		{FormatSVG, "image/svg+xml", ".svg", false, false},
		{FormatPNG, "image/png", ".png", true, true},
		{FormatJPEG, "image/jpeg", ".jpg", true, false},
		{FormatWebP, "image/webp", ".webp", true, true},
		{FormatGIF, "image/gif", ".gif", true, false},
	}
	for _, tc := range cases {
		if got := tc.f.MIMEType(); got != tc.mime {
			t.Errorf("%v.MIMEType() = %q, want %q", tc.f, got, tc.mime)
		}
		if got := tc.f.Ext(); got != tc.ext {
			t.Errorf("%v.Ext() = %q, want %q", tc.f, got, tc.ext)
		}
		if got := tc.f.IsRaster(); got != tc.raster {
			t.Errorf("%v.IsRaster() = %v, want %v", tc.f, got, tc.raster)
		}
		if got := tc.f.HasAlpha(); got != tc.alpha {
			t.Errorf("%v.HasAlpha() = %v, want %v", tc.f, got, tc.alpha)
		}
	}

	bogus := Format(42)
	if bogus.Valid() || bogus.IsRaster() {
		t.Error("out-of-range format reported as valid")
	}
	if bogus.String() != "Format(42)" {
		t.Errorf("String() = %q", bogus.String())
	}
}

func TestFormatTokens(t *testing.T) {
	got := FormatTokens()
	want := []string{"svg", "png", "jpeg", "webp", "gif"}
	if len(got) != len(want) {
		t.Fatalf("FormatTokens() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FormatTokens()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRenderOptions_NormalizeDefaults(t *testing.T) {
	o, err := RenderOptions{Width: 10, Height: 20, Scale: 2}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if o.Background != DefaultBackground || o.Theme != DefaultTheme || o.Quality != DefaultQuality {
		t.Errorf("defaults not applied: %+v", o)
	}
	if o.Width != 10 || o.Height != 20 || o.Scale != 2 {
		t.Errorf("explicit values changed: %+v", o)
	}
}

func TestRenderOptions_NormalizeClampsQuality(t *testing.T) {
	for _, tc := range []struct{ in, want float64 }{
		{-5, 1}, {0.2, 1}, {150, 100}, {55.5, 55.5}, {math.NaN(), DefaultQuality},
	} {
		o := DefaultOptions()
		o.Quality = tc.in
		got, err := o.Normalize()
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		if got.Quality != tc.want {
			t.Errorf("quality %v normalized to %v, want %v", tc.in, got.Quality, tc.want)
		}
	}
}

func TestRenderOptions_NormalizeRejectsGeometry(t *testing.T) {
	cases := map[string]RenderOptions{
		"zero width":  {Width: 0, Height: 600, Scale: 1},
		"zero height": {Width: 800, Height: 0, Scale: 1},
		"zero scale":  {Width: 800, Height: 600, Scale: 0},
		"neg scale":   {Width: 800, Height: 600, Scale: -1},
		"inf scale":   {Width: 800, Height: 600, Scale: math.Inf(1)},
		"nan scale":   {Width: 800, Height: 600, Scale: math.NaN()},
	}
	for name, o := range cases {
		if _, err := o.Normalize(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestEngineConfig_WithDefaults(t *testing.T) {
	c := EngineConfig{ExecutionTimeout: 500}.WithDefaults()
	d := DefaultEngineConfig()
	if c.ExecutionTimeout != 500 {
		t.Errorf("ExecutionTimeout = %d, want 500", c.ExecutionTimeout)
	}
	if c.MemoryLimitMB != d.MemoryLimitMB || c.MaxScriptSizeKB != d.MaxScriptSizeKB {
		t.Errorf("zero fields not defaulted: %+v", c)
	}
	if got := (EngineConfig{MemoryLimitMB: -1}).WithDefaults().MemoryLimitMB; got != -1 {
		t.Errorf("negative memory limit should be kept, got %d", got)
	}
}
