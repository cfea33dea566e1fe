//go:build !v8 && !goja

package webapi

import (
	"strings"
	"testing"

	"github.com/cryguy/mermaid/internal/core"
	"github.com/cryguy/mermaid/internal/eventloop"
	"github.com/cryguy/mermaid/internal/quickjs"
)

func newGlobalsRuntime(t *testing.T) core.JSRuntime {
	t.Helper()
	rt, err := quickjs.New(core.EngineConfig{})
	if err != nil {
		t.Fatalf("quickjs.New: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	if err := SetupGlobals(rt, eventloop.New()); err != nil {
		t.Fatalf("SetupGlobals: %v", err)
	}
	return rt
}

func TestGetRandomValues_FillsTypedArrays(t *testing.T) {
	rt := newGlobalsRuntime(t)

	got, err := rt.EvalString(`(function() {
		var a = crypto.getRandomValues(new Uint8Array(32));
		var b = crypto.getRandomValues(new Uint32Array(8));
		var sameA = crypto.getRandomValues(new Uint8Array(32)).join(',') === a.join(',');
		var inRange = Array.prototype.every.call(b, function(v) { return v >= 0 && v <= 0xffffffff; });
		return [a.length, b.length, sameA, inRange].join(' ');
	})()`)
	if err != nil {
		t.Fatalf("EvalString: %v", err)
	}
	if got != "32 8 false true" {
		t.Errorf("got %q, want %q", got, "32 8 false true")
	}
}

func TestGetRandomValues_QuotaExceeded(t *testing.T) {
	rt := newGlobalsRuntime(t)

	got, err := rt.EvalString(`(function() {
		try {
			crypto.getRandomValues(new Uint8Array(65537));
			return 'no error';
		} catch (e) {
			return String(e.message);
		}
	})()`)
	if err != nil {
		t.Fatalf("EvalString: %v", err)
	}
	if !strings.Contains(got, "exceeds") {
		t.Errorf("got %q, want quota error", got)
	}
}

func TestBase64_RoundTrip(t *testing.T) {
	rt := newGlobalsRuntime(t)

	got, err := rt.EvalString(`atob(btoa('graph TDÿ'))`)
	if err != nil {
		t.Fatalf("EvalString: %v", err)
	}
	if got != "graph TDÿ" {
		t.Errorf("got %q", got)
	}
}
