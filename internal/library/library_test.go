package library

import (
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	src := Default()
	if !strings.Contains(src, "root.mermaid = {") {
		t.Fatal("default library does not publish a mermaid global")
	}
	if IsModule(src) {
		t.Error("default library should be a classic script")
	}
	if Default() != src {
		t.Error("Default returned different text on second call")
	}
}

func TestIsModule(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"export default { render() {} };", true},
		{"import x from 'y';\nx();", true},
		{"const a = 1;\nexport { a };", true},
		{"  export async function f() {}", true},
		{"var mermaid = {};", false},
		{"// export default is mentioned here\nvar a;", false},
		{"window.exports = 1;", false},
	}
	for _, tt := range tests {
		if got := IsModule(tt.src); got != tt.want {
			t.Errorf("IsModule(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestPrepare_ClassicUnchanged(t *testing.T) {
	src := "globalThis.mermaid = { initialize: function() {} };"
	got, err := Prepare(src)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got != src {
		t.Errorf("classic script was rewritten: %s", got)
	}
}

func TestPrepare_Module(t *testing.T) {
	got, err := Prepare("export default { initialize() {}, render() { return '<svg></svg>'; } };")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !strings.Contains(got, "globalThis.mermaid") {
		t.Errorf("output does not assign globalThis.mermaid:\n%s", got)
	}
	if strings.Contains(got, "export default") {
		t.Errorf("export statement survived:\n%s", got)
	}
}

func TestPrepare_ModuleSyntaxError(t *testing.T) {
	if _, err := Prepare("export default {{{"); err == nil {
		t.Fatal("expected a transform error")
	}
}
