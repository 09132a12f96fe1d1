// interceptors_test.go — Tests for the interceptor registry and init script.
package capture

import (
	"strings"
	"testing"
)

func TestRegistryNamesUniqueAndOrdered(t *testing.T) {
	want := []string{"fetch", "xhr", "json-parse", "echarts", "chartjs", "canvas-text", "storage"}
	reg := Registry()
	if len(reg) != len(want) {
		t.Fatalf("registry has %d interceptors, want %d", len(reg), len(want))
	}
	seen := map[string]bool{}
	for i, ic := range reg {
		if ic.Name != want[i] {
			t.Errorf("registry[%d].Name = %q, want %q", i, ic.Name, want[i])
		}
		if seen[ic.Name] {
			t.Errorf("duplicate interceptor name %q", ic.Name)
		}
		seen[ic.Name] = true
		if strings.TrimSpace(ic.JS) == "" {
			t.Errorf("interceptor %q has empty JS", ic.Name)
		}
	}
}

func TestInitScriptComposition(t *testing.T) {
	script := InitScript()

	t.Run("bucket bootstrap comes first", func(t *testing.T) {
		idx := strings.Index(script, BufferGlobal)
		if idx < 0 {
			t.Fatal("init script missing buffer global")
		}
		if !strings.Contains(script, "window."+BufferGlobal+" = window."+BufferGlobal+" ||") {
			t.Error("init script missing idempotent bucket bootstrap")
		}
	})

	t.Run("every interceptor present", func(t *testing.T) {
		for _, ic := range Registry() {
			if !strings.Contains(script, ic.JS) {
				t.Errorf("init script missing %q interceptor", ic.Name)
			}
		}
	})

	t.Run("source tags wired to channels", func(t *testing.T) {
		for _, tag := range []string{"'fetch'", "'fetch-text'", "'xhr'", "'xhr-text'", "'inline'"} {
			if !strings.Contains(script, "src: "+tag) {
				t.Errorf("init script missing json channel tag %s", tag)
			}
		}
		for _, lib := range []string{"'echarts'", "'chartjs'"} {
			if !strings.Contains(script, "lib: "+lib) {
				t.Errorf("init script missing chart lib tag %s", lib)
			}
		}
	})

	t.Run("wrappers always delegate", func(t *testing.T) {
		// Transparency contract: every wrapped primitive is still applied.
		for _, call := range []string{
			"_fetch.apply(this, args)",
			"send.apply(this, args)",
			"_parse.call(this, s, reviver)",
			"_fillText.apply(this, arguments)",
			"_strokeText.apply(this, arguments)",
			"_set.apply(this, arguments)",
		} {
			if !strings.Contains(script, call) {
				t.Errorf("init script missing delegation %q", call)
			}
		}
	})
}
