// banding_test.go — Tests for numeric-range classification.
package banding

import (
	"os"
	"path/filepath"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestBandForDefaults(t *testing.T) {
	tab := DefaultTable()
	cases := []struct {
		value *float64
		band  string
	}{
		{ptr(0), "red"},
		{ptr(49), "red"},
		{ptr(50), "yellow"},
		{ptr(59), "yellow"},
		{ptr(60), "blue"},
		{ptr(74), "blue"},
		{ptr(75), "green"},
		{ptr(100), "green"},
		{ptr(101), "unknown"},
		{ptr(-1), "unknown"},
		{nil, "unknown"},
	}
	for _, tc := range cases {
		band, color := tab.BandFor("moisture", tc.value)
		if band != tc.band {
			t.Errorf("BandFor(%v) = %q, want %q", tc.value, band, tc.band)
		}
		if color == "" {
			t.Errorf("BandFor(%v) returned empty color", tc.value)
		}
	}
}

func TestBandForOverrides(t *testing.T) {
	tab := DefaultTable()
	tab.Overrides["sebum"] = Bands{
		"red":    {0, 29},
		"yellow": {30, 49},
		"blue":   {50, 69},
		"green":  {70, 100},
	}

	band, _ := tab.BandFor("sebum", ptr(45))
	if band != "yellow" {
		t.Errorf("override band = %q, want yellow", band)
	}
	// Other metrics keep the defaults.
	band, _ = tab.BandFor("moisture", ptr(45))
	if band != "red" {
		t.Errorf("default band = %q, want red", band)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bands.yaml")
	content := `
default:
  red: [0, 39]
  yellow: [40, 59]
  blue: [60, 79]
  green: [80, 100]
overrides:
  pores:
    red: [0, 19]
    yellow: [20, 39]
    blue: [40, 59]
    green: [60, 100]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tab, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if band, _ := tab.BandFor("moisture", ptr(45)); band != "yellow" {
		t.Errorf("loaded default band = %q, want yellow", band)
	}
	if band, _ := tab.BandFor("pores", ptr(45)); band != "blue" {
		t.Errorf("loaded override band = %q, want blue", band)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		tab, err := LoadOrDefault("")
		if err != nil {
			t.Fatalf("LoadOrDefault: %v", err)
		}
		if band, _ := tab.BandFor("x", ptr(80)); band != "green" {
			t.Errorf("band = %q, want green", band)
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := LoadOrDefault("/nonexistent/bands.yaml"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
