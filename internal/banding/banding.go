// banding.go — Static numeric-range classification for normalized metrics.
// Values map to a band name and display color; per-metric overrides come from
// an optional YAML file, otherwise the default ranges apply.
package banding

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Band names in evaluation order.
var order = []string{"red", "yellow", "blue", "green"}

// Display colors per band.
var colors = map[string]string{
	"red":     "#e74c3c",
	"yellow":  "#f1c40f",
	"blue":    "#3498db",
	"green":   "#2ecc71",
	"unknown": "#777",
}

// Range is one inclusive [lo, hi] band range.
type Range [2]float64

// Bands maps band name to its range.
type Bands map[string]Range

// Table holds the default bands plus per-metric overrides.
type Table struct {
	Default   Bands            `yaml:"default"`
	Overrides map[string]Bands `yaml:"overrides"`
}

// DefaultTable returns the standard ranges used when no file is configured.
func DefaultTable() *Table {
	return &Table{
		Default: Bands{
			"red":    {0, 49},
			"yellow": {50, 59},
			"blue":   {60, 74},
			"green":  {75, 100},
		},
		Overrides: map[string]Bands{},
	}
}

// Load reads a band table from a YAML file. Missing sections fall back to the
// defaults.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bands file: %w", err)
	}
	t := &Table{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing bands file: %w", err)
	}
	if len(t.Default) == 0 {
		t.Default = DefaultTable().Default
	}
	if t.Overrides == nil {
		t.Overrides = map[string]Bands{}
	}
	return t, nil
}

// LoadOrDefault loads path when non-empty, otherwise the default table.
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	return Load(path)
}

// BandFor classifies a value for the given metric key. A nil value, or one
// outside every range, is "unknown".
func (t *Table) BandFor(key string, value *float64) (band, color string) {
	if value == nil {
		return "unknown", colors["unknown"]
	}
	bands := t.Default
	if o, ok := t.Overrides[key]; ok {
		bands = o
	}
	for _, name := range order {
		r, ok := bands[name]
		if !ok {
			continue
		}
		if *value >= r[0] && *value <= r[1] {
			return name, colors[name]
		}
	}
	return "unknown", colors["unknown"]
}
