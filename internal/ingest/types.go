// types.go — Normalized scan and metric records.
package ingest

// Metric is one normalized per-metric record derived from a vendor datalist
// entry. Optional numeric fields are pointers: the vendor omits or garbles
// values routinely.
type Metric struct {
	Key            string   `json:"key"`
	Label          string   `json:"label,omitempty"`
	Value          *float64 `json:"value,omitempty"`
	CloudValue     *float64 `json:"cloudvalue,omitempty"`
	DeltaFromCloud *float64 `json:"delta_from_cloud,omitempty"`
	VendorLevel    string   `json:"vendor_level,omitempty"`
	Band           string   `json:"band,omitempty"`
	Color          string   `json:"color,omitempty"`
}

// Scan is one normalized vendor report. Raw keeps the untouched vendor
// payload for auditing.
type Scan struct {
	CheckID        *int              `json:"checkid,omitempty"`
	Name           string            `json:"name,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	SkinAge        *int              `json:"skin_age,omitempty"`
	SamplingImages map[string]string `json:"sampling_images"`
	Metrics        map[string]Metric `json:"metrics"`
	Raw            map[string]any    `json:"raw"`

	// Identity pair supplied by the report URL; keys the scan row upstream.
	URLID   *int   `json:"url_id,omitempty"`
	URLSign string `json:"url_sign,omitempty"`

	PhoneMasked string `json:"phone_masked,omitempty"`
}
