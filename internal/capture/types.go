// types.go — Evidence bundle and per-channel event types.
// Events are unique per observation: the same logical payload seen through two
// capture paths stays as two entries, tagged by origin, so downstream
// consumers can cross-check agreement between independent paths.
package capture

import (
	"encoding/json"
	"time"
)

// Source tags for CaptureEvent. Within one tag, Seq is monotonic and gap-free.
const (
	SourceFetch       = "fetch"        // fetch wrapper, JSON content type
	SourceFetchText   = "fetch-text"   // fetch wrapper, speculative text decode
	SourceXHR         = "xhr"          // XMLHttpRequest wrapper, JSON content type
	SourceXHRText     = "xhr-text"     // XMLHttpRequest wrapper, speculative text decode
	SourceInline      = "inline"       // JSON.parse wrapper (markup-embedded JSON)
	SourceNetwork     = "network"      // network-layer observer, JSON content type
	SourceNetworkText = "network-text" // network-layer observer, URL suggested JSON
)

// Chart library tags for ChartConfigEvent.
const (
	ChartLibECharts = "echarts" // init-then-setOption style
	ChartLibChartJS = "chartjs" // direct constructor style
)

// Storage scopes.
const (
	StorageLocal   = "local"   // page-scoped, persistent across sessions
	StorageSession = "session" // session-scoped
)

// CaptureEvent is one observed structured payload on the json channel.
// Body is kept as raw JSON so arbitrary vendor values round-trip untouched.
type CaptureEvent struct {
	Source string          `json:"src"`
	URL    string          `json:"url"` // origin URL, or "inline" for markup-embedded decodes
	Body   json.RawMessage `json:"body"`
	Seq    int             `json:"seq"` // index within Source, assigned at aggregation
}

// ChartConfigEvent is one chart-construction or configuration call as observed
// at call time, before the real library ran.
type ChartConfigEvent struct {
	Lib    string          `json:"lib"`
	Config json.RawMessage `json:"config"`
}

// CanvasTextEvent is one text draw onto a 2D drawing surface. Charts render
// their numbers, ticks, and labels this way, so this channel recovers values
// that never appear in the DOM.
type CanvasTextEvent struct {
	Kind  string  `json:"kind"` // "fill" or "stroke"
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Font  string  `json:"font"`
	Style string  `json:"style"` // active fillStyle or strokeStyle
}

// StorageSnapshot is a point-in-time dump of one storage scope, taken once at
// teardown.
type StorageSnapshot struct {
	Scope string            `json:"scope"`
	Items map[string]string `json:"items"`
}

// RequestLogEntry is one outbound request as seen at the network layer.
// Diagnostic only.
type RequestLogEntry struct {
	Time   time.Time `json:"time"`
	Method string    `json:"method"`
	URL    string    `json:"url"`
	Type   string    `json:"type"` // resource type (Document, XHR, Image, ...)
}

// SummaryCounts holds the per-channel totals persisted with the summary.
type SummaryCounts struct {
	Requests          int `json:"requests"`
	JSONEvents        int `json:"json_events"`
	ChartConfigs      int `json:"chart_configs"`
	CanvasTextEvents  int `json:"canvas_text_events"`
	SessionScopedKeys int `json:"session_scoped_keys"`
	PageScopedKeys    int `json:"page_scoped_keys"`
}

// Summary is the final record of what one session captured. Always produced,
// even when every channel is empty.
type Summary struct {
	SourceURL       string        `json:"source_url"`
	Timestamp       string        `json:"timestamp"` // RFC 3339 UTC
	DurationSeconds float64       `json:"duration_seconds"`
	Counts          SummaryCounts `json:"counts"`
}

// EvidenceBundle is the aggregation root for one session. Fields are
// independently optional: loss of one channel never invalidates the others.
// The bundle is write-once — never mutated after the writer finalizes it.
type EvidenceBundle struct {
	SessionID string
	SourceURL string
	StartedAt time.Time
	Duration  time.Duration

	JSON           []CaptureEvent // merged network + in-page json channel
	Charts         []ChartConfigEvent
	CanvasText     []CanvasTextEvent
	LocalStorage   StorageSnapshot
	SessionStorage StorageSnapshot
	Requests       []RequestLogEntry

	PageHTML   string
	Screenshot []byte
	Trace      []byte // gzipped Chrome trace stream
}

// Summarize computes the per-channel counts for the bundle.
func (b *EvidenceBundle) Summarize() Summary {
	return Summary{
		SourceURL:       b.SourceURL,
		Timestamp:       b.StartedAt.UTC().Format(time.RFC3339),
		DurationSeconds: b.Duration.Seconds(),
		Counts: SummaryCounts{
			Requests:          len(b.Requests),
			JSONEvents:        len(b.JSON),
			ChartConfigs:      len(b.Charts),
			CanvasTextEvents:  len(b.CanvasText),
			SessionScopedKeys: len(b.SessionStorage.Items),
			PageScopedKeys:    len(b.LocalStorage.Items),
		},
	}
}
