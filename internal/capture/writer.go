// writer.go — Best-effort persistence of the evidence bundle.
// Every artifact write is independent: a failure is logged as an
// ArtifactWriteError scoped to that artifact and never blocks a sibling.
// The summary is always written last, reflecting exactly what was captured.
package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// EvidenceWriter persists one bundle's artifacts into Dir.
type EvidenceWriter struct {
	Dir string
	log *zap.Logger
}

// NewEvidenceWriter returns a writer targeting dir.
func NewEvidenceWriter(dir string, log *zap.Logger) *EvidenceWriter {
	return &EvidenceWriter{Dir: dir, log: log}
}

// Write persists every artifact and finally the summary record, which it also
// returns. Individual failures degrade the artifact set, never abort it.
func (w *EvidenceWriter) Write(b *EvidenceBundle) Summary {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		w.warn("dir", err)
	}

	for i, ev := range b.JSON {
		w.writeJSON(fmt.Sprintf("xhr-%02d.json", i), ev)
	}
	for i, ch := range b.Charts {
		w.writeJSON(fmt.Sprintf("chart-%02d.json", i), ch)
	}
	if len(b.CanvasText) > 0 {
		w.writeJSON("canvas-text.json", b.CanvasText)
	}
	w.writeJSON("storage-local.json", orEmpty(b.LocalStorage.Items))
	w.writeJSON("storage-session.json", orEmpty(b.SessionStorage.Items))

	if b.PageHTML != "" {
		w.writeRaw("page.html", []byte(b.PageHTML))
	}
	if len(b.Screenshot) > 0 {
		w.writeRaw("screenshot.png", b.Screenshot)
	}
	if len(b.Trace) > 0 {
		w.writeRaw("trace.json.gz", b.Trace)
	}

	summary := b.Summarize()
	w.writeJSON("summary.json", summary)
	return summary
}

// orEmpty keeps an absent storage snapshot serializing as {} rather than null.
func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// writeJSON marshals v with indentation and a trailing newline, matching the
// artifact format downstream tooling expects.
func (w *EvidenceWriter) writeJSON(name string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		w.warn(name, err)
		return
	}
	data = append(data, '\n')
	w.writeRaw(name, data)
}

func (w *EvidenceWriter) writeRaw(name string, data []byte) {
	if err := os.WriteFile(filepath.Join(w.Dir, name), data, 0o644); err != nil {
		w.warn(name, err)
	}
}

func (w *EvidenceWriter) warn(artifact string, err error) {
	w.log.Warn("artifact write failed",
		zap.Error(&ArtifactWriteError{Artifact: artifact, Err: err}))
}
