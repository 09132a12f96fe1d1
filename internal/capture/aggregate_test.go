// aggregate_test.go — Tests for evidence merging.
package capture

import (
	"encoding/json"
	"testing"
)

func TestMergeEvidenceOrderAndNoDedup(t *testing.T) {
	network := []CaptureEvent{
		{Source: SourceNetwork, URL: "https://x/api/data", Body: json.RawMessage(`{"a":1}`)},
		{Source: SourceNetwork, URL: "https://x/api/more", Body: json.RawMessage(`{"b":2}`)},
	}
	page := []CaptureEvent{
		// Same payload observed again through the in-page fetch wrapper:
		// retained, not deduplicated.
		{Source: SourceFetch, URL: "https://x/api/data", Body: json.RawMessage(`{"a":1}`)},
		{Source: SourceInline, URL: "inline", Body: json.RawMessage(`{"b":2}`)},
	}

	merged := MergeEvidence(network, page)

	if len(merged) != 4 {
		t.Fatalf("merged %d events, want 4 (no dedup)", len(merged))
	}
	// Per-source arrival order preserved: network entries first, in their
	// order, then page entries in theirs.
	if merged[0].URL != "https://x/api/data" || merged[1].URL != "https://x/api/more" {
		t.Error("network-layer order not preserved")
	}
	if merged[2].Source != SourceFetch || merged[3].Source != SourceInline {
		t.Error("page-channel order not preserved")
	}
}

func TestMergeEvidenceSequencePerSource(t *testing.T) {
	network := []CaptureEvent{
		{Source: SourceNetwork, URL: "u1"},
		{Source: SourceNetworkText, URL: "u2"},
		{Source: SourceNetwork, URL: "u3"},
	}
	page := []CaptureEvent{
		{Source: SourceFetch, URL: "u4"},
		{Source: SourceFetch, URL: "u5"},
	}

	merged := MergeEvidence(network, page)

	wantSeq := []int{0, 0, 1, 0, 1}
	for i, ev := range merged {
		if ev.Seq != wantSeq[i] {
			t.Errorf("merged[%d] (%s) Seq = %d, want %d", i, ev.Source, ev.Seq, wantSeq[i])
		}
	}
}

func TestMergeEvidenceEmptySides(t *testing.T) {
	t.Run("both empty", func(t *testing.T) {
		if got := MergeEvidence(nil, nil); len(got) != 0 {
			t.Errorf("merged %d events from nothing", len(got))
		}
	})

	t.Run("network only", func(t *testing.T) {
		got := MergeEvidence([]CaptureEvent{{Source: SourceNetwork}}, nil)
		if len(got) != 1 || got[0].Seq != 0 {
			t.Errorf("got %+v", got)
		}
	})
}
