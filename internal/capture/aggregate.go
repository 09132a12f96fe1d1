// aggregate.go — Merge of the network-layer log with the in-page json channel.
// Per-source arrival order is preserved; no global cross-source order exists
// and none is imposed. Duplicate observations of the same logical payload
// through different paths are intentionally retained, tagged by origin, so
// downstream consumers can cross-check agreement between independent paths.
package capture

// MergeEvidence concatenates the network observer's payload log with the
// in-page json channel and assigns each event its sequence index within its
// source tag (monotonic, gap-free per tag).
func MergeEvidence(network, page []CaptureEvent) []CaptureEvent {
	merged := make([]CaptureEvent, 0, len(network)+len(page))
	merged = append(merged, network...)
	merged = append(merged, page...)

	perSource := map[string]int{}
	for i := range merged {
		merged[i].Seq = perSource[merged[i].Source]
		perSource[merged[i].Source]++
	}
	return merged
}
