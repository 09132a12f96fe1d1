// collector_test.go — Tests for the bounded polling collector.
package capture

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubReader scripts the in-page buffer: signal channels stay empty until
// readyAfter reads have happened.
type stubReader struct {
	readyAfter int
	jsonReads  int
	chartReads int
	canvasRead int
	storRead   map[string]int

	jsonEvents []CaptureEvent
	charts     []ChartConfigEvent
}

func newStubReader(readyAfter int) *stubReader {
	return &stubReader{readyAfter: readyAfter, storRead: map[string]int{}}
}

func (s *stubReader) ReadJSON(context.Context) []CaptureEvent {
	s.jsonReads++
	if s.jsonReads > s.readyAfter {
		return s.jsonEvents
	}
	return nil
}

func (s *stubReader) ReadCharts(context.Context) []ChartConfigEvent {
	s.chartReads++
	if s.chartReads > s.readyAfter {
		return s.charts
	}
	return nil
}

func (s *stubReader) ReadCanvasText(context.Context) []CanvasTextEvent {
	s.canvasRead++
	return []CanvasTextEvent{{Kind: "fill", Text: "42", X: 10, Y: 20}}
}

func (s *stubReader) ReadStorage(_ context.Context, scope string) map[string]string {
	s.storRead[scope]++
	return map[string]string{"k": "v"}
}

func fastCollector() *PollingCollector {
	c := NewPollingCollector(zap.NewNop())
	c.Cadence = time.Millisecond
	return c
}

func TestCollectEarlyExitOnSignal(t *testing.T) {
	r := newStubReader(2)
	r.jsonEvents = []CaptureEvent{{Source: SourceFetch, URL: "/api/data", Body: json.RawMessage(`{"a":1}`)}}

	c := fastCollector()
	got := c.Collect(context.Background(), r)

	if len(got.JSON) != 1 {
		t.Fatalf("JSON events = %d, want 1", len(got.JSON))
	}
	if r.jsonReads >= c.Iterations {
		t.Errorf("collector exhausted budget (%d reads) despite signal", r.jsonReads)
	}
}

func TestCollectBoundedWhenNoSignal(t *testing.T) {
	r := newStubReader(1 << 30) // never ready

	c := fastCollector()
	c.Iterations = 5

	start := time.Now()
	got := c.Collect(context.Background(), r)
	elapsed := time.Since(start)

	if r.jsonReads != 5 || r.chartReads != 5 {
		t.Errorf("signal reads = %d/%d, want exactly 5 each", r.jsonReads, r.chartReads)
	}
	if len(got.JSON) != 0 || len(got.Charts) != 0 {
		t.Error("expected empty signal channels")
	}
	// Generous bound: 5 iterations at 1ms cadence must finish well under a second.
	if elapsed > time.Second {
		t.Errorf("collect took %s, loop is not bounded", elapsed)
	}
}

func TestCollectSnapshotsReadExactlyOnce(t *testing.T) {
	r := newStubReader(0) // signal on first read
	r.jsonEvents = []CaptureEvent{{Source: SourceFetch}}

	c := fastCollector()
	got := c.Collect(context.Background(), r)

	if r.canvasRead != 1 {
		t.Errorf("canvasText read %d times, want exactly 1", r.canvasRead)
	}
	if r.storRead[StorageLocal] != 1 || r.storRead[StorageSession] != 1 {
		t.Errorf("storage reads = %v, want exactly 1 per scope", r.storRead)
	}
	if len(got.CanvasText) != 1 || got.CanvasText[0].Text != "42" {
		t.Errorf("canvasText snapshot = %+v", got.CanvasText)
	}
	if got.LocalStorage["k"] != "v" || got.SessionStorage["k"] != "v" {
		t.Error("storage snapshots not taken")
	}
}

func TestCollectSnapshotsTakenOnCancel(t *testing.T) {
	r := newStubReader(1 << 30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := fastCollector()
	got := c.Collect(ctx, r)

	// Even a cancelled run takes the unconditional snapshots.
	if r.canvasRead != 1 {
		t.Errorf("canvasText read %d times on cancel, want 1", r.canvasRead)
	}
	if got.LocalStorage == nil || got.SessionStorage == nil {
		t.Error("storage snapshots missing on cancel")
	}
}
