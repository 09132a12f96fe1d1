// collector.go — Bounded polling collection of the in-page buffer.
// Charts and json arrive at unpredictable post-load moments, so they are
// polled as signals with an iteration budget. Canvas text and storage
// accumulate continuously and are read exactly once, unconditionally, after
// the signal loop exits.
package capture

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ChannelReader is the read seam over the in-page buffer. Implemented by
// BufferReader; stubbed in tests.
type ChannelReader interface {
	ReadJSON(ctx context.Context) []CaptureEvent
	ReadCharts(ctx context.Context) []ChartConfigEvent
	ReadCanvasText(ctx context.Context) []CanvasTextEvent
	ReadStorage(ctx context.Context, scope string) map[string]string
}

// Collected holds everything the collector drained from the page buffer.
type Collected struct {
	JSON           []CaptureEvent
	Charts         []ChartConfigEvent
	CanvasText     []CanvasTextEvent
	LocalStorage   map[string]string
	SessionStorage map[string]string
}

// PollingCollector polls the signal channels for up to Iterations rounds at
// Cadence apart. Worst-case wait is Iterations × Cadence, never indefinite.
type PollingCollector struct {
	Iterations int
	Cadence    time.Duration

	log *zap.Logger
}

// NewPollingCollector returns a collector with the standard budget:
// 75 iterations at 1 s cadence.
func NewPollingCollector(log *zap.Logger) *PollingCollector {
	return &PollingCollector{Iterations: 75, Cadence: time.Second, log: log}
}

// Collect runs the signal loop, exiting as soon as either the charts or json
// channel is non-empty, then takes the one-shot snapshots. On context
// cancellation it returns whatever has been gathered so far.
func (c *PollingCollector) Collect(ctx context.Context, r ChannelReader) Collected {
	var out Collected

	for i := 0; i < c.Iterations; i++ {
		out.Charts = r.ReadCharts(ctx)
		out.JSON = r.ReadJSON(ctx)
		if len(out.Charts) > 0 || len(out.JSON) > 0 {
			c.log.Debug("capture signal observed",
				zap.Int("iteration", i),
				zap.Int("charts", len(out.Charts)),
				zap.Int("json", len(out.JSON)))
			break
		}
		select {
		case <-ctx.Done():
			return c.snapshot(ctx, r, out)
		case <-time.After(c.Cadence):
		}
	}

	return c.snapshot(ctx, r, out)
}

// snapshot reads the accumulate-only channels exactly once.
func (c *PollingCollector) snapshot(ctx context.Context, r ChannelReader, out Collected) Collected {
	out.CanvasText = r.ReadCanvasText(ctx)
	out.LocalStorage = r.ReadStorage(ctx, StorageLocal)
	out.SessionStorage = r.ReadStorage(ctx, StorageSession)
	return out
}
