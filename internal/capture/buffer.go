// buffer.go — Snapshot reads of the in-page shared capture buffer.
// The buffer is written by interceptors inside the target runtime and read
// here only through evaluate round trips: each read observes whatever has
// accumulated up to that round trip. No in-process lock is needed — the two
// sides share nothing but the message channel.
package capture

import (
	"context"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BufferReader reads the in-page capture buffer channels. A failed read is a
// ChannelReadError: logged and treated as an empty read for that round trip.
type BufferReader struct {
	log *zap.Logger
}

// NewBufferReader returns a reader logging channel-read failures to log.
func NewBufferReader(log *zap.Logger) *BufferReader {
	return &BufferReader{log: log}
}

// channelExpr guards against frames where the init script never ran (e.g.
// about:blank error pages): missing buffer reads as empty.
func channelExpr(channel string) string {
	return "window." + BufferGlobal + " ? window." + BufferGlobal + "." + channel + " : []"
}

// ReadJSON snapshots the json channel.
func (r *BufferReader) ReadJSON(ctx context.Context) []CaptureEvent {
	var out []CaptureEvent
	if err := chromedp.Run(ctx, chromedp.Evaluate(channelExpr("json"), &out)); err != nil {
		r.warn("json", err)
		return nil
	}
	return out
}

// ReadCharts snapshots the charts channel.
func (r *BufferReader) ReadCharts(ctx context.Context) []ChartConfigEvent {
	var out []ChartConfigEvent
	if err := chromedp.Run(ctx, chromedp.Evaluate(channelExpr("charts"), &out)); err != nil {
		r.warn("charts", err)
		return nil
	}
	return out
}

// ReadCanvasText snapshots the canvasText channel.
func (r *BufferReader) ReadCanvasText(ctx context.Context) []CanvasTextEvent {
	var out []CanvasTextEvent
	if err := chromedp.Run(ctx, chromedp.Evaluate(channelExpr("canvasText"), &out)); err != nil {
		r.warn("canvasText", err)
		return nil
	}
	return out
}

// ReadStorage dumps one storage scope directly from the page. Reads the live
// storage object rather than the mirror so the snapshot reflects final state.
func (r *BufferReader) ReadStorage(ctx context.Context, scope string) map[string]string {
	store := "localStorage"
	if scope == StorageSession {
		store = "sessionStorage"
	}
	expr := "Object.fromEntries(Object.keys(" + store + ").map(k => [k, " + store + ".getItem(k)]))"
	out := map[string]string{}
	if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &out)); err != nil {
		r.warn("storage."+scope, err)
		return map[string]string{}
	}
	return out
}

func (r *BufferReader) warn(channel string, err error) {
	cerr := &ChannelReadError{Channel: channel, Err: err}
	r.log.Warn("channel read failed, treating as empty", zap.Error(cerr))
}
