// observer.go — Network-layer capture over the DevTools protocol.
// Independent of the in-page interceptors: pages that sidestep the standard
// fetch/XHR primitives still surface here, and payloads seen by both paths
// cross-validate each other. Also feeds the quiet-network heuristic that
// gates navigation.
package capture

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/aetheria-dev/aetheria/internal/util"
)

// pendingResponse holds response metadata until its body finishes loading.
type pendingResponse struct {
	url  string
	mime string
}

// NetworkObserver subscribes to the session's request/response stream. All
// fields are protected by mu; body fetches run in background goroutines and
// report through ingestBody.
type NetworkObserver struct {
	log *zap.Logger

	mu         sync.Mutex
	requests   []RequestLogEntry
	payloads   []CaptureEvent
	pending    map[network.RequestID]pendingResponse
	inflight   map[network.RequestID]struct{}
	lastChange time.Time

	bodies sync.WaitGroup
}

// NewNetworkObserver returns an observer ready to Attach.
func NewNetworkObserver(log *zap.Logger) *NetworkObserver {
	return &NetworkObserver{
		log:        log,
		pending:    make(map[network.RequestID]pendingResponse),
		inflight:   make(map[network.RequestID]struct{}),
		lastChange: time.Now(),
	}
}

// Attach subscribes the observer to the target's network events. ctx must be
// the chromedp target context; it is also used as the executor for body
// fetches.
func (o *NetworkObserver) Attach(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			o.onRequest(e)
		case *network.EventResponseReceived:
			o.onResponse(e)
		case *network.EventLoadingFinished:
			o.onLoadingDone(ctx, e.RequestID, true)
		case *network.EventLoadingFailed:
			o.onLoadingDone(ctx, e.RequestID, false)
		}
	})
}

func (o *NetworkObserver) onRequest(e *network.EventRequestWillBeSent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, RequestLogEntry{
		Time:   time.Now(),
		Method: e.Request.Method,
		URL:    e.Request.URL,
		Type:   string(e.Type),
	})
	o.inflight[e.RequestID] = struct{}{}
	o.lastChange = time.Now()
}

func (o *NetworkObserver) onResponse(e *network.EventResponseReceived) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[e.RequestID] = pendingResponse{url: e.Response.URL, mime: e.Response.MimeType}
}

func (o *NetworkObserver) onLoadingDone(ctx context.Context, id network.RequestID, ok bool) {
	o.mu.Lock()
	delete(o.inflight, id)
	o.lastChange = time.Now()
	pr, found := o.pending[id]
	delete(o.pending, id)
	o.mu.Unlock()

	if !ok || !found {
		return
	}
	tag, want := classifyResponse(pr.url, pr.mime)
	if !want {
		return
	}

	// Body retrieval is a round trip of its own; never block the event
	// listener on it.
	o.bodies.Add(1)
	util.SafeGo(o.log, func() {
		defer o.bodies.Done()
		c := chromedp.FromContext(ctx)
		if c == nil {
			return
		}
		body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(ctx, c.Target))
		if err != nil {
			o.log.Debug("response body unavailable", zap.String("url", pr.url), zap.Error(err))
			return
		}
		o.ingestBody(tag, pr.url, body)
	})
}

// classifyResponse decides whether a response is worth decoding and under
// which source tag: JSON content type, or a URL strongly suggesting a JSON
// resource.
func classifyResponse(url, mime string) (tag string, want bool) {
	if strings.Contains(strings.ToLower(mime), "application/json") {
		return SourceNetwork, true
	}
	lower := strings.ToLower(url)
	if strings.HasSuffix(lower, ".json") || strings.Contains(lower, ".json?") {
		return SourceNetworkText, true
	}
	return "", false
}

// ingestBody appends one captured body to the payload log. Undecodable
// network-tagged bodies are dropped; network-text bodies fall back to the raw
// text when they fail to decode.
func (o *NetworkObserver) ingestBody(tag, url string, body []byte) {
	var raw json.RawMessage
	switch {
	case json.Valid(body):
		raw = json.RawMessage(body)
	case tag == SourceNetworkText:
		quoted, err := json.Marshal(string(body))
		if err != nil {
			return
		}
		raw = quoted
	default:
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.payloads = append(o.payloads, CaptureEvent{Source: tag, URL: url, Body: raw})
}

// InFlight reports the number of requests without a terminal loading event.
func (o *NetworkObserver) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.inflight)
}

// LastActivity reports when the in-flight set last changed.
func (o *NetworkObserver) LastActivity() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastChange
}

// WaitBodies blocks until outstanding body fetches finish, or d elapses.
func (o *NetworkObserver) WaitBodies(d time.Duration) {
	done := make(chan struct{})
	go func() {
		o.bodies.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
	}
}

// RequestLog returns a copy of the diagnostic request log.
func (o *NetworkObserver) RequestLog() []RequestLogEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]RequestLogEntry, len(o.requests))
	copy(out, o.requests)
	return out
}

// Payloads returns a copy of the network-layer JSON payload log.
func (o *NetworkObserver) Payloads() []CaptureEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]CaptureEvent, len(o.payloads))
	copy(out, o.payloads)
	return out
}
