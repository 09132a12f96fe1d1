// session.go — Browser session lifecycle for one navigation+capture cycle.
// Owns process/context acquisition, interceptor installation, trace recording,
// quiet-network navigation, interaction pulses, and teardown. The browser is
// released exactly once on every exit path, and the execution trace is stopped
// and flushed before release.
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdpio "github.com/chromedp/cdproto/io"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/tracing"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Browsing profile presented to the target. Matches a common desktop Chrome
// so the reporting page renders its full client-side experience.
const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	viewportWidth  = 1366
	viewportHeight = 900
	browserLocale  = "zh-CN"
)

// SessionOptions configures one capture session.
type SessionOptions struct {
	TargetURL string
	Headless  bool
	OutDir    string // artifact directory; the isolated profile lives under it

	NavigationTimeout time.Duration // hard cap on reaching quiet network (default 2m)
	SettleWindow      time.Duration // quiet-network window with no in-flight requests (default 500ms)
	Pulses            int           // synthetic scroll+resize interactions (default 8)
	PulseInterval     time.Duration // delay before each pulse (default 1.25s)
}

// withDefaults fills unset options with the standard budget.
func (o SessionOptions) withDefaults() SessionOptions {
	if o.NavigationTimeout == 0 {
		o.NavigationTimeout = 2 * time.Minute
	}
	if o.SettleWindow == 0 {
		o.SettleWindow = 500 * time.Millisecond
	}
	if o.Pulses == 0 {
		o.Pulses = 8
	}
	if o.PulseInterval == 0 {
		o.PulseInterval = 1250 * time.Millisecond
	}
	return o
}

// ValidateTarget checks that raw is a well-formed http/https address.
func ValidateTarget(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("target is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("target has no host")
	}
	return nil
}

// SessionController drives one browser session cooperatively. The target page
// executes its own scripts in an independent context; interceptors run there
// while the controller polls via snapshot round trips.
type SessionController struct {
	opts      SessionOptions
	log       *zap.Logger
	collector *PollingCollector
}

// NewSessionController returns a controller for one navigation+capture cycle.
func NewSessionController(opts SessionOptions, log *zap.Logger) *SessionController {
	return &SessionController{
		opts:      opts.withDefaults(),
		log:       log,
		collector: NewPollingCollector(log),
	}
}

// Run acquires the session, captures, and releases. The returned bundle is
// non-nil whenever a session was acquired at all: a navigation timeout yields
// NavigationError alongside a best-effort bundle of whatever state exists.
// Only acquisition failures return a nil bundle.
func (s *SessionController) Run(ctx context.Context) (*EvidenceBundle, error) {
	if err := ValidateTarget(s.opts.TargetURL); err != nil {
		return nil, err
	}

	profileDir := filepath.Join(s.opts.OutDir, "profile")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating profile dir: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.UserDataDir(profileDir),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("lang", browserLocale),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer func() {
		if err := chromedp.Cancel(tabCtx); err != nil {
			s.log.Error("browser release failed", zap.Error(&SessionTeardownError{Err: err}))
		}
		cancelTab()
	}()

	sessionID := uuid.NewString()
	log := s.log.With(zap.String("session_id", sessionID))

	observer := NewNetworkObserver(log)
	observer.Attach(tabCtx)

	// The trace stream handle arrives asynchronously once tracing ends.
	traceDone := make(chan cdpio.StreamHandle, 1)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*tracing.EventTracingComplete); ok {
			select {
			case traceDone <- e.Stream:
			default:
			}
		}
	})

	// Acquire the browser and arm everything that must precede the first page
	// script: network events, the interceptor init script, trace recording.
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(InitScript()).Do(ctx)
			return err
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return tracing.Start().
				WithTransferMode(tracing.TransferModeReturnAsStream).
				WithStreamFormat(tracing.StreamFormatJSON).
				WithStreamCompression(tracing.StreamCompressionGzip).
				WithTraceConfig(&tracing.TraceConfig{
					IncludedCategories: []string{
						"devtools.timeline",
						"disabled-by-default-devtools.screenshot",
						"blink.user_timing",
						"v8.execute",
					},
				}).Do(ctx)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("acquiring browser session: %w", err)
	}

	tracingStopped := false
	stopTracing := func() []byte {
		if tracingStopped {
			return nil
		}
		tracingStopped = true
		data, err := s.flushTrace(tabCtx, traceDone)
		if err != nil {
			log.Error("trace flush failed", zap.Error(&SessionTeardownError{Err: err}))
			return nil
		}
		return data
	}
	// Trace is stopped and flushed before release on every path, including
	// panics and early returns below.
	defer stopTracing()

	bundle := &EvidenceBundle{
		SessionID: sessionID,
		SourceURL: s.opts.TargetURL,
		StartedAt: time.Now(),
	}

	navErr := s.navigate(tabCtx, observer, log)
	if navErr != nil {
		log.Warn("navigation did not settle, capturing degraded state", zap.Error(navErr))
	}

	s.pulse(tabCtx, log)

	collected := s.collector.Collect(tabCtx, NewBufferReader(log))

	// Give detached body fetches a moment to land before merging.
	observer.WaitBodies(5 * time.Second)

	bundle.JSON = MergeEvidence(observer.Payloads(), collected.JSON)
	bundle.Charts = collected.Charts
	bundle.CanvasText = collected.CanvasText
	bundle.LocalStorage = StorageSnapshot{Scope: StorageLocal, Items: collected.LocalStorage}
	bundle.SessionStorage = StorageSnapshot{Scope: StorageSession, Items: collected.SessionStorage}
	bundle.Requests = observer.RequestLog()
	bundle.Duration = time.Since(bundle.StartedAt)

	// Page-state artifacts are best-effort: a failed grab leaves its field
	// empty without touching the rest of the bundle.
	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		log.Warn("page markup grab failed", zap.Error(err))
	} else {
		bundle.PageHTML = html
	}

	var shot []byte
	if err := chromedp.Run(tabCtx, chromedp.FullScreenshot(&shot, 90)); err != nil {
		log.Warn("screenshot grab failed", zap.Error(err))
	} else {
		bundle.Screenshot = shot
	}

	bundle.Trace = stopTracing()

	if navErr != nil {
		return bundle, navErr
	}
	return bundle, nil
}

// navigate drives the page to the target and waits for quiet network: no
// in-flight requests for the settle window. On timeout it returns a
// recoverable NavigationError.
func (s *SessionController) navigate(ctx context.Context, observer *NetworkObserver, log *zap.Logger) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(s.opts.TargetURL)); err != nil {
		return &NavigationError{URL: s.opts.TargetURL, Timeout: s.opts.NavigationTimeout, Err: err}
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-navCtx.Done():
			return &NavigationError{URL: s.opts.TargetURL, Timeout: s.opts.NavigationTimeout, Err: navCtx.Err()}
		case <-ticker.C:
			if observer.InFlight() == 0 && time.Since(observer.LastActivity()) >= s.opts.SettleWindow {
				log.Info("navigation settled", zap.String("url", s.opts.TargetURL))
				return nil
			}
		}
	}
}

// pulse issues the synthetic scroll+resize interactions that many reporting
// pages need before constructing their charts. Failures are ignored: a dead
// frame just means nothing new renders.
func (s *SessionController) pulse(ctx context.Context, log *zap.Logger) {
	for i := 0; i < s.opts.Pulses; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.PulseInterval):
		}
		_ = chromedp.Run(ctx, chromedp.Evaluate("window.scrollBy(0, Math.floor(window.innerHeight/2));", nil))
		select {
		case <-ctx.Done():
			return
		case <-time.After(250 * time.Millisecond):
		}
		_ = chromedp.Run(ctx, chromedp.Evaluate("window.dispatchEvent(new Event('resize'));", nil))
	}
	log.Debug("interaction pulses issued", zap.Int("pulses", s.opts.Pulses))
}

// flushTrace ends tracing and drains the resulting stream. The stream arrives
// gzip-compressed, so the returned bytes are a complete trace archive.
func (s *SessionController) flushTrace(ctx context.Context, traceDone <-chan cdpio.StreamHandle) ([]byte, error) {
	if err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return tracing.End().Do(ctx)
	})); err != nil {
		return nil, fmt.Errorf("ending trace: %w", err)
	}

	var stream cdpio.StreamHandle
	select {
	case stream = <-traceDone:
	case <-time.After(10 * time.Second):
		return nil, fmt.Errorf("trace stream handle did not arrive")
	}

	var buf bytes.Buffer
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for {
			var res cdpio.ReadReturns
			if err := cdp.Execute(ctx, cdpio.CommandRead, cdpio.Read(stream), &res); err != nil {
				return err
			}
			encoded, data, eof := res.Base64encoded, res.Data, res.EOF
			if data != "" {
				if encoded {
					chunk, err := base64.StdEncoding.DecodeString(data)
					if err != nil {
						return err
					}
					buf.Write(chunk)
				} else {
					buf.WriteString(data)
				}
			}
			if eof {
				return cdpio.Close(stream).Do(ctx)
			}
		}
	}))
	if err != nil {
		return nil, fmt.Errorf("reading trace stream: %w", err)
	}
	return buf.Bytes(), nil
}
