// main.go — Entry point for the aetheria-capture CLI binary.
// Drives one evidence-capture session against a report URL.
//
// Usage: aetheria-capture <report-url>
//
// Environment:
//   HEADLESS=1          run the browser without a window
//   AETHERIA_OUT_DIR    artifact directory (default: captures)
//
// Exit codes:
//   0 = capture completed (possibly degraded)
//   1 = error (could not acquire a session)
//   2 = usage error (missing argument, bad config)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/aetheria-dev/aetheria/internal/capture"
	"github.com/aetheria-dev/aetheria/internal/config"
)

const usageText = `aetheria-capture — evidence-capture harness for vendor report pages

Usage:
  aetheria-capture <report-url>

Environment:
  HEADLESS=1          run the browser without a window
  AETHERIA_OUT_DIR    artifact directory (default: captures)

Artifacts written per session:
  xhr-NN.json         captured JSON payloads (network + in-page hooks)
  chart-NN.json       chart configurations, if any charting library ran
  canvas-text.json    text drawn onto canvas (numbers, ticks, labels)
  storage-local.json, storage-session.json
  page.html, screenshot.png, trace.json.gz
  summary.json        per-channel counts for the session
`

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 || os.Args[1] == "--help" || os.Args[1] == "-h" {
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}
	targetURL := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "aetheria-capture: %v\n", err)
		return 2
	}

	log, err := buildLogger(cfg.Headless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aetheria-capture: logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller := capture.NewSessionController(capture.SessionOptions{
		TargetURL: targetURL,
		Headless:  cfg.Headless,
		OutDir:    cfg.OutDir,
	}, log)

	bundle, err := controller.Run(ctx)
	if bundle == nil {
		// Session was never acquired — the only fatal path.
		log.Error("capture failed", zap.Error(err))
		return 1
	}

	var navErr *capture.NavigationError
	if errors.As(err, &navErr) {
		log.Warn("captured degraded state", zap.Error(navErr))
	}

	writer := capture.NewEvidenceWriter(cfg.OutDir, log)
	summary := writer.Write(bundle)

	out, merr := json.MarshalIndent(summary, "", "  ")
	if merr == nil {
		fmt.Println("=== Capture complete ===")
		fmt.Println(string(out))
	}
	return 0
}

// buildLogger picks the encoder by execution mode: JSON for headless runs,
// console for interactive ones.
func buildLogger(headless bool) (*zap.Logger, error) {
	if headless {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
