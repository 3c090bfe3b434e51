// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package screenshot captures the screen on a fixed interval.
//
// The capture schedule and the cancellation check run on separate
// tickers, so the worker notices the token within one PollInterval
// even though captures are Interval apart. Shutdown latency is at most
// PollInterval plus one in-flight capture.
package screenshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bureau-foundation/anveksha/lib/cancellation"
	"github.com/bureau-foundation/anveksha/lib/catalog"
	"github.com/bureau-foundation/anveksha/lib/clock"
	"github.com/bureau-foundation/anveksha/lib/layout"
	"github.com/bureau-foundation/anveksha/lib/worker"
)

// Name is the worker name used in logs and stop reports.
const Name = "screenshot"

// DefaultInterval is the time between captures.
const DefaultInterval = 5 * time.Second

// Grabber writes an image of the current screen to path.
type Grabber interface {
	Capture(ctx context.Context, path string) error
}

// Config holds the worker's collaborators.
type Config struct {
	// Directory receives the screenshots.
	Directory string

	Grabber  Grabber
	Recorder worker.Recorder
	Clock    clock.Clock
	Logger   *slog.Logger

	// Interval between captures. Defaults to DefaultInterval.
	Interval time.Duration

	// PollInterval between token checks. Defaults to
	// worker.PollInterval.
	PollInterval time.Duration
}

// Worker is the screen capture worker.
type Worker struct {
	config Config
}

// New returns a screen capture worker.
func New(config Config) (*Worker, error) {
	if config.Directory == "" {
		return nil, fmt.Errorf("screenshot: Directory is required")
	}
	if config.Grabber == nil {
		return nil, fmt.Errorf("screenshot: Grabber is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	config.Recorder = worker.OrDiscard(config.Recorder)
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.PollInterval <= 0 {
		config.PollInterval = worker.PollInterval
	}
	return &Worker{config: config}, nil
}

// Name implements worker.Worker.
func (w *Worker) Name() string { return Name }

// Run captures every Interval until the token is set.
func (w *Worker) Run(ctx context.Context, observer cancellation.Observer) error {
	if err := os.MkdirAll(w.config.Directory, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", w.config.Directory, err)
	}

	capture := w.config.Clock.NewTicker(w.config.Interval)
	defer capture.Stop()
	poll := w.config.Clock.NewTicker(w.config.PollInterval)
	defer poll.Stop()

	for {
		if observer.Cancelled() {
			return nil
		}
		select {
		case <-capture.C:
			if observer.Cancelled() {
				return nil
			}
			w.captureOnce(ctx)
		case <-poll.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// captureOnce takes and records one screenshot. Failures are logged
// and skipped.
func (w *Worker) captureOnce(ctx context.Context) {
	now := w.config.Clock.Now()
	path := layout.UniquePath(w.config.Directory, layout.ScreenshotPrefix, now, ".png")

	if err := w.config.Grabber.Capture(ctx, path); err != nil {
		w.config.Logger.Warn("screenshot failed", "path", path, "error", err)
		return
	}
	if _, err := w.config.Recorder.RecordArtifact(ctx, catalog.Artifact{
		Kind:      catalog.KindScreenshot,
		Path:      path,
		CreatedAt: now,
	}); err != nil {
		w.config.Logger.Warn("recording screenshot failed", "path", path, "error", err)
	}
	w.config.Logger.Debug("screenshot captured", "path", path)
}
