// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package activity classifies what the operator is doing from the
// foreground window and the running processes, and logs changes.
//
// Every Interval the worker takes a [Snapshot], runs it through the
// [Classifier] and appends "<time> - <label>" to the activity log only
// when the label differs from the last one logged. Between polls it
// checks the token every PollInterval.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/anveksha/lib/cancellation"
	"github.com/bureau-foundation/anveksha/lib/catalog"
	"github.com/bureau-foundation/anveksha/lib/clock"
	"github.com/bureau-foundation/anveksha/lib/worker"
)

// Name is the worker name used in logs and stop reports.
const Name = "activity"

// DefaultInterval is the time between polls.
const DefaultInterval = 5 * time.Second

// lineTimeFormat stamps activity log lines.
const lineTimeFormat = "2006-01-02 15:04:05.000000"

// WindowInspector reports the foreground window.
type WindowInspector interface {
	// ActiveWindowTitle returns ok=false when no window has focus.
	ActiveWindowTitle(ctx context.Context) (title string, ok bool, err error)
}

// ProcessLister reports running process names.
type ProcessLister interface {
	ProcessNames(ctx context.Context) ([]string, error)
}

// Config holds the worker's collaborators.
type Config struct {
	// Path is the activity log file, appended to across sessions.
	Path string

	Windows    WindowInspector
	Processes  ProcessLister
	Classifier *Classifier
	Recorder   worker.Recorder
	Clock      clock.Clock
	Logger     *slog.Logger

	Interval     time.Duration
	PollInterval time.Duration
}

// Worker is the activity tracking worker.
type Worker struct {
	config  Config
	tracker Tracker
}

// New returns an activity tracking worker.
func New(config Config) (*Worker, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("activity: Path is required")
	}
	if config.Windows == nil || config.Processes == nil {
		return nil, fmt.Errorf("activity: Windows and Processes are required")
	}
	if config.Classifier == nil {
		config.Classifier = NewClassifier(nil)
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

// Run polls until the token is set. The first poll happens
// immediately and is always logged, even when it matches the last
// label of the previous session.
func (w *Worker) Run(ctx context.Context, observer cancellation.Observer) error {
	w.tracker.Reset()
	if err := os.MkdirAll(filepath.Dir(w.config.Path), 0o755); err != nil {
		return fmt.Errorf("creating activity log directory: %w", err)
	}
	file, err := os.OpenFile(w.config.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer file.Close()

	if _, err := w.config.Recorder.RecordArtifact(ctx, catalog.Artifact{
		Kind:      catalog.KindActivityLog,
		Path:      w.config.Path,
		CreatedAt: w.config.Clock.Now(),
	}); err != nil {
		w.config.Logger.Warn("recording activity log failed", "error", err)
	}

	for !observer.Cancelled() {
		w.pollOnce(ctx, file)
		if cancellation.Wait(w.config.Clock, observer, w.config.PollInterval, w.config.Interval) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) pollOnce(ctx context.Context, file *os.File) {
	title, hasWindow, err := w.config.Windows.ActiveWindowTitle(ctx)
	if err != nil {
		w.config.Logger.Warn("reading active window failed", "error", err)
		return
	}
	processes, err := w.config.Processes.ProcessNames(ctx)
	if err != nil {
		w.config.Logger.Warn("listing processes failed", "error", err)
		return
	}

	label := w.config.Classifier.Classify(Snapshot{Title: title, HasWindow: hasWindow, Processes: processes})
	if !w.tracker.Observe(label) {
		return
	}
	line := w.config.Clock.Now().Format(lineTimeFormat) + " - " + label + "\n"
	if _, err := file.WriteString(line); err != nil {
		w.config.Logger.Warn("writing activity log failed", "error", err)
	}
	w.config.Logger.Debug("activity changed", "label", label)
}
