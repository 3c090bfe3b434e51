// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keylog appends key presses to the session's key log.
//
// Unlike the other workers this one is event driven, and it is the
// only worker that may set the cancellation token: the escape key ends
// the whole session, not just key logging. It still observes the
// token like every other worker, checking it every PollInterval while
// waiting for keys, so a stop from the controller ends it too.
package keylog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bureau-foundation/anveksha/lib/cancellation"
	"github.com/bureau-foundation/anveksha/lib/catalog"
	"github.com/bureau-foundation/anveksha/lib/clock"
	"github.com/bureau-foundation/anveksha/lib/worker"
)

// Name is the worker name used in logs and stop reports.
const Name = "keylog"

// Named keys with special handling.
const (
	KeySpace  = "space"
	KeyEscape = "esc"
)

// specialCharacters are written parenthesized.
const specialCharacters = `!@#$%^&*()-_=+{}[]:;"'<>,.?/`

// KeyEvent is one key press. Exactly one of Name and Char is set:
// Name for keys without a printable character ("enter", "shift",
// "esc"), Char otherwise.
type KeyEvent struct {
	Name string
	Char rune
}

// KeySource starts a key listener. The worker calls Listen once per
// session, so a source outlives any single Run.
type KeySource interface {
	Listen() (Listener, error)
}

// Listener delivers the key presses of one session.
type Listener interface {
	// Events is closed when the listener stops on its own.
	Events() <-chan KeyEvent

	// Close stops the listener. Safe to call more than once.
	Close() error
}

// Format returns the log text for event.
func Format(event KeyEvent) string {
	switch {
	case event.Name == KeySpace:
		return " "
	case event.Name != "":
		return "[" + event.Name + "]"
	case strings.ContainsRune(specialCharacters, event.Char):
		return "(" + string(event.Char) + ")"
	default:
		return string(event.Char)
	}
}

// Config holds the worker's collaborators.
type Config struct {
	// Path is the key log file, appended to across sessions.
	Path string

	Source KeySource

	// Trigger is set when the escape key is pressed.
	Trigger cancellation.Trigger

	Recorder worker.Recorder
	Clock    clock.Clock
	Logger   *slog.Logger

	// PollInterval between token checks while idle.
	PollInterval time.Duration
}

// Worker is the key logging worker.
type Worker struct {
	config Config
}

// New returns a key logging worker.
func New(config Config) (*Worker, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("keylog: Path is required")
	}
	if config.Source == nil {
		return nil, fmt.Errorf("keylog: Source is required")
	}
	if config.Trigger == nil {
		return nil, fmt.Errorf("keylog: Trigger is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	config.Recorder = worker.OrDiscard(config.Recorder)
	if config.PollInterval <= 0 {
		config.PollInterval = worker.PollInterval
	}
	return &Worker{config: config}, nil
}

// Name implements worker.Worker.
func (w *Worker) Name() string { return Name }

// Run logs keys until escape is pressed, the token is set, or the
// listener closes. The listener opened for this run is closed on
// return; the source stays usable for the next session.
func (w *Worker) Run(ctx context.Context, observer cancellation.Observer) error {
	listener, err := w.config.Source.Listen()
	if err != nil {
		return fmt.Errorf("starting key listener: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			w.config.Logger.Warn("stopping key listener failed", "error", err)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(w.config.Path), 0o755); err != nil {
		return fmt.Errorf("creating key log directory: %w", err)
	}
	file, err := os.OpenFile(w.config.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("opening key log: %w", err)
	}
	defer file.Close()

	if _, err := w.config.Recorder.RecordArtifact(ctx, catalog.Artifact{
		Kind:      catalog.KindKeyLog,
		Path:      w.config.Path,
		CreatedAt: w.config.Clock.Now(),
	}); err != nil {
		w.config.Logger.Warn("recording key log failed", "error", err)
	}

	poll := w.config.Clock.NewTicker(w.config.PollInterval)
	defer poll.Stop()

	events := listener.Events()
	for {
		if observer.Cancelled() {
			return nil
		}
		select {
		case event, ok := <-events:
			if !ok {
				w.config.Logger.Info("key listener closed")
				return nil
			}
			// Written unbuffered so the log survives a crash.
			if _, err := file.WriteString(Format(event)); err != nil {
				w.config.Logger.Warn("writing key log failed", "error", err)
			}
			if event.Name == KeyEscape {
				if w.config.Trigger.Cancel() {
					w.config.Logger.Info("escape pressed, ending session")
				}
				return nil
			}
		case <-poll.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
