// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package textextract runs OCR over captured screenshots.
//
// Each pass lists the screenshot directory and extracts text from every
// image whose contents have not been processed yet, identified by path
// and BLAKE3 digest. A file is only hashed when it is new or its size
// or modification time changed since it was last seen. The processed
// set is seeded from the catalog so a restarted agent does not redo
// old screenshots. When a pass finds
// nothing to do the worker waits IdleInterval, or less if a directory
// watch reports new files, checking the token every PollInterval.
// Shutdown latency is one PollInterval or one in-flight extraction.
package textextract

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/anveksha/lib/binhash"
	"github.com/bureau-foundation/anveksha/lib/cancellation"
	"github.com/bureau-foundation/anveksha/lib/catalog"
	"github.com/bureau-foundation/anveksha/lib/clock"
	"github.com/bureau-foundation/anveksha/lib/dirwatch"
	"github.com/bureau-foundation/anveksha/lib/layout"
	"github.com/bureau-foundation/anveksha/lib/worker"
)

// Name is the worker name used in logs and stop reports.
const Name = "textextract"

// DefaultIdleInterval is the wait after a pass that found no new images.
const DefaultIdleInterval = 5 * time.Second

// Recognizer extracts text from an image file.
type Recognizer interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// TextStore persists extracted text. *catalog.Store implements it.
type TextStore interface {
	worker.Recorder
	RecordExtractedText(ctx context.Context, artifactID int64, sourcePath, sourceDigest, text string) error
	ProcessedSources(ctx context.Context) (map[string]string, error)
}

// Config holds the worker's collaborators.
type Config struct {
	// Sources is the screenshot directory; Output receives text files.
	Sources string
	Output  string

	Recognizer Recognizer

	// Store, when set, receives artifacts and text and seeds the
	// processed set. When nil the processed set lives only in memory.
	Store TextStore

	// Watch enables directory notifications to cut idle waits short.
	Watch bool

	Clock  clock.Clock
	Logger *slog.Logger

	IdleInterval time.Duration
	PollInterval time.Duration
}

// Worker is the text extraction worker.
type Worker struct {
	config   Config
	recorder worker.Recorder

	// processed maps source path to the state it was processed (or
	// failed) at. Owned by the Run goroutine.
	processed map[string]sourceState

	hash func(path string) (binhash.Digest, error)
}

// sourceState identifies the version of a screenshot that was
// processed. Size and modTime let a scan skip hashing an unchanged
// file; they are zero for entries loaded from the catalog until the
// file is hashed once.
type sourceState struct {
	digest  string
	size    int64
	modTime time.Time
}

func (s sourceState) matches(info fs.FileInfo) bool {
	return !s.modTime.IsZero() && s.size == info.Size() && s.modTime.Equal(info.ModTime())
}

// New returns a text extraction worker.
func New(config Config) (*Worker, error) {
	if config.Sources == "" || config.Output == "" {
		return nil, fmt.Errorf("textextract: Sources and Output are required")
	}
	if config.Recognizer == nil {
		return nil, fmt.Errorf("textextract: Recognizer is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.IdleInterval <= 0 {
		config.IdleInterval = DefaultIdleInterval
	}
	if config.PollInterval <= 0 {
		config.PollInterval = worker.PollInterval
	}
	w := &Worker{config: config, recorder: worker.Discard, hash: binhash.HashFile}
	if config.Store != nil {
		w.recorder = config.Store
	}
	return w, nil
}

// Name implements worker.Worker.
func (w *Worker) Name() string { return Name }

// Run extracts text until the token is set.
func (w *Worker) Run(ctx context.Context, observer cancellation.Observer) error {
	for _, directory := range []string{w.config.Sources, w.config.Output} {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}

	w.loadProcessed(ctx)

	var watcher *dirwatch.Watcher
	if w.config.Watch {
		var err error
		watcher, err = dirwatch.Watch(w.config.Sources)
		if err != nil {
			w.config.Logger.Debug("directory watch unavailable, polling only", "error", err)
		}
		defer watcher.Close()
	}

	for !observer.Cancelled() {
		worked := w.scan(ctx, observer)
		if err := ctx.Err(); err != nil {
			return err
		}
		if !worked && w.waitIdle(ctx, observer, watcher.Events()) {
			return nil
		}
	}
	return nil
}

// loadProcessed seeds the processed set from the catalog.
func (w *Worker) loadProcessed(ctx context.Context) {
	w.processed = make(map[string]sourceState)
	if w.config.Store == nil {
		return
	}
	sources, err := w.config.Store.ProcessedSources(ctx)
	if err != nil {
		w.config.Logger.Warn("loading processed screenshots failed, starting empty", "error", err)
		return
	}
	for path, digest := range sources {
		w.processed[path] = sourceState{digest: digest}
	}
}

// scan processes every new image once. Returns true if any image was
// processed.
func (w *Worker) scan(ctx context.Context, observer cancellation.Observer) bool {
	entries, err := os.ReadDir(w.config.Sources)
	if err != nil {
		w.config.Logger.Warn("listing screenshots failed", "error", err)
		return false
	}
	// ReadDir returns entries sorted by name.
	worked := false
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !layout.IsImage(entry.Name()) {
			continue
		}
		if observer.Cancelled() || ctx.Err() != nil {
			return worked
		}
		path := filepath.Join(w.config.Sources, entry.Name())
		info, err := entry.Info()
		if err != nil {
			// Usually a screenshot deleted mid-scan.
			continue
		}
		known, seen := w.processed[path]
		if seen && known.matches(info) {
			continue
		}

		digest, err := w.hash(path)
		if err != nil {
			w.config.Logger.Debug("hashing screenshot failed", "path", path, "error", err)
			continue
		}
		current := sourceState{digest: digest.String(), size: info.Size(), modTime: info.ModTime()}
		w.processed[path] = current
		if seen && known.digest == current.digest {
			continue
		}
		worked = true
		w.processOne(ctx, path, digest)
	}
	return worked
}

// processOne extracts, writes and records the text of one image. A
// failure is logged and the image is not retried until its contents
// change.
func (w *Worker) processOne(ctx context.Context, path string, digest binhash.Digest) {
	text, err := w.config.Recognizer.ExtractText(ctx, path)
	if err != nil {
		w.config.Logger.Warn("text extraction failed", "path", path, "error", err)
		return
	}

	stamp, ok := layout.ParseTimestamp(filepath.Base(path))
	if !ok {
		stamp = w.config.Clock.Now()
	}
	output := layout.UniquePath(w.config.Output, layout.TextPrefix, stamp, ".txt")
	if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
		w.config.Logger.Warn("writing extracted text failed", "path", output, "error", err)
		return
	}

	recordContext := context.WithoutCancel(ctx)
	id, err := w.recorder.RecordArtifact(recordContext, catalog.Artifact{
		Kind:      catalog.KindOCRText,
		Path:      output,
		CreatedAt: w.config.Clock.Now(),
	})
	if err != nil {
		w.config.Logger.Warn("recording extracted text failed", "path", output, "error", err)
		return
	}
	if w.config.Store != nil {
		if err := w.config.Store.RecordExtractedText(recordContext, id, path, digest.String(), text); err != nil {
			w.config.Logger.Warn("storing extracted text failed", "path", output, "error", err)
		}
	}
	w.config.Logger.Debug("text extracted", "source", path, "output", output, "bytes", len(text))
}

// waitIdle waits up to IdleInterval for new files. Returns true if the
// token was set meanwhile.
func (w *Worker) waitIdle(ctx context.Context, observer cancellation.Observer, events <-chan struct{}) bool {
	deadline := w.config.Clock.After(w.config.IdleInterval)
	poll := w.config.Clock.NewTicker(w.config.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-deadline:
			return observer.Cancelled()
		case <-events:
			return observer.Cancelled()
		case <-poll.C:
			if observer.Cancelled() {
				return true
			}
		case <-ctx.Done():
			return false
		}
	}
}
