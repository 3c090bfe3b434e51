// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package video records the webcam for the length of a session.
//
// The worker takes the camera lease once, when it starts, and keeps it
// until it exits. Frames go into one file per capture run: a failed
// frame read closes the current file and the next successful read
// starts a new one, so a camera hiccup never corrupts a recording and
// never ends the session. The token is checked before every frame
// read, which bounds shutdown latency to one read.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/anveksha/lib/camera"
	"github.com/bureau-foundation/anveksha/lib/cancellation"
	"github.com/bureau-foundation/anveksha/lib/catalog"
	"github.com/bureau-foundation/anveksha/lib/clock"
	"github.com/bureau-foundation/anveksha/lib/layout"
	"github.com/bureau-foundation/anveksha/lib/worker"
)

// Name is the worker name. Lease holders are Name plus a per-run
// sequence number, so a run that outlived its session cannot release
// the camera out from under the next one.
const Name = "video"

// Recording defaults.
const (
	DefaultWidth      = 640
	DefaultHeight     = 480
	DefaultFPS        = 20
	DefaultRetryDelay = time.Second
)

// Encoder creates video files.
type Encoder interface {
	Create(path string, width, height, fps int) (Writer, error)
}

// Writer is one open video file.
type Writer interface {
	WriteFrame(frame *image.Gray) error

	// Close finalizes the file.
	Close() error
}

// Config holds the worker's collaborators.
type Config struct {
	// Directory receives the recordings.
	Directory string

	Camera   *camera.Lease
	Encoder  Encoder
	Recorder worker.Recorder
	Clock    clock.Clock
	Logger   *slog.Logger

	Width  int
	Height int
	FPS    int

	// RetryDelay is the pause after a failed read or file creation
	// before trying again.
	RetryDelay time.Duration
}

// Worker is the video recording worker.
type Worker struct {
	config Config
	runs   atomic.Uint64
}

// New returns a video recording worker.
func New(config Config) (*Worker, error) {
	if config.Directory == "" {
		return nil, fmt.Errorf("video: Directory is required")
	}
	if config.Camera == nil {
		return nil, fmt.Errorf("video: Camera is required")
	}
	if config.Encoder == nil {
		return nil, fmt.Errorf("video: Encoder is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	config.Recorder = worker.OrDiscard(config.Recorder)
	if config.Width <= 0 {
		config.Width = DefaultWidth
	}
	if config.Height <= 0 {
		config.Height = DefaultHeight
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	return &Worker{config: config}, nil
}

// Name implements worker.Worker.
func (w *Worker) Name() string { return Name }

// Run records until the token is set. Failing to get the camera ends
// the worker with an error; everything after that is retried.
func (w *Worker) Run(ctx context.Context, observer cancellation.Observer) error {
	if err := os.MkdirAll(w.config.Directory, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", w.config.Directory, err)
	}

	holder := fmt.Sprintf("%s-%d", Name, w.runs.Add(1))
	stream, err := w.config.Camera.Acquire(ctx, holder)
	if err != nil {
		return fmt.Errorf("opening camera: %w", err)
	}
	defer func() {
		if err := w.config.Camera.Release(holder); err != nil {
			w.config.Logger.Warn("releasing camera failed", "error", err)
		}
	}()

	for !observer.Cancelled() {
		failed := w.recordRun(ctx, observer, stream)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if failed {
			cancellation.Wait(w.config.Clock, observer, worker.PollInterval, w.config.RetryDelay)
		}
	}
	return nil
}

// recordRun writes one file, returning true if it ended because of a
// failure rather than cancellation.
func (w *Worker) recordRun(ctx context.Context, observer cancellation.Observer, stream camera.Stream) (failed bool) {
	started := w.config.Clock.Now()
	path := layout.UniquePath(w.config.Directory, layout.VideoPrefix, started, ".avi")

	writer, err := w.config.Encoder.Create(path, w.config.Width, w.config.Height, w.config.FPS)
	if err != nil {
		w.config.Logger.Warn("creating recording failed", "path", path, "error", err)
		return true
	}

	frames := 0
	for !observer.Cancelled() {
		frame, err := stream.ReadFrame(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				w.config.Logger.Warn("frame read failed, rolling over", "path", path, "frames", frames, "error", err)
			}
			failed = true
			break
		}
		if err := writer.WriteFrame(frame); err != nil {
			w.config.Logger.Warn("frame write failed, rolling over", "path", path, "error", err)
			failed = true
			break
		}
		frames++
	}

	if err := writer.Close(); err != nil {
		w.config.Logger.Warn("finalizing recording failed", "path", path, "error", err)
	}
	if frames == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			w.config.Logger.Warn("removing empty recording failed", "path", path, "error", err)
		}
		return failed
	}

	// Record with a context that outlives session cancellation; the
	// file is complete and should be catalogued.
	if _, err := w.config.Recorder.RecordArtifact(context.WithoutCancel(ctx), catalog.Artifact{
		Kind:      catalog.KindVideo,
		Path:      path,
		CreatedAt: started,
	}); err != nil {
		w.config.Logger.Warn("recording video artifact failed", "path", path, "error", err)
	}
	w.config.Logger.Info("recording saved", "path", path, "frames", frames)
	return failed
}
