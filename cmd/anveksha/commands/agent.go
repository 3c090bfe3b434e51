// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/anveksha/lib/accessgate"
	"github.com/bureau-foundation/anveksha/lib/biometric"
	"github.com/bureau-foundation/anveksha/lib/camera"
	"github.com/bureau-foundation/anveksha/lib/cancellation"
	"github.com/bureau-foundation/anveksha/lib/catalog"
	"github.com/bureau-foundation/anveksha/lib/clock"
	"github.com/bureau-foundation/anveksha/lib/config"
	"github.com/bureau-foundation/anveksha/lib/layout"
	"github.com/bureau-foundation/anveksha/lib/platform"
	"github.com/bureau-foundation/anveksha/lib/session"
	"github.com/bureau-foundation/anveksha/lib/worker"
	"github.com/bureau-foundation/anveksha/lib/worker/activity"
	"github.com/bureau-foundation/anveksha/lib/worker/keylog"
	"github.com/bureau-foundation/anveksha/lib/worker/screenshot"
	"github.com/bureau-foundation/anveksha/lib/worker/textextract"
	"github.com/bureau-foundation/anveksha/lib/worker/video"
)

// devices are the capture primitives behind the workers. Production
// uses lib/platform; tests substitute fakes.
type devices struct {
	Grabber    screenshot.Grabber
	Encoder    video.Encoder
	Keys       keylog.KeySource
	Windows    activity.WindowInspector
	Processes  activity.ProcessLister
	Recognizer textextract.Recognizer
}

// platformDevices builds devices from configuration. The key source
// needs a terminal; without one the key logger is left out with a
// warning.
func platformDevices(cfg *config.Config, logger *slog.Logger) devices {
	result := devices{
		Grabber:    &platform.CommandGrabber{Command: cfg.Screenshot.Command},
		Encoder:    &platform.FFmpegEncoder{Binary: cfg.Camera.FFmpeg},
		Windows:    &platform.CommandWindowInspector{Command: cfg.Activity.WindowCommand},
		Processes:  &platform.ProcFS{},
		Recognizer: &platform.Tesseract{Command: cfg.TextExtract.Command},
	}
	if cfg.KeyLog.Enabled {
		keys, err := platform.NewTerminalKeys(os.Stdin)
		if err != nil {
			logger.Warn("key logging disabled", "error", err)
		} else {
			result.Keys = keys
		}
	}
	return result
}

// buildWorkers creates the enabled workers in a fixed order.
func buildWorkers(cfg *config.Config, root layout.Layout, store *catalog.Store, lease *camera.Lease,
	token *cancellation.Token, dev devices, clk clock.Clock, logger *slog.Logger) ([]worker.Worker, error) {

	var recorder worker.Recorder = worker.Discard
	var textStore textextract.TextStore
	if store != nil {
		recorder = store
		textStore = store
	}

	var workers []worker.Worker
	add := func(w worker.Worker, err error) error {
		if err != nil {
			return err
		}
		workers = append(workers, w)
		return nil
	}

	if cfg.Screenshot.Enabled {
		if err := add(screenshot.New(screenshot.Config{
			Directory: root.Screenshots,
			Grabber:   dev.Grabber,
			Recorder:  recorder,
			Clock:     clk,
			Logger:    logger.With("worker", screenshot.Name),
			Interval:  cfg.Screenshot.Interval,
		})); err != nil {
			return nil, err
		}
	}
	if cfg.Video.Enabled {
		if err := add(video.New(video.Config{
			Directory:  root.Videos,
			Camera:     lease,
			Encoder:    dev.Encoder,
			Recorder:   recorder,
			Clock:      clk,
			Logger:     logger.With("worker", video.Name),
			Width:      cfg.Camera.Width,
			Height:     cfg.Camera.Height,
			FPS:        cfg.Video.FPS,
			RetryDelay: cfg.Video.RetryDelay,
		})); err != nil {
			return nil, err
		}
	}
	if cfg.KeyLog.Enabled && dev.Keys != nil {
		if err := add(keylog.New(keylog.Config{
			Path:     root.KeyLogPath(),
			Source:   dev.Keys,
			Trigger:  token,
			Recorder: recorder,
			Clock:    clk,
			Logger:   logger.With("worker", keylog.Name),
		})); err != nil {
			return nil, err
		}
	}
	if cfg.Activity.Enabled {
		if err := add(activity.New(activity.Config{
			Path:       root.ActivityLogPath(),
			Windows:    dev.Windows,
			Processes:  dev.Processes,
			Classifier: activity.NewClassifier(activityRules(cfg.Activity.Rules)),
			Recorder:   recorder,
			Clock:      clk,
			Logger:     logger.With("worker", activity.Name),
			Interval:   cfg.Activity.Interval,
		})); err != nil {
			return nil, err
		}
	}
	if cfg.TextExtract.Enabled {
		if err := add(textextract.New(textextract.Config{
			Sources:      root.Screenshots,
			Output:       root.Logs,
			Recognizer:   dev.Recognizer,
			Store:        textStore,
			Watch:        cfg.TextExtract.Watch,
			Clock:        clk,
			Logger:       logger.With("worker", textextract.Name),
			IdleInterval: cfg.TextExtract.IdleInterval,
		})); err != nil {
			return nil, err
		}
	}
	return workers, nil
}

// activityRules converts configured rules; none means the built-in
// list.
func activityRules(configured []config.ActivityRule) []activity.Rule {
	if len(configured) == 0 {
		return nil
	}
	rules := make([]activity.Rule, len(configured))
	for i, rule := range configured {
		rules[i] = activity.Rule{
			Processes:     rule.Processes,
			TitleContains: rule.TitleContains,
			Label:         rule.Label,
		}
	}
	return rules
}

// agent is the wired set of components behind run and enroll.
type agent struct {
	layout     layout.Layout
	catalog    *catalog.Store
	controller *session.Controller
}

// openAgent wires every component. Workers are only built when
// withWorkers is set; enrollment needs none of them.
func openAgent(ctx context.Context, cfg *config.Config, withWorkers bool, logger *slog.Logger) (*agent, error) {
	root := layout.New(cfg.Root)
	if err := root.Ensure(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := catalog.Open(ctx, catalog.Config{Path: cfg.Catalog, Logger: logger.With("component", "catalog")})
	if err != nil {
		return nil, err
	}
	a := &agent{layout: root, catalog: store}

	detector, err := platform.LoadPigoDetector(cfg.Gate.Cascade)
	if err != nil {
		a.Close()
		return nil, err
	}
	gate, err := accessgate.New(accessgate.Config{
		Store:        biometric.NewFileStore(cfg.Templates),
		Detector:     detector,
		Logger:       logger.With("component", "accessgate"),
		EnrollFrames: cfg.Gate.EnrollFrames,
		VerifyFrames: cfg.Gate.VerifyFrames,
		Threshold:    cfg.Gate.Threshold,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	lease := camera.NewLease(&platform.FFmpegCamera{
		Binary: cfg.Camera.FFmpeg,
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
	})
	token := cancellation.New()

	var workers []worker.Worker
	if withWorkers {
		dev := platformDevices(cfg, logger)
		workers, err = buildWorkers(cfg, root, store, lease, token, dev, clock.Real(), logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("building workers: %w", err)
		}
	}

	a.controller, err = session.New(session.Config{
		Gate:         gate,
		Camera:       lease,
		Token:        token,
		Workers:      workers,
		Logger:       logger.With("component", "session"),
		StopTimeout:  cfg.Session.StopTimeout,
		PollInterval: cfg.Session.PollInterval,
		MarkerPath:   cfg.Marker,
		Templates:    store,
		TemplatePath: cfg.Templates,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the catalog. The key logger restores the terminal
// itself when each session ends.
func (a *agent) Close() error {
	if a.catalog == nil {
		return nil
	}
	return a.catalog.Close()
}
