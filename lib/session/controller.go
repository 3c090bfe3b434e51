// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/anveksha/lib/accessgate"
	"github.com/bureau-foundation/anveksha/lib/camera"
	"github.com/bureau-foundation/anveksha/lib/cancellation"
	"github.com/bureau-foundation/anveksha/lib/clock"
	"github.com/bureau-foundation/anveksha/lib/watchdog"
	"github.com/bureau-foundation/anveksha/lib/worker"
)

var (
	// ErrNotIdle is returned by Start and Enroll outside Idle.
	ErrNotIdle = errors.New("session controller is not idle")

	// ErrNotRunning is returned by Stop when no session is running.
	ErrNotRunning = errors.New("no session is running")
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultStopTimeout  = 2 * time.Second
	DefaultPollInterval = time.Second
)

// gateHolder is the camera lease holder name used during Verify and
// Enroll.
const gateHolder = "accessgate"

// Status is the controller state.
type Status int

const (
	Idle Status = iota
	Starting
	Running
	Stopping
	// Enrolling is Idle with the camera taken by an enrollment.
	Enrolling
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Enrolling:
		return "enrolling"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Gate is the access check. *accessgate.Gate implements it.
type Gate interface {
	Verify(ctx context.Context, stream camera.Stream) (accessgate.VerifyResult, error)
	Enroll(ctx context.Context, stream camera.Stream) (accessgate.EnrollResult, error)
}

// TemplateRegistry records enrollments. *catalog.Store implements it.
type TemplateRegistry interface {
	RecordTemplateSet(ctx context.Context, path string, count int, createdAt time.Time) (int64, error)
}

// Config holds the controller's collaborators.
type Config struct {
	Gate   Gate
	Camera *camera.Lease

	// Token is shared with the workers; the key logger holds it as a
	// Trigger.
	Token *cancellation.Token

	Workers []worker.Worker

	Clock  clock.Clock
	Logger *slog.Logger

	// StopTimeout bounds the wait for each worker in Stop.
	StopTimeout time.Duration

	// PollInterval is how often Wait checks the token.
	PollInterval time.Duration

	// MarkerPath, when set, holds a session marker while a session
	// runs. A marker found at construction means the previous agent
	// did not stop cleanly.
	MarkerPath string

	// Templates, when set, is told about every enrollment, with
	// TemplatePath as the recorded location.
	Templates    TemplateRegistry
	TemplatePath string
}

// Session describes the running session.
type Session struct {
	ID        string
	Status    Status
	StartedAt time.Time
}

// StopReport is the outcome of Stop. Every worker appears in exactly
// one of Exited and TimedOut.
type StopReport struct {
	SessionID string
	Exited    []string
	TimedOut  []string

	// Errors holds the non-nil results of workers that exited.
	Errors map[string]error

	Duration time.Duration
}

// Controller runs sessions. Safe for concurrent use; Start, Stop and
// Enroll are serialized by the state machine.
type Controller struct {
	config Config
	logger *slog.Logger

	mu      sync.Mutex
	status  Status
	session Session
	running []*handle
	cancel  context.CancelFunc
}

// handle tracks one launched worker.
type handle struct {
	name string
	done chan struct{}
	err  error
}

// New validates config and returns an idle controller.
func New(config Config) (*Controller, error) {
	if config.Gate == nil {
		return nil, fmt.Errorf("session: Gate is required")
	}
	if config.Camera == nil {
		return nil, fmt.Errorf("session: Camera is required")
	}
	if config.Token == nil {
		return nil, fmt.Errorf("session: Token is required")
	}
	seen := make(map[string]bool)
	for _, w := range config.Workers {
		if seen[w.Name()] {
			return nil, fmt.Errorf("session: duplicate worker name %q", w.Name())
		}
		seen[w.Name()] = true
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultStopTimeout
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	controller := &Controller{config: config, logger: config.Logger}
	controller.checkStaleSession()
	return controller, nil
}

func (c *Controller) checkStaleSession() {
	if c.config.MarkerPath == "" {
		return
	}
	state, found, err := watchdog.Check(c.config.MarkerPath, c.config.Clock.Now(), 0)
	if err != nil {
		c.logger.Warn("unreadable session marker", "path", c.config.MarkerPath, "error", err)
	} else if found {
		c.logger.Warn("previous session did not stop cleanly",
			"session_id", state.SessionID,
			"pid", state.PID,
			"started_at", state.StartedAt,
		)
	}
	if err := watchdog.Clear(c.config.MarkerPath); err != nil {
		c.logger.Warn("clearing stale session marker failed", "error", err)
	}
}

// Status returns the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Session returns the running session, if any.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Running && c.status != Stopping {
		return Session{}, false
	}
	session := c.session
	session.Status = c.status
	return session, true
}

// transition moves from one state to another, failing with err if
// the controller is not in from.
func (c *Controller) transition(from, to Status, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != from {
		return fmt.Errorf("%w (status %s)", err, c.status)
	}
	c.status = to
	return nil
}

func (c *Controller) setStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// Start verifies the operator and launches the workers. Blocks for the
// duration of verification; returns once the workers are launched. On
// any verification failure the controller is back in Idle and no
// worker has run.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.transition(Idle, Starting, ErrNotIdle); err != nil {
		return err
	}

	result, err := c.verify(ctx)
	if err != nil {
		c.setStatus(Idle)
		c.logger.Warn("session not started", "error", err)
		return err
	}
	if result.Enrolled {
		c.registerTemplates(ctx, result.Enrollment.Templates)
	}

	c.config.Token.Reset()
	session := Session{ID: uuid.NewString(), StartedAt: c.config.Clock.Now()}
	if c.config.MarkerPath != "" {
		if err := watchdog.Write(c.config.MarkerPath, watchdog.State{
			SessionID: session.ID,
			PID:       os.Getpid(),
			StartedAt: session.StartedAt,
		}); err != nil {
			c.logger.Warn("writing session marker failed", "error", err)
		}
	}

	// Worker I/O outlives the caller's context; Stop cancels it.
	runContext, cancel := context.WithCancel(context.WithoutCancel(ctx))
	handles := make([]*handle, 0, len(c.config.Workers))
	for _, w := range c.config.Workers {
		h := &handle{name: w.Name(), done: make(chan struct{})}
		handles = append(handles, h)
		go c.runWorker(runContext, w, h)
	}

	c.mu.Lock()
	c.session = session
	c.running = handles
	c.cancel = cancel
	c.status = Running
	c.mu.Unlock()

	c.logger.Info("session started",
		"session_id", session.ID,
		"workers", len(handles),
		"distance", result.BestDistance,
	)
	return nil
}

// verify runs the gate with the camera leased for exactly its
// duration.
func (c *Controller) verify(ctx context.Context) (accessgate.VerifyResult, error) {
	stream, err := c.config.Camera.Acquire(ctx, gateHolder)
	if err != nil {
		return accessgate.VerifyResult{}, fmt.Errorf("%w: %v", accessgate.ErrDeviceUnavailable, err)
	}
	defer c.releaseCamera()
	return c.config.Gate.Verify(ctx, stream)
}

func (c *Controller) releaseCamera() {
	if err := c.config.Camera.Release(gateHolder); err != nil {
		c.logger.Warn("releasing camera after access check failed", "error", err)
	}
}

func (c *Controller) runWorker(ctx context.Context, w worker.Worker, h *handle) {
	defer close(h.done)
	c.logger.Debug("worker started", "worker", h.name)
	h.err = w.Run(ctx, c.config.Token)
	if h.err != nil && !errors.Is(h.err, context.Canceled) {
		c.logger.Error("worker failed", "worker", h.name, "error", h.err)
		return
	}
	c.logger.Debug("worker exited", "worker", h.name)
}

// Stop sets the token and waits for the workers, each for at most
// StopTimeout, then releases shared devices. Returns ErrNotRunning if
// no session is running.
func (c *Controller) Stop() (StopReport, error) {
	if err := c.transition(Running, Stopping, ErrNotRunning); err != nil {
		return StopReport{}, err
	}
	c.mu.Lock()
	handles := c.running
	session := c.session
	cancel := c.cancel
	c.mu.Unlock()

	began := c.config.Clock.Now()
	c.config.Token.Cancel()

	type outcome struct {
		name   string
		exited bool
		err    error
	}
	outcomes := make(chan outcome, len(handles))
	for _, h := range handles {
		go func(h *handle) {
			select {
			case <-h.done:
				outcomes <- outcome{name: h.name, exited: true, err: h.err}
			case <-c.config.Clock.After(c.config.StopTimeout):
				outcomes <- outcome{name: h.name}
			}
		}(h)
	}

	report := StopReport{SessionID: session.ID, Errors: make(map[string]error)}
	for range handles {
		result := <-outcomes
		if !result.exited {
			c.logger.Warn("worker did not stop in time",
				"worker", result.name,
				"timeout", c.config.StopTimeout,
			)
			report.TimedOut = append(report.TimedOut, result.name)
			continue
		}
		report.Exited = append(report.Exited, result.name)
		if result.err != nil {
			report.Errors[result.name] = result.err
		}
	}
	sort.Strings(report.Exited)
	sort.Strings(report.TimedOut)

	cancel()
	if holder, err := c.config.Camera.ForceRelease(); err != nil {
		c.logger.Warn("releasing camera failed", "holder", holder, "error", err)
	} else if holder != "" {
		c.logger.Info("camera released", "holder", holder)
	}
	if c.config.MarkerPath != "" {
		if err := watchdog.Clear(c.config.MarkerPath); err != nil {
			c.logger.Warn("clearing session marker failed", "error", err)
		}
	}
	report.Duration = c.config.Clock.Now().Sub(began)

	c.mu.Lock()
	c.status = Idle
	c.session = Session{}
	c.running = nil
	c.cancel = nil
	c.mu.Unlock()

	c.logger.Info("session stopped",
		"session_id", session.ID,
		"exited", len(report.Exited),
		"timed_out", len(report.TimedOut),
	)
	return report, nil
}

// Enroll captures a new TemplateSet. Only allowed while Idle, since a
// running session's video worker holds the camera.
func (c *Controller) Enroll(ctx context.Context) (accessgate.EnrollResult, error) {
	if err := c.transition(Idle, Enrolling, ErrNotIdle); err != nil {
		return accessgate.EnrollResult{}, err
	}
	defer c.setStatus(Idle)

	stream, err := c.config.Camera.Acquire(ctx, gateHolder)
	if err != nil {
		return accessgate.EnrollResult{}, fmt.Errorf("%w: %v", accessgate.ErrDeviceUnavailable, err)
	}
	result, err := c.config.Gate.Enroll(ctx, stream)
	c.releaseCamera()
	if err != nil {
		return result, err
	}
	c.registerTemplates(ctx, result.Templates)
	return result, nil
}

func (c *Controller) registerTemplates(ctx context.Context, count int) {
	if c.config.Templates == nil {
		return
	}
	if _, err := c.config.Templates.RecordTemplateSet(ctx, c.config.TemplatePath, count, c.config.Clock.Now()); err != nil {
		c.logger.Warn("registering template set failed", "error", err)
	}
}

// Wait blocks until the running session's token is set (for example
// by the escape key) or ctx is done. Returns nil immediately when no
// session is running.
func (c *Controller) Wait(ctx context.Context) error {
	ticker := c.config.Clock.NewTicker(c.config.PollInterval)
	defer ticker.Stop()
	for {
		if c.Status() != Running || c.config.Token.Cancelled() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
