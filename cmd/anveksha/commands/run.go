// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/anveksha/cmd/anveksha/cli"
	"github.com/bureau-foundation/anveksha/lib/instancelock"
	"github.com/bureau-foundation/anveksha/lib/session"
)

// exitWorkersTimedOut is returned when a session ended with workers
// that did not stop in time.
const exitWorkersTimedOut = 3

func runCommand(level *slog.LevelVar) *cli.Command {
	var params commonParams
	return &cli.Command{
		Name:    "run",
		Summary: "Verify the operator and run a monitoring session",
		Description: `Verify the operator's face and, on success, run every enabled
capture worker until Esc is pressed in this terminal, or until SIGINT
or SIGTERM arrives.

The first run on a machine without enrolled templates enrolls the face
in front of the camera before verifying it.`,
		Flags: func() *pflag.FlagSet { return newFlagSet("run", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
			}
			cfg, err := params.load(level)
			if err != nil {
				return err
			}

			lock, err := instancelock.Acquire(cfg.Lock)
			if err != nil {
				return err
			}
			defer lock.Release()

			agent, err := openAgent(ctx, cfg, true, logger)
			if err != nil {
				return err
			}
			defer agent.Close()

			return runSession(ctx, agent.controller, os.Stdout)
		},
	}
}

// sessionRunner is the part of the controller a session needs.
type sessionRunner interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context) error
	Stop() (session.StopReport, error)
	Session() (session.Session, bool)
}

// runSession starts a session, waits for the escape key or ctx, then
// stops and prints the report. A started session is always stopped,
// whatever ended the wait.
func runSession(ctx context.Context, controller sessionRunner, out io.Writer) error {
	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	if current, ok := controller.Session(); ok {
		fmt.Fprintf(out, "Session %s started. Press Esc or Ctrl-C to stop.\r\n", current.ID)
	}

	waitErr := controller.Wait(ctx)
	if errors.Is(waitErr, context.Canceled) {
		waitErr = nil
	}

	report, err := controller.Stop()
	if err != nil {
		return errors.Join(waitErr, err)
	}
	printReport(out, report)
	if waitErr != nil {
		return fmt.Errorf("waiting for session: %w", waitErr)
	}
	if len(report.TimedOut) > 0 {
		return &cli.ExitError{Code: exitWorkersTimedOut}
	}
	return nil
}

func printReport(out io.Writer, report session.StopReport) {
	fmt.Fprintf(out, "Session %s stopped after %s.\n", report.SessionID, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  exited:    %s\n", listOrNone(report.Exited))
	if len(report.TimedOut) > 0 {
		fmt.Fprintf(out, "  timed out: %s\n", strings.Join(report.TimedOut, ", "))
	}
	names := make([]string, 0, len(report.Errors))
	for name := range report.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s failed: %v\n", name, report.Errors[name])
	}
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
