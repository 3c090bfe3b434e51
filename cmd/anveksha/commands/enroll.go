// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/anveksha/cmd/anveksha/cli"
	"github.com/bureau-foundation/anveksha/lib/instancelock"
)

func enrollCommand(level *slog.LevelVar) *cli.Command {
	var params commonParams
	return &cli.Command{
		Name:    "enroll",
		Summary: "Capture and store the operator's face templates",
		Description: `Capture face templates from the camera and replace the stored set.
The operator should face the camera until the command finishes.
Enrollment cannot run while a session holds the camera.`,
		Flags: func() *pflag.FlagSet { return newFlagSet("enroll", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			cfg, err := params.load(level)
			if err != nil {
				return err
			}
			lock, err := instancelock.Acquire(cfg.Lock)
			if err != nil {
				return err
			}
			defer lock.Release()

			agent, err := openAgent(ctx, cfg, false, logger)
			if err != nil {
				return err
			}
			defer agent.Close()

			result, err := agent.controller.Enroll(ctx)
			if err != nil {
				return fmt.Errorf("enrolling: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Enrolled %d templates from %d frames into %s.\n",
				result.Templates, result.Frames, cfg.Templates)
			return nil
		},
	}
}
