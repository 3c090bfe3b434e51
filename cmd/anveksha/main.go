// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/bureau-foundation/anveksha/cmd/anveksha/cli"
	"github.com/bureau-foundation/anveksha/cmd/anveksha/commands"
	"github.com/bureau-foundation/anveksha/lib/process"
)

func main() {
	err := run()
	var exit *cli.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exit):
		os.Exit(exit.ExitCode())
	default:
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := process.SignalContext(context.Background())
	defer stop()

	level := new(slog.LevelVar)
	logger := cli.NewCommandLogger(level)
	return commands.Root(level).Execute(ctx, os.Args[1:], logger)
}
