// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"log/slog"

	"github.com/bureau-foundation/anveksha/cmd/anveksha/cli"
)

// Root builds the command tree. level is the logger's level; --debug
// lowers it.
func Root(level *slog.LevelVar) *cli.Command {
	return &cli.Command{
		Name: "anveksha",
		Description: `anveksha: face-gated activity monitoring agent.

Verifies the operator by face, then records screenshots, webcam video,
keystrokes typed in its terminal, the foreground application and the
text visible in screenshots until stopped. Everything is written under
the data root and indexed in a local catalog.`,
		Subcommands: []*cli.Command{
			runCommand(level),
			enrollCommand(level),
			catalogCommand(level),
			versionCommand(),
		},
		Examples: []cli.Example{
			{Description: "Start a session with the default configuration", Command: "anveksha run"},
			{Description: "Re-enroll the operator's face", Command: "anveksha enroll --config ~/.config/anveksha.yaml"},
			{Description: "List recorded videos", Command: "anveksha catalog list --kind video"},
		},
	}
}
