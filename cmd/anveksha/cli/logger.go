// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger logs to stderr: slog text when stderr is a
// terminal, JSON when it is piped or redirected. level may be a
// *slog.LevelVar so --debug can lower it after construction.
func NewCommandLogger(level slog.Leveler) *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newLogger(w io.Writer, terminal bool, level slog.Leveler) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
