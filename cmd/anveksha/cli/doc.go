// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the anveksha binary.
//
// A [Command] is a named node with optional [Command.Subcommands], a
// [pflag.FlagSet] factory and a Run function. [Command.Execute]
// routes the first positional argument to a subcommand, parses flags
// and prints structured help. Unknown commands and flags get a "did
// you mean" suggestion when one is within edit distance 3.
//
// [NewCommandLogger] builds the process logger: text on a terminal,
// JSON otherwise.
package cli
