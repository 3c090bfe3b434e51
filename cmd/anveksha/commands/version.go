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
	"github.com/bureau-foundation/anveksha/lib/version"
)

func versionCommand() *cli.Command {
	var digest bool
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.BoolVar(&digest, "digest", false, "also print the BLAKE3 digest of this binary")
			return flagSet
		},
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			fmt.Fprintf(os.Stdout, "anveksha %s\n", version.Full())
			if digest {
				sum, err := version.SelfDigest()
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "  Digest: %s\n", sum)
			}
			return nil
		},
	}
}
