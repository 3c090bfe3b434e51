// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/anveksha/cmd/anveksha/cli"
	"github.com/bureau-foundation/anveksha/lib/catalog"
	"github.com/bureau-foundation/anveksha/lib/layout"
)

func catalogCommand(level *slog.LevelVar) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Summary: "Browse and manage recorded artifacts",
		Description: `Inspect and manage the catalog of recorded files.

The catalog indexes every screenshot, video, log and extracted text
file the agent writes. "index" adds files already on disk that the
catalog does not know about, such as data from an older installation.`,
		Subcommands: []*cli.Command{
			catalogListCommand(level),
			catalogAction(level, "index", "Index files already under the data root", "",
				func(ctx context.Context, store *catalog.Store, root layout.Layout, _ []string, out io.Writer) error {
					added, err := store.IndexExisting(ctx, root)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Indexed %d new files.\n", added)
					return nil
				}),
			catalogAction(level, "delete", "Delete one artifact and its file", "anveksha catalog delete <id>",
				func(ctx context.Context, store *catalog.Store, _ layout.Layout, args []string, out io.Writer) error {
					id, err := parseID(args)
					if err != nil {
						return err
					}
					if err := store.DeleteArtifact(ctx, id); err != nil {
						return err
					}
					fmt.Fprintf(out, "Deleted artifact %d.\n", id)
					return nil
				}),
			catalogAction(level, "purge", "Delete every artifact and its file", "",
				func(ctx context.Context, store *catalog.Store, _ layout.Layout, _ []string, out io.Writer) error {
					count, err := store.PurgeAll(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %d artifacts.\n", count)
					return nil
				}),
			catalogAction(level, "delete-files", "Delete every recorded file, keeping the records", "",
				func(ctx context.Context, store *catalog.Store, _ layout.Layout, _ []string, out io.Writer) error {
					count, err := store.DeleteFiles(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Deleted %d files.\n", count)
					return nil
				}),
			catalogAction(level, "text", "Print the text extracted from a screenshot", "anveksha catalog text <id>",
				func(ctx context.Context, store *catalog.Store, _ layout.Layout, args []string, out io.Writer) error {
					id, err := parseID(args)
					if err != nil {
						return err
					}
					text, err := store.ExtractedText(ctx, id)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, text)
					return nil
				}),
		},
	}
}

type catalogFunc func(ctx context.Context, store *catalog.Store, root layout.Layout, args []string, out io.Writer) error

// catalogAction wraps an operation on the opened catalog as a
// command.
func catalogAction(level *slog.LevelVar, name, summary, usage string, action catalogFunc) *cli.Command {
	var params commonParams
	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
		Flags:   func() *pflag.FlagSet { return newFlagSet(name, &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return withCatalog(ctx, &params, level, logger, func(store *catalog.Store, root layout.Layout) error {
				return action(ctx, store, root, args, os.Stdout)
			})
		},
	}
}

func withCatalog(ctx context.Context, params *commonParams, level *slog.LevelVar, logger *slog.Logger,
	body func(*catalog.Store, layout.Layout) error) error {
	cfg, err := params.load(level)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	store, err := catalog.Open(ctx, catalog.Config{Path: cfg.Catalog, Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close()
	return body(store, layout.New(cfg.Root))
}

func catalogListCommand(level *slog.LevelVar) *cli.Command {
	var params commonParams
	var kindName string
	var asJSON bool
	return &cli.Command{
		Name:    "list",
		Summary: "List artifacts, newest first",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("list", &params)
			flagSet.StringVar(&kindName, "kind", "", "only this kind: screenshot, video, keylog, activity_log, ocr_text")
			flagSet.BoolVar(&asJSON, "json", false, "output as JSON")
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Videos only", Command: "anveksha catalog list --kind video"},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			kind, err := catalog.ParseKind(kindName)
			if err != nil {
				return err
			}
			return withCatalog(ctx, &params, level, logger, func(store *catalog.Store, _ layout.Layout) error {
				artifacts, err := store.ListArtifacts(ctx, kind)
				if err != nil {
					return err
				}
				if asJSON {
					return cli.WriteJSON(os.Stdout, artifacts)
				}
				printArtifacts(os.Stdout, artifacts, time.Now())
				return nil
			})
		},
	}
}

func printArtifacts(out io.Writer, artifacts []catalog.Artifact, now time.Time) {
	if len(artifacts) == 0 {
		fmt.Fprintln(out, "No artifacts.")
		return
	}
	tw := tabwriter.NewWriter(out, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tCREATED\tSIZE\tPATH")
	for _, artifact := range artifacts {
		size := humanize.Bytes(uint64(artifact.Size))
		if artifact.FileDeleted {
			size = "deleted"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			artifact.ID, artifact.Kind,
			humanize.RelTime(artifact.CreatedAt, now, "ago", "from now"),
			size, artifact.Path)
	}
	tw.Flush()
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one artifact ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid artifact ID %q", args[0])
	}
	return id, nil
}
