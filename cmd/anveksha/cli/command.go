// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is one node of the command tree. A node with Subcommands
// and no Run is a group.
type Command struct {
	Name string

	// Summary is the one-line text shown in the parent's listing.
	Summary string

	// Description replaces Summary at the top of the command's own help.
	Description string

	// Usage replaces the generated usage line.
	Usage string

	Examples []Example

	// Flags builds a fresh flag set. It is called for parsing and again
	// for help output, so it must not have side effects beyond binding.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run receives the positional arguments that remain after flags.
	Run func(ctx context.Context, args []string, logger *slog.Logger) error

	// Output receives help text. Inherited from the parent, stderr at
	// the root.
	Output io.Writer

	parent *Command
}

// Example is one entry in the Examples section of help.
type Example struct {
	Description string
	Command     string
}

var errHelpShown = errors.New("help shown")

// Execute walks args down the command tree, parses the chosen
// command's flags and calls its Run.
func (c *Command) Execute(ctx context.Context, args []string, logger *slog.Logger) error {
	target, rest, err := c.resolve(args)
	if errors.Is(err, errHelpShown) {
		return nil
	}
	if err != nil {
		return err
	}
	return target.invoke(ctx, rest, logger)
}

// resolve consumes leading subcommand names.
func (c *Command) resolve(args []string) (*Command, []string, error) {
	current := c
	for {
		if len(args) > 0 && isHelpFlag(args[0]) {
			current.PrintHelp(current.output())
			return nil, nil, errHelpShown
		}
		if len(current.Subcommands) == 0 || len(args) == 0 || strings.HasPrefix(args[0], "-") {
			break
		}
		next := current.child(args[0])
		if next == nil {
			if current.Run != nil {
				break
			}
			return nil, nil, current.unknownCommand(args[0])
		}
		next.parent = current
		current, args = next, args[1:]
	}

	if current.Run == nil {
		current.PrintHelp(current.output())
		if len(args) == 0 {
			return nil, nil, fmt.Errorf("%s: subcommand required", current.fullName())
		}
		return nil, nil, fmt.Errorf("%s: subcommand required, got %q", current.fullName(), args[0])
	}
	return current, args, nil
}

func (c *Command) child(name string) *Command {
	for _, sub := range c.Subcommands {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

func (c *Command) unknownCommand(name string) error {
	hint := c.helpHint()
	if suggestion := suggestCommand(name, c.Subcommands); suggestion != "" {
		return fmt.Errorf("unknown command %q (did you mean %q?)%s", name, suggestion, hint)
	}
	return fmt.Errorf("unknown command %q%s", name, hint)
}

func (c *Command) invoke(ctx context.Context, args []string, logger *slog.Logger) error {
	if c.Flags != nil {
		flagSet := c.Flags()
		flagSet.SetOutput(io.Discard)
		if err := flagSet.Parse(args); err != nil {
			return c.flagError(err, args)
		}
		args = flagSet.Args()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return c.Run(ctx, args, logger.With("command", c.commandPath()))
}

func (c *Command) flagError(err error, args []string) error {
	message := err.Error()
	if strings.Contains(message, "unknown") {
		if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
			message += fmt.Sprintf(" (did you mean %s?)", suggestion)
		}
	}
	return fmt.Errorf("%s%s", message, c.helpHint())
}

func (c *Command) helpHint() string {
	return fmt.Sprintf("\n\nRun '%s --help' for usage.", c.fullName())
}

func (c *Command) output() io.Writer {
	for node := c; node != nil; node = node.parent {
		if node.Output != nil {
			return node.Output
		}
	}
	return os.Stderr
}

// PrintHelp writes the command's help text to w.
func (c *Command) PrintHelp(w io.Writer) {
	var help strings.Builder
	name := c.fullName()

	if heading := c.Description; heading != "" {
		help.WriteString(heading + "\n\n")
	} else if c.Summary != "" {
		help.WriteString(c.Summary + "\n\n")
	}

	usage := c.Usage
	if usage == "" {
		usage = name + " [flags]"
		if len(c.Subcommands) > 0 {
			usage = name + " <command> [flags]"
		}
	}
	help.WriteString("Usage:\n  " + usage + "\n")

	if len(c.Subcommands) > 0 {
		help.WriteString("\nCommands:\n")
		table := tabwriter.NewWriter(&help, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(table, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		table.Flush()
	}

	if c.Flags != nil {
		if flags := c.Flags().FlagUsages(); flags != "" {
			help.WriteString("\nFlags:\n" + flags)
		}
	}

	if len(c.Examples) > 0 {
		help.WriteString("\nExamples:\n")
		for i, example := range c.Examples {
			if i > 0 {
				help.WriteString("\n")
			}
			if example.Description != "" {
				help.WriteString("  # " + example.Description + "\n")
			}
			help.WriteString("  " + example.Command + "\n")
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(&help, "\nRun '%s <command> --help' for details on a command.\n", name)
	}
	io.WriteString(w, help.String())
}

// fullName is the space-separated path from the binary name.
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

// commandPath is the slash-separated path below the root, e.g.
// "catalog/list". It tags every log line the command writes.
func (c *Command) commandPath() string {
	var parts []string
	for node := c; node != nil && node.parent != nil; node = node.parent {
		parts = append([]string{node.Name}, parts...)
	}
	if len(parts) == 0 {
		return c.Name
	}
	return strings.Join(parts, "/")
}

func isHelpFlag(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	}
	return false
}
