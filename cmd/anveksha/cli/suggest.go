// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestionDistance is the furthest a typo may be from a real name
// and still earn a "did you mean".
const maxSuggestionDistance = 3

func suggestCommand(unknown string, commands []*Command) string {
	var names []string
	for _, command := range commands {
		names = append(names, command.Name)
	}
	return nearest(unknown, names)
}

// suggestFlag looks at the first flag in args that flagSet does not
// know and returns the nearest defined long flag, dashes included.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	for _, arg := range args {
		if arg == "--" {
			return ""
		}
		name, isFlag := flagName(arg)
		if !isFlag || known(flagSet, name) {
			continue
		}
		var defined []string
		flagSet.VisitAll(func(f *pflag.Flag) { defined = append(defined, f.Name) })
		if best := nearest(name, defined); best != "" {
			return "--" + best
		}
		return ""
	}
	return ""
}

func flagName(arg string) (string, bool) {
	if !strings.HasPrefix(arg, "-") {
		return "", false
	}
	name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
	return name, true
}

func known(flagSet *pflag.FlagSet, name string) bool {
	if flagSet.Lookup(name) != nil {
		return true
	}
	return len(name) == 1 && flagSet.ShorthandLookup(name) != nil
}

func nearest(unknown string, candidates []string) string {
	best, bestDistance := "", maxSuggestionDistance+1
	for _, candidate := range candidates {
		distance := levenshtein(unknown, candidate)
		if distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	return best
}

// levenshtein counts the insertions, deletions and substitutions that
// turn a into b, over runes.
func levenshtein(a, b string) int {
	source, target := []rune(a), []rune(b)
	row := make([]int, len(target)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(source); i++ {
		diagonal := row[0]
		row[0] = i
		for j := 1; j <= len(target); j++ {
			substitution := diagonal
			if source[i-1] != target[j-1] {
				substitution++
			}
			diagonal = row[j]
			row[j] = min(row[j]+1, row[j-1]+1, substitution)
		}
	}
	return row[len(target)]
}
