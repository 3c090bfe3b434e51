// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package activity

import "strings"

// TitlePlaceholder in a Rule's Label is replaced with the window title.
const TitlePlaceholder = "{title}"

// Rule matches when any of Processes is running and, if TitleContains
// is set, the window title contains it. Matching is case-insensitive
// substring matching in both cases.
type Rule struct {
	Processes     []string `yaml:"processes"`
	TitleContains string   `yaml:"title_contains"`
	Label         string   `yaml:"label"`
}

// Labels for the two cases no rule covers.
const (
	NoWindowLabel      = "No active window"
	DefaultWindowLabel = "Active Window: " + TitlePlaceholder
)

// Browsers are the processes the browser rules look for.
var Browsers = []string{"chrome", "firefox", "msedge", "opera", "brave"}

// DefaultRules is the priority-ordered rule list.
func DefaultRules() []Rule {
	return []Rule{
		{Processes: Browsers, TitleContains: "youtube", Label: "Watching YouTube: " + TitlePlaceholder},
		{Processes: Browsers, Label: "Browsing: " + TitlePlaceholder},
		{Processes: []string{"whatsapp"}, Label: "Using WhatsApp Desktop"},
		{Processes: []string{"vlc"}, Label: "Watching video on VLC: " + TitlePlaceholder},
		{Processes: []string{"spotify"}, Label: "Listening to music on Spotify: " + TitlePlaceholder},
		{Processes: []string{"word"}, Label: "Working on Microsoft Word: " + TitlePlaceholder},
		{Processes: []string{"excel"}, Label: "Working on Microsoft Excel: " + TitlePlaceholder},
		{Processes: []string{"teams"}, Label: "Working on Microsoft Teams: " + TitlePlaceholder},
	}
}

// Snapshot is one poll's view of the desktop.
type Snapshot struct {
	// Title is the foreground window title; HasWindow is false when
	// there is no foreground window.
	Title     string
	HasWindow bool

	Processes []string
}

// Classifier evaluates rules top to bottom; the first match wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a classifier over rules. Nil means
// DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the activity label for snapshot.
func (c *Classifier) Classify(snapshot Snapshot) string {
	if !snapshot.HasWindow {
		return NoWindowLabel
	}
	title := strings.ToLower(snapshot.Title)
	processes := make([]string, len(snapshot.Processes))
	for i, name := range snapshot.Processes {
		processes[i] = strings.ToLower(name)
	}

	for _, rule := range c.rules {
		if rule.TitleContains != "" && !strings.Contains(title, strings.ToLower(rule.TitleContains)) {
			continue
		}
		if anyRunning(processes, rule.Processes) {
			return render(rule.Label, snapshot.Title)
		}
	}
	return render(DefaultWindowLabel, snapshot.Title)
}

func anyRunning(running, wanted []string) bool {
	for _, want := range wanted {
		want = strings.ToLower(want)
		for _, name := range running {
			if strings.Contains(name, want) {
				return true
			}
		}
	}
	return false
}

func render(label, title string) string {
	return strings.ReplaceAll(label, TitlePlaceholder, title)
}

// Tracker remembers the last emitted label.
type Tracker struct {
	last    string
	emitted bool
}

// Observe returns true when label differs from the previous emitted
// label, and remembers it.
func (t *Tracker) Observe(label string) bool {
	if t.emitted && label == t.last {
		return false
	}
	t.last = label
	t.emitted = true
	return true
}

// Reset forgets the last label, so the next Observe emits.
func (t *Tracker) Reset() { *t = Tracker{} }
