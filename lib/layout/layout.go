// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package layout defines the on-disk contract between the monitoring
// workers and whatever views their output: a root directory with fixed
// subdirectories, and filenames that embed their creation time as
// YYYY-MM-DD_HH-MM-SS so they sort chronologically and carry their
// timestamp without relying on filesystem metadata.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// TimestampFormat is the Go layout for timestamps embedded in
// artifact filenames.
const TimestampFormat = "2006-01-02_15-04-05"

// Subdirectory and file names under the root.
const (
	ScreenshotsDir = "Screenshots"
	VideosDir      = "Webcam_Videos"
	LogsDir        = "Logs"

	KeyLogName      = "log.txt"
	ActivityLogName = "ProcessLog.txt"

	ScreenshotPrefix = "screenshot-"
	VideoPrefix      = "Recording_"
	TextPrefix       = "ocr_log_"
)

// Log classifications used by the catalog when indexing Logs/.
const (
	LogGeneral = "general"
	LogOCR     = "ocr"
	LogProcess = "process"
)

// Layout holds the absolute paths of the monitoring directories.
type Layout struct {
	Root        string
	Screenshots string
	Videos      string
	Logs        string
}

// New returns the layout rooted at root.
func New(root string) Layout {
	return Layout{
		Root:        root,
		Screenshots: filepath.Join(root, ScreenshotsDir),
		Videos:      filepath.Join(root, VideosDir),
		Logs:        filepath.Join(root, LogsDir),
	}
}

// Ensure creates every directory of the layout.
func (l Layout) Ensure() error {
	for _, directory := range []string{l.Root, l.Screenshots, l.Videos, l.Logs} {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}

// KeyLogPath is the append-only keystroke log.
func (l Layout) KeyLogPath() string { return filepath.Join(l.Logs, KeyLogName) }

// ActivityLogPath is the append-only activity log.
func (l Layout) ActivityLogPath() string { return filepath.Join(l.Logs, ActivityLogName) }

// FormatTimestamp renders t in TimestampFormat.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampFormat)
}

var timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}`)

// ParseTimestamp recovers the timestamp embedded in a filename. The
// timestamp is interpreted in the local zone, matching how it was
// written. Returns false when the name carries no valid timestamp.
func ParseTimestamp(name string) (time.Time, bool) {
	match := timestampPattern.FindString(filepath.Base(name))
	if match == "" {
		return time.Time{}, false
	}
	parsed, err := time.ParseInLocation(TimestampFormat, match, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// UniquePath returns directory/prefix+timestamp+extension, appending
// -1, -2, ... before the extension if that name already exists.
// Workers that emit more than one artifact per second never overwrite
// each other.
func UniquePath(directory, prefix string, t time.Time, extension string) string {
	base := prefix + FormatTimestamp(t)
	candidate := filepath.Join(directory, base+extension)
	for suffix := 1; ; suffix++ {
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(directory, fmt.Sprintf("%s-%d%s", base, suffix, extension))
	}
}

// IsImage reports whether name has an extension the text extractor
// and catalog treat as a screenshot.
func IsImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// ClassifyLog returns the catalog log type for a file in Logs/.
func ClassifyLog(name string) string {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case strings.Contains(lower, "ocr"):
		return LogOCR
	case strings.Contains(lower, "process"):
		return LogProcess
	default:
		return LogGeneral
	}
}
