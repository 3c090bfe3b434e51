// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)

	tests := []struct {
		name string
		ok   bool
	}{
		{"screenshot-2026-03-14_09-26-53.png", true},
		{"Recording_2026-03-14_09-26-53.avi", true},
		{"ocr_log_2026-03-14_09-26-53-2.txt", true},
		{"/some/dir/screenshot-2026-03-14_09-26-53.png", true},
		{"log.txt", false},
		{"screenshot-2026-13-14_09-26-53.png", false},
	}
	for _, test := range tests {
		got, ok := ParseTimestamp(test.name)
		if ok != test.ok {
			t.Errorf("ParseTimestamp(%q) ok = %v, want %v", test.name, ok, test.ok)
			continue
		}
		if ok && !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", test.name, got, want)
		}
	}
}

func TestFormatTimestampRoundTrip(t *testing.T) {
	moment := time.Date(2026, 10, 17, 23, 5, 7, 0, time.Local)
	name := ScreenshotPrefix + FormatTimestamp(moment) + ".png"
	if name != "screenshot-2026-10-17_23-05-07.png" {
		t.Fatalf("name = %q", name)
	}
	parsed, ok := ParseTimestamp(name)
	if !ok || !parsed.Equal(moment) {
		t.Errorf("ParseTimestamp(%q) = %v, %v; want %v", name, parsed, ok, moment)
	}
}

func TestUniquePath(t *testing.T) {
	directory := t.TempDir()
	moment := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)

	first := UniquePath(directory, TextPrefix, moment, ".txt")
	if filepath.Base(first) != "ocr_log_2026-01-02_03-04-05.txt" {
		t.Fatalf("first = %q", first)
	}
	if err := os.WriteFile(first, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	second := UniquePath(directory, TextPrefix, moment, ".txt")
	if filepath.Base(second) != "ocr_log_2026-01-02_03-04-05-1.txt" {
		t.Errorf("second = %q", second)
	}
}

func TestEnsure(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "Anveksha_Data"))
	if err := l.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, directory := range []string{l.Screenshots, l.Videos, l.Logs} {
		info, err := os.Stat(directory)
		if err != nil || !info.IsDir() {
			t.Errorf("%s missing after Ensure: %v", directory, err)
		}
	}
}

func TestClassifyLog(t *testing.T) {
	tests := map[string]string{
		"ocr_log_2026-01-02_03-04-05.txt": LogOCR,
		"ProcessLog.txt":                  LogProcess,
		"log.txt":                         LogGeneral,
	}
	for name, want := range tests {
		if got := ClassifyLog(name); got != want {
			t.Errorf("ClassifyLog(%q) = %q, want %q", name, got, want)
		}
	}
}
