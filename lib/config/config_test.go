// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "anveksha.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Setenv("HOME", "/home/operator")
	cfg := Default()
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Root != "/home/operator/.local/share/anveksha" {
		t.Errorf("Root = %q", cfg.Root)
	}
	if cfg.Catalog != "/home/operator/.local/share/anveksha/catalog.db" {
		t.Errorf("Catalog = %q", cfg.Catalog)
	}
	if cfg.Gate.Threshold != 30 || cfg.Gate.EnrollFrames != 10 || cfg.Gate.VerifyFrames != 20 {
		t.Errorf("Gate = %+v", cfg.Gate)
	}
	if cfg.Session.StopTimeout != 2*time.Second {
		t.Errorf("StopTimeout = %s, want 2s", cfg.Session.StopTimeout)
	}
}

func TestLoadFileOverridesOnlyGivenKeys(t *testing.T) {
	t.Setenv("HOME", "/home/operator")
	path := writeConfig(t, `
root: /srv/monitor
gate:
  threshold: 12.5
screenshot:
  interval: 30s
video:
  enabled: false
activity:
  rules:
    - processes: [code]
      label: "Editing: {title}"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Root != "/srv/monitor" {
		t.Errorf("Root = %q", cfg.Root)
	}
	if cfg.Templates != "/srv/monitor/face_templates.cbor" {
		t.Errorf("Templates = %q, want it to follow root", cfg.Templates)
	}
	if cfg.Gate.Threshold != 12.5 || cfg.Gate.VerifyFrames != 20 {
		t.Errorf("Gate = %+v", cfg.Gate)
	}
	if cfg.Screenshot.Interval != 30*time.Second || !cfg.Screenshot.Enabled {
		t.Errorf("Screenshot = %+v", cfg.Screenshot)
	}
	if cfg.Video.Enabled {
		t.Error("video still enabled")
	}
	if len(cfg.Activity.Rules) != 1 || cfg.Activity.Rules[0].Label != "Editing: {title}" {
		t.Errorf("Rules = %+v", cfg.Activity.Rules)
	}
}

func TestLoadFileExpandsPaths(t *testing.T) {
	t.Setenv("HOME", "/home/operator")
	t.Setenv("CAPTURE_DIR", "")
	path := writeConfig(t, `
root: ~/monitor
catalog: ${CAPTURE_DIR:-/var/lib/anveksha}/catalog.db
gate:
  cascade: ${ANVEKSHA_ROOT}/cascades/facefinder
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Root != "/home/operator/monitor" {
		t.Errorf("Root = %q", cfg.Root)
	}
	if cfg.Catalog != "/var/lib/anveksha/catalog.db" {
		t.Errorf("Catalog = %q", cfg.Catalog)
	}
	if cfg.Gate.Cascade != "/home/operator/monitor/cascades/facefinder" {
		t.Errorf("Cascade = %q", cfg.Gate.Cascade)
	}
}

func TestLoadFileRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"zero frames", "gate:\n  verify_frames: 0\n", "gate.verify_frames"},
		{"negative interval", "screenshot:\n  interval: -1s\n", "screenshot.interval"},
		{"missing placeholder", "screenshot:\n  command: [scrot]\n", "screenshot.command must contain {path}"},
		{"empty ocr command", "text_extract:\n  command: []\n", "text_extract.command is required"},
		{"rule without label", "activity:\n  rules:\n    - processes: [vim]\n", "activity.rules[0].label"},
		{"bad threshold", "gate:\n  threshold: 0\n", "gate.threshold"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, test.content))
			if err == nil {
				t.Fatal("LoadFile accepted invalid config")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %v, want mention of %q", err, test.want)
			}
		})
	}
}

func TestDisabledWorkerSkipsCommandCheck(t *testing.T) {
	path := writeConfig(t, "text_extract:\n  enabled: false\n  command: []\n")
	if _, err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile of a missing file succeeded")
	}
	if _, err := LoadFile(writeConfig(t, "gate: [not, a, map]\n")); err == nil {
		t.Error("LoadFile of malformed YAML succeeded")
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv("HOME", "/home/operator")
	fromFlag := writeConfig(t, "root: /from/flag\n")
	fromEnv := writeConfig(t, "root: /from/env\n")

	cfg, err := Resolve(fromFlag, Environment{ConfigPath: fromEnv})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Root != "/from/flag" {
		t.Errorf("flag: Root = %q", cfg.Root)
	}

	cfg, err = Resolve("", Environment{ConfigPath: fromEnv})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Root != "/from/env" {
		t.Errorf("env: Root = %q", cfg.Root)
	}

	cfg, err = Resolve("", Environment{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Root != "/home/operator/.local/share/anveksha" {
		t.Errorf("default: Root = %q", cfg.Root)
	}
}

func TestReadEnvironment(t *testing.T) {
	t.Setenv("ANVEKSHA_CONFIG", "/etc/anveksha.yaml")
	t.Setenv("ANVEKSHA_DEBUG", "true")
	environment, err := ReadEnvironment()
	if err != nil {
		t.Fatalf("ReadEnvironment: %v", err)
	}
	if environment.ConfigPath != "/etc/anveksha.yaml" || !environment.Debug {
		t.Errorf("environment = %+v", environment)
	}

	t.Setenv("ANVEKSHA_DEBUG", "sometimes")
	if _, err := ReadEnvironment(); err == nil {
		t.Error("ReadEnvironment accepted a non-boolean debug flag")
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Catalog = filepath.Join(root, "db", "catalog.db")
	cfg.Templates = filepath.Join(root, "keys", "templates.cbor")
	cfg.Marker = filepath.Join(root, "run", "session.json")
	cfg.Lock = filepath.Join(root, "run", "anveksha.lock")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, directory := range []string{"db", "keys", "run"} {
		if info, err := os.Stat(filepath.Join(root, directory)); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", directory, err)
		}
	}
}
