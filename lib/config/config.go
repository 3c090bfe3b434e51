// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the master configuration.
type Config struct {
	// Root is the data directory holding Screenshots, Webcam_Videos
	// and Logs.
	Root string `yaml:"root"`

	// Catalog is the SQLite catalog file.
	Catalog string `yaml:"catalog"`

	// Templates is the enrolled TemplateSet file.
	Templates string `yaml:"templates"`

	// Marker is the running-session marker file.
	Marker string `yaml:"marker"`

	// Lock is the single-instance lock file.
	Lock string `yaml:"lock"`

	Gate        GateConfig        `yaml:"gate"`
	Camera      CameraConfig      `yaml:"camera"`
	Session     SessionConfig     `yaml:"session"`
	Screenshot  ScreenshotConfig  `yaml:"screenshot"`
	Video       VideoConfig       `yaml:"video"`
	KeyLog      KeyLogConfig      `yaml:"keylog"`
	Activity    ActivityConfig    `yaml:"activity"`
	TextExtract TextExtractConfig `yaml:"text_extract"`
}

// GateConfig configures enrollment and verification.
type GateConfig struct {
	EnrollFrames int     `yaml:"enroll_frames"`
	VerifyFrames int     `yaml:"verify_frames"`
	Threshold    float64 `yaml:"threshold"`

	// Cascade is the pigo face cascade file.
	Cascade string `yaml:"cascade"`
}

// CameraConfig configures the capture device.
type CameraConfig struct {
	// Device is passed to ffmpeg's v4l2 input.
	Device string `yaml:"device"`
	FFmpeg string `yaml:"ffmpeg"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// SessionConfig configures the session controller.
type SessionConfig struct {
	StopTimeout  time.Duration `yaml:"stop_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ScreenshotConfig configures the screenshot worker.
type ScreenshotConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`

	// Command captures the screen to the path substituted for {path}.
	Command []string `yaml:"command"`
}

// VideoConfig configures the webcam recorder.
type VideoConfig struct {
	Enabled    bool          `yaml:"enabled"`
	FPS        int           `yaml:"fps"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// KeyLogConfig configures the key logger.
type KeyLogConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ActivityConfig configures the activity tracker.
type ActivityConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`

	// WindowCommand prints the foreground window title.
	WindowCommand []string `yaml:"window_command"`

	// Rules replaces the built-in classification rules when set.
	Rules []ActivityRule `yaml:"rules"`
}

// ActivityRule mirrors the activity classifier's rule so this package
// stays free of worker imports.
type ActivityRule struct {
	Processes     []string `yaml:"processes"`
	TitleContains string   `yaml:"title_contains"`
	Label         string   `yaml:"label"`
}

// TextExtractConfig configures OCR over screenshots.
type TextExtractConfig struct {
	Enabled      bool          `yaml:"enabled"`
	IdleInterval time.Duration `yaml:"idle_interval"`

	// Command runs OCR on the image substituted for {input} and
	// prints the text.
	Command []string `yaml:"command"`

	// Watch wakes the worker on new screenshots through inotify
	// instead of waiting out the idle interval.
	Watch bool `yaml:"watch"`
}

// RootVariable names the configured root in path expansion.
const RootVariable = "ANVEKSHA_ROOT"

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Root:      "${HOME}/.local/share/anveksha",
		Catalog:   "${ANVEKSHA_ROOT}/catalog.db",
		Templates: "${ANVEKSHA_ROOT}/face_templates.cbor",
		Marker:    "${ANVEKSHA_ROOT}/session.json",
		Lock:      "${ANVEKSHA_ROOT}/anveksha.lock",
		Gate: GateConfig{
			EnrollFrames: 10,
			VerifyFrames: 20,
			Threshold:    30,
			Cascade:      "${ANVEKSHA_ROOT}/facefinder",
		},
		Camera: CameraConfig{
			Device: "/dev/video0",
			FFmpeg: "ffmpeg",
			Width:  640,
			Height: 480,
		},
		Session: SessionConfig{
			StopTimeout:  2 * time.Second,
			PollInterval: time.Second,
		},
		Screenshot: ScreenshotConfig{
			Enabled:  true,
			Interval: 5 * time.Second,
			Command:  []string{"import", "-window", "root", "{path}"},
		},
		Video: VideoConfig{
			Enabled:    true,
			FPS:        20,
			RetryDelay: time.Second,
		},
		KeyLog: KeyLogConfig{Enabled: true},
		Activity: ActivityConfig{
			Enabled:       true,
			Interval:      5 * time.Second,
			WindowCommand: []string{"xdotool", "getactivewindow", "getwindowname"},
		},
		TextExtract: TextExtractConfig{
			Enabled:      true,
			IdleInterval: 5 * time.Second,
			Command:      []string{"tesseract", "{input}", "stdout"},
			Watch:        true,
		},
	}
}

// Environment holds the variables the binary reads.
type Environment struct {
	ConfigPath string `env:"ANVEKSHA_CONFIG"`
	Debug      bool   `env:"ANVEKSHA_DEBUG"`
}

// ReadEnvironment parses the process environment.
func ReadEnvironment() (Environment, error) {
	var environment Environment
	if err := env.Parse(&environment); err != nil {
		return Environment{}, fmt.Errorf("parsing environment: %w", err)
	}
	return environment, nil
}

// Resolve picks the configuration source: flagPath when set, else
// ANVEKSHA_CONFIG, else defaults. The result is expanded and
// validated.
func Resolve(flagPath string, environment Environment) (*Config, error) {
	path := flagPath
	if path == "" {
		path = environment.ConfigPath
	}
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads path over the defaults, expands variables and
// validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// expandVariables expands every path field. Root goes first so the
// others can refer to it.
func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	if vars["HOME"] == "" {
		vars["HOME"], _ = os.UserHomeDir()
	}

	c.Root = expandPath(c.Root, vars)
	vars[RootVariable] = c.Root

	for _, field := range []*string{
		&c.Catalog, &c.Templates, &c.Marker, &c.Lock,
		&c.Gate.Cascade, &c.Camera.Device,
	} {
		*field = expandPath(*field, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandPath expands ${VAR}, ${VAR:-default} and a leading ~.
func expandPath(s string, vars map[string]string) string {
	if s == "~" || strings.HasPrefix(s, "~/") {
		s = "${HOME}" + s[1:]
	}
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Root == "" {
		errs = append(errs, errors.New("root is required"))
	}
	for name, value := range map[string]string{
		"catalog":   c.Catalog,
		"templates": c.Templates,
		"marker":    c.Marker,
		"lock":      c.Lock,
	} {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	positiveInts := []struct {
		name  string
		value int
	}{
		{"gate.enroll_frames", c.Gate.EnrollFrames},
		{"gate.verify_frames", c.Gate.VerifyFrames},
		{"camera.width", c.Camera.Width},
		{"camera.height", c.Camera.Height},
		{"video.fps", c.Video.FPS},
	}
	for _, field := range positiveInts {
		if field.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", field.name, field.value))
		}
	}
	if c.Gate.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("gate.threshold must be positive, got %g", c.Gate.Threshold))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"session.stop_timeout", c.Session.StopTimeout},
		{"session.poll_interval", c.Session.PollInterval},
		{"screenshot.interval", c.Screenshot.Interval},
		{"video.retry_delay", c.Video.RetryDelay},
		{"activity.interval", c.Activity.Interval},
		{"text_extract.idle_interval", c.TextExtract.IdleInterval},
	}
	for _, field := range durations {
		if field.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", field.name, field.value))
		}
	}

	if c.Screenshot.Enabled {
		errs = append(errs, checkCommand("screenshot.command", c.Screenshot.Command, "{path}"))
	}
	if c.Activity.Enabled {
		errs = append(errs, checkCommand("activity.window_command", c.Activity.WindowCommand, ""))
		for i, rule := range c.Activity.Rules {
			if rule.Label == "" {
				errs = append(errs, fmt.Errorf("activity.rules[%d].label is required", i))
			}
			if len(rule.Processes) == 0 {
				errs = append(errs, fmt.Errorf("activity.rules[%d].processes is required", i))
			}
		}
	}
	if c.TextExtract.Enabled {
		errs = append(errs, checkCommand("text_extract.command", c.TextExtract.Command, "{input}"))
	}
	if c.Video.Enabled && c.Camera.FFmpeg == "" {
		errs = append(errs, errors.New("camera.ffmpeg is required"))
	}

	return errors.Join(errs...)
}

func checkCommand(name string, command []string, placeholder string) error {
	if len(command) == 0 || command[0] == "" {
		return fmt.Errorf("%s is required", name)
	}
	if placeholder == "" {
		return nil
	}
	for _, argument := range command[1:] {
		if strings.Contains(argument, placeholder) {
			return nil
		}
	}
	return fmt.Errorf("%s must contain %s", name, placeholder)
}

// EnsureDirectories creates the parent directories of the configured
// files.
func (c *Config) EnsureDirectories() error {
	for _, path := range []string{c.Catalog, c.Templates, c.Marker, c.Lock} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
	}
	return nil
}
