// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Placeholders substituted into configured command lines.
const (
	PathPlaceholder  = "{path}"
	InputPlaceholder = "{input}"
)

// expand returns command with every occurrence of placeholder in its
// arguments replaced by value.
func expand(command []string, placeholder, value string) []string {
	expanded := make([]string, len(command))
	for i, argument := range command {
		expanded[i] = strings.ReplaceAll(argument, placeholder, value)
	}
	return expanded
}

// run executes command and returns its stdout. Stderr is included in
// the error on failure.
func run(ctx context.Context, command []string) ([]byte, error) {
	if len(command) == 0 {
		return nil, errors.New("empty command")
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s: %w (stderr: %s)",
			strings.Join(command, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// CommandGrabber captures the screen by running a command that writes
// an image to {path}, such as "import -window root {path}" or
// "scrot {path}".
type CommandGrabber struct {
	Command []string
}

// Capture runs the command and checks that it produced a non-empty
// file.
func (g *CommandGrabber) Capture(ctx context.Context, path string) error {
	if _, err := run(ctx, expand(g.Command, PathPlaceholder, path)); err != nil {
		return fmt.Errorf("capturing screen: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("capturing screen: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("capturing screen: %s is empty", path)
	}
	return nil
}

// Tesseract runs an OCR command that prints the text of {input} to
// stdout, by default "tesseract {input} stdout".
type Tesseract struct {
	Command []string
}

// ExtractText returns the recognized text with trailing whitespace and
// form feeds removed.
func (t *Tesseract) ExtractText(ctx context.Context, imagePath string) (string, error) {
	output, err := run(ctx, expand(t.Command, InputPlaceholder, imagePath))
	if err != nil {
		return "", fmt.Errorf("recognizing %s: %w", imagePath, err)
	}
	return strings.TrimRight(string(output), " \t\r\n\f"), nil
}

// CommandWindowInspector prints the foreground window title, by
// default with "xdotool getactivewindow getwindowname". A command that
// exits 1 with no output means no window has focus, which is how
// xdotool reports it.
type CommandWindowInspector struct {
	Command []string
}

// ActiveWindowTitle implements activity.WindowInspector.
func (w *CommandWindowInspector) ActiveWindowTitle(ctx context.Context) (string, bool, error) {
	output, err := run(ctx, w.Command)
	title := strings.TrimSpace(string(output))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && title == "" {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading active window: %w", err)
	}
	return title, true, nil
}
