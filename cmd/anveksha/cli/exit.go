// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError ends the process with Code without printing an error
// line; the command has already written its own output. "anveksha
// run" uses it when a session ends with workers that did not stop.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode is checked by main.
func (e *ExitError) ExitCode() int {
	return e.Code
}
