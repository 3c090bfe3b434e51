// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// State describes the running session.
type State struct {
	// SessionID is the controller-assigned session identifier.
	SessionID string `json:"session_id"`

	// PID of the agent process that owns the session.
	PID int `json:"pid"`

	// StartedAt is when the session reached Running.
	StartedAt time.Time `json:"started_at"`
}

// Write stores state at path as indented JSON, mode 0600.
func Write(path string, state State) error {
	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session marker: %w", err)
	}
	if err := WriteFileAtomic(path, append(encoded, '\n'), 0o600); err != nil {
		return fmt.Errorf("session marker: %w", err)
	}
	return nil
}

// Read loads the marker at path. When there is no marker the error
// satisfies errors.Is(err, fs.ErrNotExist).
func Read(path string) (State, error) {
	var state State
	encoded, err := os.ReadFile(path)
	if err == nil {
		err = json.Unmarshal(encoded, &state)
		if err != nil {
			err = fmt.Errorf("session marker %s is corrupt: %w", path, err)
		}
	}
	return state, err
}

// Age is how long before now the session started.
func (s State) Age(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// Check reports the marker at path if there is one younger than maxAge
// (any age when maxAge is zero). A missing marker is not an error;
// an unreadable or corrupt one is.
func Check(path string, now time.Time, maxAge time.Duration) (State, bool, error) {
	state, err := Read(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return State{}, false, nil
	case err != nil:
		return State{}, false, err
	case maxAge > 0 && state.Age(now) > maxAge:
		return State{}, false, nil
	}
	return state, true, nil
}

// Clear deletes the marker. Clearing an absent marker succeeds.
func Clear(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("removing session marker: %w", err)
}
