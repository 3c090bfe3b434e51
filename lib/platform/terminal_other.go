// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package platform

import (
	"errors"
	"os"

	"github.com/bureau-foundation/anveksha/lib/worker/keylog"
)

// TerminalKeys is only implemented on Linux.
type TerminalKeys struct{}

var errNoTerminalKeys = errors.New("terminal key capture is not supported on this platform")

// NewTerminalKeys always fails on this platform.
func NewTerminalKeys(file *os.File) (*TerminalKeys, error) {
	return nil, errNoTerminalKeys
}

func (t *TerminalKeys) Listen() (keylog.Listener, error) { return nil, errNoTerminalKeys }
