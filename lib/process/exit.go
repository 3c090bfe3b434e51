// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run(), where the logger may not exist.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// ShutdownSignals are the signals that end a monitoring session.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SignalContext returns a context cancelled on the first shutdown
// signal. Calling stop restores default handling, after which a
// further signal kills the process.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, ShutdownSignals...)
}
