// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// fataler is the part of testing.TB the channel helpers use. Keeping
// it narrow lets goroutines other than the test's own pass a shim.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value sent on ch. The test fails if
// ch is closed or nothing arrives within timeout.
//
//	path := testutil.RequireReceive(t, captured, time.Second, "first screenshot")
func RequireReceive[T any](t fataler, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var zero T
	select {
	case value, open := <-ch:
		if open {
			return value
		}
		t.Fatalf("%s: channel closed before a value arrived", describe(msgAndArgs))
	case <-deadline.C:
		t.Fatalf("%s: nothing received within %v", describe(msgAndArgs), timeout)
	}
	return zero
}

// RequireSend delivers value on ch, failing the test if no receiver
// takes it within timeout.
func RequireSend[T any](t fataler, ch chan<- T, value T, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case ch <- value:
	case <-deadline.C:
		t.Fatalf("%s: send not accepted within %v", describe(msgAndArgs), timeout)
	}
}

// RequireClosed waits for ch to become readable, normally because it
// was closed.
func RequireClosed(t fataler, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	RequireReceiveOrClose(t, ch, timeout, msgAndArgs...)
}

// RequireReceiveOrClose is RequireClosed for any element type.
func RequireReceiveOrClose[T any](t fataler, ch <-chan T, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-ch:
	case <-deadline.C:
		t.Fatalf("%s: channel still open after %v", describe(msgAndArgs), timeout)
	}
}

// describe renders the optional trailing message arguments. A leading
// string is used as a format when more arguments follow it.
func describe(msgAndArgs []any) string {
	switch {
	case len(msgAndArgs) == 0:
		return "channel wait"
	case len(msgAndArgs) == 1:
		return fmt.Sprint(msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}
