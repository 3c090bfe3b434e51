// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// recorder captures Fatalf instead of stopping the test.
type recorder struct {
	failed  bool
	message string
}

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second); got != 7 {
		t.Errorf("RequireReceive = %d, want 7", got)
	}

	rec := &recorder{}
	RequireReceive(rec, make(chan int), 10*time.Millisecond, "waiting for %s", "frame")
	if !rec.failed || rec.message != "waiting for frame: nothing received within 10ms" {
		t.Errorf("timeout message = %q", rec.message)
	}

	closed := make(chan int)
	close(closed)
	rec = &recorder{}
	RequireReceive(rec, closed, time.Second)
	if !rec.failed {
		t.Error("RequireReceive accepted a closed channel")
	}
}

func TestRequireSendAndClosed(t *testing.T) {
	ch := make(chan string, 1)
	RequireSend(t, ch, "key", time.Second)
	if got := <-ch; got != "key" {
		t.Errorf("received %q", got)
	}

	rec := &recorder{}
	RequireSend(rec, make(chan string), "key", 10*time.Millisecond)
	if !rec.failed {
		t.Error("RequireSend did not fail without a receiver")
	}

	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second)

	rec = &recorder{}
	RequireClosed(rec, make(chan struct{}), 10*time.Millisecond)
	if !rec.failed {
		t.Error("RequireClosed did not fail on an open channel")
	}
}

func TestEventually(t *testing.T) {
	calls := 0
	Eventually(t, time.Second, func() bool {
		calls++
		return calls == 3
	})
	if calls != 3 {
		t.Errorf("condition evaluated %d times, want 3", calls)
	}
}
