// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cancellation

import (
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/anveksha/lib/clock"
)

// Observer is the read side of a Token.
type Observer interface {
	Cancelled() bool
}

// Trigger is the write side of a Token.
type Trigger interface {
	// Cancel sets the token. It returns true only for the call that
	// performed the false→true transition.
	Cancel() bool
}

// Token is the session-wide cancellation flag. The zero value is an
// uncancelled token.
type Token struct {
	cancelled  atomic.Bool
	generation atomic.Uint64
}

// New returns an uncancelled token.
func New() *Token {
	return &Token{}
}

// Cancelled reports whether the token has been set. Never blocks.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Cancel sets the token. Safe to call from any goroutine, any number
// of times; only the first call in a session returns true.
func (t *Token) Cancel() bool {
	return t.cancelled.CompareAndSwap(false, true)
}

// Reset clears the token for a new session. Only the session
// controller calls this, before any worker of the new session runs.
func (t *Token) Reset() {
	t.generation.Add(1)
	t.cancelled.Store(false)
}

// Generation counts Reset calls, i.e. the number of sessions this
// token has served.
func (t *Token) Generation() uint64 {
	return t.generation.Load()
}

// Wait sleeps for up to total, checking observer every interval.
// Returns true as soon as the observer reports cancellation, false if
// the full duration elapsed without it. A token that is already set
// returns true without sleeping.
//
// The latency between Cancel and Wait returning is bounded by
// interval.
func Wait(c clock.Clock, observer Observer, interval, total time.Duration) bool {
	if observer.Cancelled() {
		return true
	}
	if interval <= 0 || interval > total {
		interval = total
	}
	for remaining := total; remaining > 0; remaining -= interval {
		step := interval
		if step > remaining {
			step = remaining
		}
		c.Sleep(step)
		if observer.Cancelled() {
			return true
		}
	}
	return false
}
