// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is what the agent's loops need from time: the current instant,
// one-shot waits, and fixed cadences.
type Clock interface {
	Now() time.Time

	// After delivers one value once d has passed. A non-positive d is
	// delivered without waiting.
	After(d time.Duration) <-chan time.Time

	// NewTicker panics when d is not positive.
	NewTicker(d time.Duration) *Ticker

	Sleep(d time.Duration)
}

// Ticker sends on C once per interval. C holds a single pending tick;
// ticks that arrive while it is full are discarded.
type Ticker struct {
	C <-chan time.Time

	control tickerControl
}

type tickerControl interface {
	stop()
	reset(d time.Duration)
}

// Stop halts the ticker without closing C.
func (t *Ticker) Stop() { t.control.stop() }

// Reset sets a new interval, counted from the current instant.
func (t *Ticker) Reset(d time.Duration) { t.control.reset(d) }

// Real returns the wall clock.
func Real() Clock { return wall{} }

type wall struct{}

func (wall) Now() time.Time { return time.Now() }

func (wall) After(d time.Duration) <-chan time.Time {
	if d <= 0 {
		ready := make(chan time.Time, 1)
		ready <- time.Now()
		return ready
	}
	return time.NewTimer(d).C
}

func (wall) NewTicker(d time.Duration) *Ticker {
	inner := time.NewTicker(d)
	return &Ticker{C: inner.C, control: wallTicker{inner}}
}

func (wall) Sleep(d time.Duration) { time.Sleep(d) }

type wallTicker struct{ inner *time.Ticker }

func (w wallTicker) stop()                 { w.inner.Stop() }
func (w wallTicker) reset(d time.Duration) { w.inner.Reset(d) }
