// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at initial. Nothing fires until
// Advance moves time past a waiter's deadline.
func Fake(initial time.Time) *FakeClock {
	fake := &FakeClock{current: initial}
	fake.changed = sync.NewCond(&fake.mu)
	return fake
}

// FakeClock is a Clock for tests. It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*waiter
	changed *sync.Cond
}

// waiter is one pending After, Sleep, or ticker registration.
type waiter struct {
	deadline time.Time
	channel  chan time.Time

	// interval is non-zero for tickers, which are rescheduled at
	// deadline+interval after each firing.
	interval time.Duration
	stopped  bool
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After registers a one-shot waiter. Non-positive durations fire
// immediately without registering.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.addLocked(&waiter{deadline: c.current.Add(d), channel: channel})
	return channel
}

// NewTicker registers a repeating waiter.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	registered := &waiter{deadline: c.current.Add(d), channel: channel, interval: d}
	c.addLocked(registered)

	return &Ticker{C: channel, control: &fakeTicker{clock: c, registered: registered}}
}

type fakeTicker struct {
	clock      *FakeClock
	registered *waiter
}

func (f *fakeTicker) stop() {
	f.clock.mu.Lock()
	defer f.clock.mu.Unlock()
	f.registered.stopped = true
	f.clock.removeLocked(f.registered)
}

func (f *fakeTicker) reset(d time.Duration) {
	f.clock.mu.Lock()
	defer f.clock.mu.Unlock()
	f.registered.interval = d
	f.registered.deadline = f.clock.current.Add(d)
	if f.registered.stopped {
		f.registered.stopped = false
		f.clock.addLocked(f.registered)
	}
}

// Sleep blocks until the clock is advanced by at least d.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// Advance moves time forward by d and fires every waiter whose
// deadline is reached, in deadline order. A ticker spanning several
// intervals fires once per interval; ticks that do not fit in its
// one-slot channel are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current
	c.mu.Unlock()

	for {
		expired := c.collectExpired(target)
		if len(expired) == 0 {
			return
		}
		sort.SliceStable(expired, func(i, j int) bool {
			return expired[i].deadline.Before(expired[j].deadline)
		})
		for _, fired := range expired {
			select {
			case fired.channel <- target:
			default:
			}
		}
	}
}

// WaitForTimers blocks until at least n waiters are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingTimers returns the number of waiters that have not fired
// and have not been stopped.
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) addLocked(w *waiter) {
	c.waiters = append(c.waiters, w)
	c.changed.Broadcast()
}

func (c *FakeClock) removeLocked(target *waiter) {
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if w != target {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, w := range c.waiters {
		if !w.stopped {
			count++
		}
	}
	return count
}

// collectExpired removes due waiters from the pending list and
// reschedules tickers. Returned tickers carry the deadline they fired
// at, not the rescheduled one.
func (c *FakeClock) collectExpired(target time.Time) []*waiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired, remaining []*waiter
	for _, w := range c.waiters {
		if w.stopped {
			continue
		}
		if w.deadline.After(target) {
			remaining = append(remaining, w)
			continue
		}
		if w.interval > 0 {
			expired = append(expired, &waiter{deadline: w.deadline, channel: w.channel})
			w.deadline = w.deadline.Add(w.interval)
			remaining = append(remaining, w)
		} else {
			expired = append(expired, w)
		}
	}
	c.waiters = remaining
	return expired
}
