// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets the monitoring workers run against injected time.
//
// Every worker loop in the agent is a cadence: a screenshot every five
// seconds, an activity poll every five seconds, a cancellation check
// every second. Code that waits takes a [Clock] instead of calling the
// time package, so tests can drive those cadences without sleeping.
//
// In production, pass [Real]. In tests:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
//	go worker.Run(ctx, token)
//	fake.WaitForTimers(2)          // capture ticker + cancellation poll
//	fake.Advance(5 * time.Second)  // one screenshot tick
//
// [FakeClock.WaitForTimers] blocks until the goroutine under test has
// registered its sleeps or tickers, which removes the race between
// timer registration and Advance.
package clock
