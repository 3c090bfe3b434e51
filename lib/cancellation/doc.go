// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cancellation provides the token that coordinates shutdown
// of a monitoring session.
//
// A [Token] is a single atomic flag shared by reference between the
// session controller and every worker. It starts false, becomes true
// exactly once per session, and only goes back to false when the
// controller begins the next session with [Token.Reset].
//
// Workers receive the token as an [Observer] and poll it at defined
// points in their loops; nothing preempts a worker, so each worker
// documents its own shutdown latency. Write access is split out as
// [Trigger]. Two parties hold it: the controller, and the key-log
// worker, whose escape key ends the entire session. No other worker
// is given a Trigger.
//
// Polling needs no separate signalling channel: atomic stores are
// visible to every subsequent atomic load, and one-second polling is
// the granularity the workers are built around. [Wait] is the shared
// "sleep unless cancelled" primitive built on that.
package cancellation
