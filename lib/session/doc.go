// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session runs monitoring sessions.
//
// A [Controller] owns the state machine
//
//	Idle → Starting → Running → Stopping → Idle
//
// Start verifies the operator through the access gate and, only on
// success, resets the shared cancellation token and launches every
// worker. It returns as soon as the workers are launched. Stop sets the
// token and waits for each worker with its own timeout. A worker that
// overruns is reported and logged but not killed; the controller
// releases the camera and returns to Idle regardless, so a stuck worker
// may keep writing after Stop returns.
//
// The camera is shared by the gate and the video worker. The
// controller holds its lease for the whole of Verify (and Enroll) and
// releases it before launching workers, so the two never have the
// device open at the same time.
//
// The token is shared by reference with the key logger, which sets it
// on the escape key. [Controller.Wait] notices that and returns, after
// which the caller is expected to Stop.
package session
