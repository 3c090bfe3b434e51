// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by the agent's tests.
//
// [RequireReceive], [RequireSend] and [RequireClosed] bound channel
// operations with a real-time safety valve, and [Eventually] polls a
// condition a goroutine under test is expected to reach. These are the
// only places tests use the wall clock; everything else runs on
// lib/clock's fake.
//
// [WriteFile] and [ReadFile] fail the test instead of returning errors.
package testutil
