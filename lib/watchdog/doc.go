// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog records the monitoring session that is currently
// running, so that the next agent start can tell whether the previous
// session ended cleanly.
//
// The session controller writes a [State] when a session reaches
// Running and clears it when stop() completes. If the agent process
// dies in between (crash, kill -9, power loss), the marker survives
// and [Check] on the next start returns it: the controller logs the
// unclean shutdown and any artifacts written by that session may be
// truncated (the video file in particular is not finalized).
//
// [WriteFileAtomic] is the write primitive underneath: a uniquely named
// sibling, fsync, rename, directory fsync. Readers never observe a partial
// file. The biometric template store uses it for the same reason.
package watchdog
