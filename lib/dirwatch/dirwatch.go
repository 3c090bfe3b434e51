// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dirwatch wakes a polling loop when files land in a directory.
//
// A Watcher delivers coalesced notifications: however many files
// arrive between two receives, the receiver sees one value. It carries
// no file names; the receiver re-scans the directory. Where inotify is
// not available Events returns a nil channel, which blocks forever in
// a select, leaving the caller's own interval as the only trigger.
package dirwatch

// Watcher notifies on new files in one directory.
type Watcher struct {
	events chan struct{}
	stop   func()
}

// Events returns the notification channel. Nil when the platform has
// no directory notifications.
func (w *Watcher) Events() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.events
}

// Close stops watching. Safe to call more than once, and on nil.
func (w *Watcher) Close() {
	if w == nil || w.stop == nil {
		return
	}
	w.stop()
}

func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
