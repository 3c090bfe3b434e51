// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package dirwatch

// Watch returns a Watcher whose Events channel is nil.
func Watch(directory string) (*Watcher, error) {
	return &Watcher{}, nil
}
