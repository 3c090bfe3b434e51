// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the anveksha command tree and wires the
// configured components (catalog, camera, access gate, workers,
// session controller) for the commands that need them.
package commands
