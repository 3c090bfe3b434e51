// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the anveksha binary's entrypoint helpers: the
// pre-logger fatal error path and the shutdown signal context.
package process
