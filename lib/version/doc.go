// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the anveksha binary.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected with
// -ldflags -X and default to "unknown" / "0.1.0-dev" in development
// builds. [Current] fills gaps from the VCS stamp the toolchain
// embeds. [SelfDigest] hashes the running executable so a deployed
// binary can be matched against a release.
package version
