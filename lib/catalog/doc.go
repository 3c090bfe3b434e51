// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog records the artifacts the monitoring workers produce.
//
// The catalog is a SQLite database (see [sqlitepool]) with one row per
// artifact file, keyed by path. Workers call [Store.RecordArtifact]
// after writing a file; viewers list and delete through the same
// store. Besides artifacts it keeps:
//
//   - the text extracted from each screenshot, zstd-compressed, along
//     with the source image's digest so text extraction can resume
//     after a restart without redoing work;
//   - a registry of enrolled template sets.
//
// The files themselves stay in the directory [layout]; the catalog
// never copies them. [Store.IndexExisting] rebuilds rows for files
// produced while no catalog was attached.
package catalog
