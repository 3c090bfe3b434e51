// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash identifies file contents by BLAKE3 digest.
//
// The text extractor uses it to decide whether a screenshot has already
// been processed: the catalog stores the digest of every source image
// next to the text extracted from it, so a file that was rewritten in
// place is processed again while an untouched file is skipped across
// restarts.
package binhash
