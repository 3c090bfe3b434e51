// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package biometric holds the operator's enrolled face samples.
//
// A [Template] is one face sample: the detected face region cropped
// from a grayscale frame, resized to [PatchSize]×[PatchSize], flattened
// row-major and scaled to [0,1]. A [TemplateSet] is every template
// captured by one enrollment. Sets are immutable once saved and are
// replaced wholesale when the operator re-enrolls; there is never a
// partial update.
//
// [FileStore] keeps the set as a single CBOR object at a well-known
// path. The float payload is byte-grouped and LZ4-compressed (neighbor
// pixels in a face patch have similar exponents, so the high bytes
// compress well) and the file is replaced atomically, so a reader
// racing with re-enrollment sees either the old set or the new one.
//
// This is a lightweight similarity proxy, not a biometric security
// primitive; see the accessgate package for how it is matched.
package biometric
