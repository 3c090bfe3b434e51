// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the agent's CBOR configuration.
//
// CBOR is used for on-disk state the agent owns and nobody else reads:
// the enrolled TemplateSet file in particular. Encoding uses Core
// Deterministic Encoding (RFC 8949 §4.2), so the same TemplateSet
// always serializes to the same bytes and re-saving an unchanged set
// is byte-stable.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types persisted only as CBOR use `cbor` struct tags. Decoding skips
// unknown fields so older agents can read files written by newer
// ones, and rejects repeated map keys.
package codec
