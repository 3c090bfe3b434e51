// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 hash.
type Digest [32]byte

// String returns the lowercase hex encoding.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// HashFile streams the file at path through BLAKE3.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()
	return HashReader(file)
}

// HashReader hashes everything read from reader.
func HashReader(reader io.Reader) (Digest, error) {
	hasher := blake3.New()
	if _, err := io.Copy(hasher, reader); err != nil {
		return Digest{}, fmt.Errorf("hashing: %w", err)
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// HashBytes hashes data.
func HashBytes(data []byte) Digest {
	return Digest(blake3.Sum256(data))
}

// ParseDigest parses the output of Digest.String.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}
