// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// zstd encoders and decoders are safe for concurrent EncodeAll and
// DecodeAll and expensive to build, so one of each is shared.
var (
	textEncoder *zstd.Encoder
	textDecoder *zstd.Decoder
)

func init() {
	var err error
	textEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("catalog: zstd encoder initialization failed: " + err.Error())
	}
	textDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("catalog: zstd decoder initialization failed: " + err.Error())
	}
}

// RecordExtractedText stores text extracted from sourcePath against
// the OCR artifact artifactID. sourceDigest identifies the source
// contents (see ProcessedSources).
func (s *Store) RecordExtractedText(ctx context.Context, artifactID int64, sourcePath, sourceDigest, text string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	body := textEncoder.EncodeAll([]byte(text), nil)
	err = sqlitex.Execute(conn, `
		INSERT INTO extracted_text (artifact_id, source_path, source_digest, length, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (artifact_id) DO UPDATE SET
			source_path = excluded.source_path,
			source_digest = excluded.source_digest,
			length = excluded.length,
			body = excluded.body`,
		&sqlitex.ExecOptions{
			Args: []any{artifactID, sourcePath, sourceDigest, len(text), body},
		})
	if err != nil {
		return fmt.Errorf("recording text for artifact %d: %w", artifactID, err)
	}
	return nil
}

// ExtractedText returns the text stored for artifactID.
func (s *Store) ExtractedText(ctx context.Context, artifactID int64) (string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", err
	}
	defer s.pool.Put(conn)

	var body []byte
	length := 0
	found := false
	err = sqlitex.Execute(conn, `SELECT length, body FROM extracted_text WHERE artifact_id = ?`, &sqlitex.ExecOptions{
		Args: []any{artifactID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			length = stmt.ColumnInt(0)
			body = make([]byte, stmt.ColumnLen(1))
			stmt.ColumnBytes(1, body)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", fmt.Errorf("reading text for artifact %d: %w", artifactID, err)
	}
	if !found {
		return "", fmt.Errorf("text for artifact %d: %w", artifactID, ErrNotFound)
	}

	text, err := textDecoder.DecodeAll(body, make([]byte, 0, length))
	if err != nil {
		return "", fmt.Errorf("zstd decompress: %w", err)
	}
	if len(text) != length {
		return "", fmt.Errorf("text for artifact %d: got %d bytes, want %d", artifactID, len(text), length)
	}
	return string(text), nil
}

// ProcessedSources maps every screenshot path that has extracted text
// to the digest it had when last processed. Rows whose OCR artifact was
// deleted are gone with it, so deleting an OCR artifact makes its
// source eligible again.
func (s *Store) ProcessedSources(ctx context.Context) (map[string]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	sources := make(map[string]string)
	err = sqlitex.Execute(conn, `SELECT source_path, source_digest FROM extracted_text ORDER BY artifact_id`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			sources[stmt.ColumnText(0)] = stmt.ColumnText(1)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reading processed sources: %w", err)
	}
	return sources, nil
}
