// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/anveksha/lib/clock"
	"github.com/bureau-foundation/anveksha/lib/sqlitepool"
)

// Kind classifies an artifact.
type Kind string

const (
	KindScreenshot  Kind = "screenshot"
	KindVideo       Kind = "video"
	KindKeyLog      Kind = "keylog"
	KindActivityLog Kind = "activity_log"
	KindOCRText     Kind = "ocr_text"
)

// Kinds lists every artifact kind in display order.
var Kinds = []Kind{KindScreenshot, KindVideo, KindKeyLog, KindActivityLog, KindOCRText}

// ParseKind validates a kind name. The empty string is accepted and
// means "all kinds" wherever a filter is taken.
func ParseKind(name string) (Kind, error) {
	if name == "" {
		return "", nil
	}
	for _, kind := range Kinds {
		if string(kind) == name {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown artifact kind %q", name)
}

// ErrNotFound is returned for unknown artifact IDs.
var ErrNotFound = errors.New("artifact not found")

// Artifact is one catalogued file.
type Artifact struct {
	ID        int64
	Kind      Kind
	Path      string
	CreatedAt time.Time

	// Size is the file size when recorded. RecordArtifact fills it
	// from the file when zero.
	Size int64

	// FileDeleted is set by DeleteFiles: the record survives but the
	// file is gone.
	FileDeleted bool
}

// migrations is append-only: released entries never change.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS artifacts (
	id           INTEGER PRIMARY KEY,
	kind         TEXT    NOT NULL,
	path         TEXT    NOT NULL UNIQUE,
	created_at   INTEGER NOT NULL,
	size         INTEGER NOT NULL DEFAULT 0,
	file_deleted INTEGER NOT NULL DEFAULT 0,
	recorded_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS artifacts_kind_created ON artifacts (kind, created_at);

CREATE TABLE IF NOT EXISTS extracted_text (
	artifact_id   INTEGER PRIMARY KEY REFERENCES artifacts (id) ON DELETE CASCADE,
	source_path   TEXT    NOT NULL,
	source_digest TEXT    NOT NULL,
	length        INTEGER NOT NULL,
	body          BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS extracted_text_source ON extracted_text (source_path);
`,
	`
CREATE TABLE IF NOT EXISTS template_sets (
	id          INTEGER PRIMARY KEY,
	path        TEXT    NOT NULL,
	count       INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL
);
`,
}

// Config holds the parameters for Open.
type Config struct {
	// Path is the database file.
	Path string

	// Clock stamps recorded_at. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Store is the catalog. Safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Open opens (creating if needed) the catalog database.
func Open(ctx context.Context, config Config) (*Store, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:       config.Path,
		Logger:     logger,
		Migrations: migrations,
	})
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return &Store{pool: pool, clock: clk, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

// RecordArtifact inserts artifact, or refreshes the existing row with
// the same path. Returns the row ID.
func (s *Store) RecordArtifact(ctx context.Context, artifact Artifact) (id int64, err error) {
	if artifact.Path == "" {
		return 0, fmt.Errorf("recording artifact: empty path")
	}
	if _, err := ParseKind(string(artifact.Kind)); err != nil || artifact.Kind == "" {
		return 0, fmt.Errorf("recording %s: invalid kind %q", artifact.Path, artifact.Kind)
	}
	if artifact.Size == 0 {
		if info, err := os.Stat(artifact.Path); err == nil {
			artifact.Size = info.Size()
		}
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = s.clock.Now()
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO artifacts (kind, path, created_at, size, file_deleted, recorded_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT (path) DO UPDATE SET
			kind = excluded.kind,
			size = excluded.size,
			file_deleted = 0
		RETURNING id`,
		&sqlitex.ExecOptions{
			Args: []any{
				string(artifact.Kind),
				artifact.Path,
				artifact.CreatedAt.UnixNano(),
				artifact.Size,
				s.clock.Now().UnixNano(),
			},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("recording %s: %w", artifact.Path, err)
	}
	s.logger.Debug("artifact recorded", "id", id, "kind", artifact.Kind, "path", artifact.Path)
	return id, nil
}

const artifactColumns = `id, kind, path, created_at, size, file_deleted`

func scanArtifact(stmt *sqlite.Stmt) Artifact {
	return Artifact{
		ID:          stmt.ColumnInt64(0),
		Kind:        Kind(stmt.ColumnText(1)),
		Path:        stmt.ColumnText(2),
		CreatedAt:   time.Unix(0, stmt.ColumnInt64(3)),
		Size:        stmt.ColumnInt64(4),
		FileDeleted: stmt.ColumnInt(5) != 0,
	}
}

// ListArtifacts returns artifacts of kind, newest first. An empty kind
// lists everything.
func (s *Store) ListArtifacts(ctx context.Context, kind Kind) ([]Artifact, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	query := `SELECT ` + artifactColumns + ` FROM artifacts`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var artifacts []Artifact
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			artifacts = append(artifacts, scanArtifact(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	return artifacts, nil
}

// Artifact returns the artifact with id.
func (s *Store) Artifact(ctx context.Context, id int64) (Artifact, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Artifact{}, err
	}
	defer s.pool.Put(conn)
	return lookupArtifact(conn, id)
}

func lookupArtifact(conn *sqlite.Conn, id int64) (Artifact, error) {
	var artifact Artifact
	found := false
	err := sqlitex.Execute(conn, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			artifact = scanArtifact(stmt)
			found = true
			return nil
		},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("looking up artifact %d: %w", id, err)
	}
	if !found {
		return Artifact{}, fmt.Errorf("artifact %d: %w", id, ErrNotFound)
	}
	return artifact, nil
}

// DeleteArtifact removes the row and its file. A file that is already
// gone is not an error.
func (s *Store) DeleteArtifact(ctx context.Context, id int64) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("deleting artifact %d: %w", id, err)
	}
	defer endTransaction(&err)

	artifact, err := lookupArtifact(conn, id)
	if err != nil {
		return err
	}
	if err := removeFile(artifact.Path); err != nil {
		return err
	}
	if err := sqlitex.Execute(conn, `DELETE FROM artifacts WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
	}); err != nil {
		return fmt.Errorf("deleting artifact %d: %w", id, err)
	}
	s.logger.Info("artifact deleted", "id", id, "path", artifact.Path)
	return nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}
