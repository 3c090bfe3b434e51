// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/anveksha/lib/layout"
)

// IndexExisting records every file under root's monitoring directories
// that the catalog does not know yet. Creation time comes from the
// timestamp embedded in the filename, falling back to the file's
// modification time. Returns the number of new rows.
func (s *Store) IndexExisting(ctx context.Context, root layout.Layout) (int, error) {
	known, err := s.knownPaths(ctx)
	if err != nil {
		return 0, err
	}

	var found []Artifact
	scan := func(directory string, classify func(name string) (Kind, bool)) error {
		entries, err := os.ReadDir(directory)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("scanning %s: %w", directory, err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			path := filepath.Join(directory, entry.Name())
			if known[path] {
				continue
			}
			kind, ok := classify(entry.Name())
			if !ok {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			created, ok := layout.ParseTimestamp(entry.Name())
			if !ok {
				created = info.ModTime()
			}
			found = append(found, Artifact{Kind: kind, Path: path, CreatedAt: created, Size: info.Size()})
		}
		return nil
	}

	if err := scan(root.Screenshots, func(name string) (Kind, bool) {
		return KindScreenshot, layout.IsImage(name)
	}); err != nil {
		return 0, err
	}
	if err := scan(root.Videos, func(name string) (Kind, bool) {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".avi", ".mp4", ".mkv":
			return KindVideo, true
		}
		return "", false
	}); err != nil {
		return 0, err
	}
	if err := scan(root.Logs, func(name string) (Kind, bool) {
		if strings.ToLower(filepath.Ext(name)) != ".txt" {
			return "", false
		}
		return LogKind(name), true
	}); err != nil {
		return 0, err
	}

	for _, artifact := range found {
		if _, err := s.RecordArtifact(ctx, artifact); err != nil {
			return 0, err
		}
	}
	if len(found) > 0 {
		s.logger.Info("indexed existing files", "count", len(found), "root", root.Root)
	}
	return len(found), nil
}

// LogKind maps a file in Logs/ to its artifact kind.
func LogKind(name string) Kind {
	switch layout.ClassifyLog(name) {
	case layout.LogOCR:
		return KindOCRText
	case layout.LogProcess:
		return KindActivityLog
	default:
		return KindKeyLog
	}
}

func (s *Store) knownPaths(ctx context.Context) (map[string]bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	known := make(map[string]bool)
	err = sqlitex.Execute(conn, `SELECT path FROM artifacts`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			known[stmt.ColumnText(0)] = true
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reading known paths: %w", err)
	}
	return known, nil
}

// PurgeAll deletes every artifact file and every artifact row.
// Extracted text goes with its artifacts; the template registry is
// kept. Returns the number of artifacts removed.
func (s *Store) PurgeAll(ctx context.Context) (count int, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("purging catalog: %w", err)
	}
	defer endTransaction(&err)

	paths, err := livePaths(conn)
	if err != nil {
		return 0, err
	}
	for _, path := range paths {
		if err := removeFile(path); err != nil {
			s.logger.Warn("purge could not remove file", "path", path, "error", err)
		}
	}
	if err := sqlitex.Execute(conn, `DELETE FROM artifacts`, nil); err != nil {
		return 0, fmt.Errorf("purging catalog: %w", err)
	}
	count = conn.Changes()
	s.logger.Info("catalog purged", "artifacts", count)
	return count, nil
}

// DeleteFiles removes every artifact file but keeps the rows, marked
// FileDeleted. Returns the number of files removed.
func (s *Store) DeleteFiles(ctx context.Context) (count int, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("deleting files: %w", err)
	}
	defer endTransaction(&err)

	paths, err := livePaths(conn)
	if err != nil {
		return 0, err
	}
	for _, path := range paths {
		if err := removeFile(path); err != nil {
			s.logger.Warn("could not remove file", "path", path, "error", err)
			continue
		}
		if err := sqlitex.Execute(conn, `UPDATE artifacts SET file_deleted = 1 WHERE path = ?`, &sqlitex.ExecOptions{
			Args: []any{path},
		}); err != nil {
			return 0, fmt.Errorf("marking %s deleted: %w", path, err)
		}
		count++
	}
	s.logger.Info("artifact files deleted", "count", count)
	return count, nil
}

func livePaths(conn *sqlite.Conn) ([]string, error) {
	var paths []string
	err := sqlitex.Execute(conn, `SELECT path FROM artifacts WHERE file_deleted = 0`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			paths = append(paths, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("listing artifact files: %w", err)
	}
	return paths, nil
}

// timeOrZero converts a stored nanosecond timestamp.
func timeOrZero(nanos int64) time.Time {
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}
