// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// TemplateRecord is one entry in the template registry.
type TemplateRecord struct {
	ID         int64
	Path       string
	Count      int
	CreatedAt  time.Time
	RecordedAt time.Time
}

// RecordTemplateSet registers an enrollment.
func (s *Store) RecordTemplateSet(ctx context.Context, path string, count int, createdAt time.Time) (int64, error) {
	var id int64
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO template_sets (path, count, created_at, recorded_at)
			VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{path, count, createdAt.UnixNano(), s.clock.Now().UnixNano()},
			})
		id = conn.LastInsertRowID()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("recording template set: %w", err)
	}
	return id, nil
}

// LatestTemplateSet returns the most recent enrollment. ok is false
// when none was recorded.
func (s *Store) LatestTemplateSet(ctx context.Context) (record TemplateRecord, ok bool, err error) {
	err = s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT id, path, count, created_at, recorded_at
			FROM template_sets
			ORDER BY recorded_at DESC, id DESC
			LIMIT 1`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					record = TemplateRecord{
						ID:         stmt.ColumnInt64(0),
						Path:       stmt.ColumnText(1),
						Count:      stmt.ColumnInt(2),
						CreatedAt:  timeOrZero(stmt.ColumnInt64(3)),
						RecordedAt: timeOrZero(stmt.ColumnInt64(4)),
					}
					ok = true
					return nil
				},
			})
	})
	if err != nil {
		return TemplateRecord{}, false, fmt.Errorf("reading latest template set: %w", err)
	}
	return record, ok, nil
}
