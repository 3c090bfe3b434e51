// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// DefaultPoolSize applies when Config.PoolSize is zero or negative.
const DefaultPoolSize = 4

// connectionPragmas run on every new connection, in order.
var connectionPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA temp_store=MEMORY",
}

// Config describes the database to open.
type Config struct {
	// Path is the database file. Missing parent directories are
	// created. ":memory:" only makes sense with PoolSize 1.
	Path string

	PoolSize int

	// Migrations are SQL scripts applied in order. user_version
	// records how many have run; each is applied at most once, in its
	// own transaction.
	Migrations []string

	Logger *slog.Logger
}

// Pool hands out connections to one database. The pool is safe for
// concurrent use; a borrowed connection is not.
type Pool struct {
	inner  *sqlitex.Pool
	path   string
	logger *slog.Logger
}

// Open creates the pool and runs any pending migrations.
func Open(ctx context.Context, config Config) (*Pool, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.PoolSize <= 0 {
		config.PoolSize = DefaultPoolSize
	}
	if config.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o700); err != nil {
			return nil, fmt.Errorf("sqlitepool: %w", err)
		}
	}

	inner, err := sqlitex.NewPool(config.Path, sqlitex.PoolOptions{
		PoolSize:    config.PoolSize,
		PrepareConn: applyPragmas,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", config.Path, err)
	}
	pool := &Pool{inner: inner, path: config.Path, logger: config.Logger}
	if err := pool.migrate(ctx, config.Migrations); err != nil {
		inner.Close()
		return nil, err
	}
	return pool, nil
}

// Take borrows a connection, waiting for one to free up until ctx is
// done. Every Take needs a matching Put.
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: %s: %w", p.path, err)
	}
	return conn, nil
}

// Put gives back a connection from Take. A nil conn is ignored.
func (p *Pool) Put(conn *sqlite.Conn) { p.inner.Put(conn) }

// With runs fn on a borrowed connection and returns it afterwards.
func (p *Pool) With(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)
	return fn(conn)
}

func (p *Pool) Path() string { return p.path }

// Close waits for borrowed connections and closes the database.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	return nil
}

// UserVersion returns the database's PRAGMA user_version.
func UserVersion(conn *sqlite.Conn) (int, error) {
	var version int
	err := sqlitex.ExecuteTransient(conn, "PRAGMA user_version", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnInt(0)
			return nil
		},
	})
	return version, err
}

func (p *Pool) migrate(ctx context.Context, migrations []string) error {
	if len(migrations) == 0 {
		return nil
	}
	return p.With(ctx, func(conn *sqlite.Conn) error {
		applied, err := UserVersion(conn)
		if err != nil {
			return fmt.Errorf("sqlitepool: reading user_version: %w", err)
		}
		if applied > len(migrations) {
			return fmt.Errorf("sqlitepool: %s is at schema version %d, newer than this binary's %d",
				p.path, applied, len(migrations))
		}
		for index := applied; index < len(migrations); index++ {
			if err := applyMigration(conn, migrations[index], index+1); err != nil {
				return fmt.Errorf("sqlitepool: migration %d: %w", index+1, err)
			}
			p.logger.Info("database migrated", "path", p.path, "version", index+1)
		}
		return nil
	})
}

func applyMigration(conn *sqlite.Conn, script string, version int) (err error) {
	finish, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return err
	}
	defer finish(&err)

	if err := sqlitex.ExecuteScript(conn, script, nil); err != nil {
		return err
	}
	// PRAGMA values cannot be bound.
	return sqlitex.ExecuteTransient(conn, fmt.Sprintf("PRAGMA user_version = %d", version), nil)
}

func applyPragmas(conn *sqlite.Conn) error {
	for _, pragma := range connectionPragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}
