// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the agent's SQLite databases.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool with the pragmas the
// agent relies on and an ordered list of [Config.Migrations]. The
// database's user_version counts the migrations already applied, so
// opening an up-to-date catalog runs nothing, and a catalog written by
// a newer binary is refused.
//
// [Pool.With] lends a connection to a function; [Pool.Take] and
// [Pool.Put] do the same by hand. Connections are not safe for
// concurrent use.
//
// # Pragmas
//
//   - journal_mode=WAL: the catalog is read by the CLI while the agent
//     writes to it.
//   - synchronous=NORMAL: survives process crashes.
//   - busy_timeout=5000: writers wait for the lock instead of failing.
//   - foreign_keys=ON: extracted text rows cascade with their artifact.
//   - temp_store=MEMORY.
package sqlitepool
