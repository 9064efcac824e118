// Package store provides the durable ordered map underneath the note store.
//
// The map associates a uint32 key with an opaque value blob and offers:
//   - Get / Insert / Remove: each call is its own atomic unit; Insert and
//     Remove return the previous value
//   - Iterate / Entries: ascending key order
//   - Len: count of live entries
//   - NextKey: a durable "next key" cell for callers that need strictly
//     increasing keys
//
// The store has no notion of what the blobs contain. It never evicts and it
// never rewrites a value on its own.
//
// # Integrity
//
// Every row carries a SHA-256 digest over its key and value with domain
// separation (see digest.go). Reads recompute the digest and fail with
// ErrCorrupt on mismatch rather than returning damaged bytes.
//
// # Database Configuration
//
// Three drivers are supported:
//   - "sqlite3": github.com/mattn/go-sqlite3 (default, cgo)
//   - "sqlite":  modernc.org/sqlite (pure Go)
//   - "pgx":     github.com/jackc/pgx/v5 against PostgreSQL
//
// SQLite connections use:
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - A single open connection (SQLite allows one writer at a time)
//
// All reads use ORDER BY key ASC so iteration order is deterministic on every
// backend.
package store
