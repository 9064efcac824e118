package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
)

// Entry is one key/value pair of the map.
type Entry struct {
	Key   uint32
	Value []byte
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns the value stored under key.
// found is false if no entry exists.
func (s *Store) Get(ctx context.Context, key uint32) (value []byte, found bool, err error) {
	value, found, err = s.get(ctx, s.db, key)
	if err != nil {
		return nil, false, fmt.Errorf("get %d: %w", key, err)
	}
	return value, found, nil
}

func (s *Store) get(ctx context.Context, q querier, key uint32) ([]byte, bool, error) {
	var (
		value  []byte
		digest string
	)
	err := q.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT value, digest FROM entries WHERE key = ?
	`), int64(key)).Scan(&value, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entryDigest(key, value) != digest {
		return nil, false, fmt.Errorf("%w: digest mismatch at key %d", ErrCorrupt, key)
	}
	return value, true, nil
}

// Insert stores value under key, replacing any existing entry.
// Returns the previous value and whether one existed.
func (s *Store) Insert(ctx context.Context, key uint32, value []byte) (prev []byte, existed bool, err error) {
	if value == nil {
		value = []byte{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("insert %d: begin tx: %w", key, err)
	}
	defer tx.Rollback() // No-op if committed

	prev, existed, err = s.get(ctx, tx, key)
	if err != nil {
		return nil, false, fmt.Errorf("insert %d: read previous: %w", key, err)
	}

	_, err = tx.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO entries (key, value, digest) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, digest = excluded.digest
	`), int64(key), value, entryDigest(key, value))
	if err != nil {
		return nil, false, fmt.Errorf("insert %d: write: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("insert %d: commit: %w", key, err)
	}

	return prev, existed, nil
}

// Remove deletes the entry under key.
// Returns the removed value and whether one existed.
func (s *Store) Remove(ctx context.Context, key uint32) (prev []byte, existed bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("remove %d: begin tx: %w", key, err)
	}
	defer tx.Rollback()

	prev, existed, err = s.get(ctx, tx, key)
	if err != nil {
		return nil, false, fmt.Errorf("remove %d: read previous: %w", key, err)
	}
	if !existed {
		return nil, false, nil
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM entries WHERE key = ?`), int64(key)); err != nil {
		return nil, false, fmt.Errorf("remove %d: delete: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("remove %d: commit: %w", key, err)
	}

	return prev, true, nil
}

// Iterate calls fn for every entry in ascending key order.
// Iteration stops at the first error returned by fn, which Iterate returns
// unchanged. fn must not call back into the store: the SQLite backends hold
// their only connection for the duration of the scan.
func (s *Store) Iterate(ctx context.Context, fn func(key uint32, value []byte) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, digest FROM entries ORDER BY key ASC
	`)
	if err != nil {
		return fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			raw    int64
			value  []byte
			digest string
		)
		if err := rows.Scan(&raw, &value, &digest); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		if raw < 0 || raw > math.MaxUint32 {
			return fmt.Errorf("%w: key %d out of range", ErrCorrupt, raw)
		}
		key := uint32(raw)
		if entryDigest(key, value) != digest {
			return fmt.Errorf("%w: digest mismatch at key %d", ErrCorrupt, key)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate entries: %w", err)
	}
	return nil
}

// Entries returns every entry in ascending key order.
// Returns an empty slice (not nil) for an empty map.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	entries := []Entry{}
	err := s.Iterate(ctx, func(key uint32, value []byte) error {
		entries = append(entries, Entry{Key: key, Value: value})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Len returns the number of live entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}
