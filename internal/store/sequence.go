package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
)

// NextKey hands out strictly increasing keys that never collide with a live
// entry. The cell persists across restarts and is advanced past the largest
// live key, so keys written through Insert with any other scheme are never
// reissued.
func (s *Store) NextKey(ctx context.Context) (uint32, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("next key: begin tx: %w", err)
	}
	defer tx.Rollback()

	var next int64
	err = tx.QueryRowContext(ctx, s.dialect.rebind(`SELECT value FROM cells WHERE name = ?`), cellNextKey).Scan(&next)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("next key: read cell: %w", err)
	}

	var floor int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(key) + 1, 0) FROM entries`).Scan(&floor); err != nil {
		return 0, fmt.Errorf("next key: read max key: %w", err)
	}
	if floor > next {
		next = floor
	}

	if next > math.MaxUint32 {
		return 0, ErrKeySpaceExhausted
	}

	if err := setCell(ctx, tx, s.dialect, cellNextKey, next+1); err != nil {
		return 0, fmt.Errorf("next key: write cell: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("next key: commit: %w", err)
	}

	return uint32(next), nil
}
