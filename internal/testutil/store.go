package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/notes/internal/store"
)

// OpenStore opens a file-backed store in a per-test temp directory and
// closes it on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// OpenMemoryStore opens an in-memory store. Each call gets an independent
// database.
func OpenMemoryStore() (*store.Store, error) {
	return store.Open(":memory:")
}
