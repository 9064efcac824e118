package store

import (
	"os"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// postgresDSN returns the DSN for the PostgreSQL tests, skipping the test
// when none is configured.
func postgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("NOTES_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NOTES_TEST_POSTGRES_DSN not set")
	}
	return dsn
}
