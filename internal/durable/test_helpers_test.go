package durable

import (
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh Store backed by a temp-dir database,
// closed automatically at test cleanup.
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
