package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh store in a temp directory.
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

// createTestRun inserts a run with minimal fields.
func createTestRun(t *testing.T, s *Store, id, component string) Run {
	t.Helper()
	run, err := s.CreateRun(context.Background(), Run{ID: id, Component: component, Delta: 0.5})
	if err != nil {
		t.Fatalf("CreateRun(%s) failed: %v", id, err)
	}
	return run
}
