package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory.
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

// createTestRecording inserts a recording with minimal required fields.
func createTestRecording(t *testing.T, s *Store, id string, createdSeq int64) Recording {
	t.Helper()
	rec := Recording{
		ID:         id,
		BuildID:    "test-build",
		Dispatch:   "*",
		Arguments:  []string{"host", "--flag"},
		CreatedSeq: createdSeq,
	}
	if err := s.WriteRecording(context.Background(), rec); err != nil {
		t.Fatalf("WriteRecording() failed: %v", err)
	}
	return rec
}
