// Package testutil provides shared test helpers for setting up stores and clocks.
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/devtally/internal/storage"
)

// TestDB creates a temporary SQLite store that is closed on cleanup.
func TestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "devtally-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestFile creates a JSON file store inside a temporary directory.
func TestFile(t *testing.T) *storage.JSONFile {
	t.Helper()
	store, err := storage.NewJSONFile(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// Clock returns a time source starting at start that advances by step on
// every call.
func Clock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}
