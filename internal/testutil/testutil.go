// Package testutil provides shared test helpers for setting up note stores
// and blob directories.
package testutil

import (
	"os"
	"testing"

	"github.com/levelworks/levelnotes/internal/blob"
	"github.com/levelworks/levelnotes/internal/notestore"
)

// TestStore creates a temporary SQLite note store that is automatically cleaned up.
func TestStore(t *testing.T) *notestore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "levelnotes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := notestore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestBlobs creates a temporary data directory with a blob.Store.
func TestBlobs(t *testing.T) (string, blob.Store) {
	t.Helper()
	dataDir := t.TempDir()
	store, err := blob.NewFS(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	return dataDir, store
}
