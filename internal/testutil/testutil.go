// Package testutil provides shared test helpers for setting up workspaces
// and history databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/trellis/internal/history"
	"github.com/starford/trellis/internal/storage"
)

// TestHistory creates a temporary SQLite snapshot store that is
// automatically cleaned up.
func TestHistory(t *testing.T) *history.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "trellis-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	hist, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { hist.Close() })
	return hist
}

// TestWorkspace creates a temporary workspace directory with a
// storage.Repository rooted at it.
func TestWorkspace(t *testing.T) (string, storage.Repository) {
	t.Helper()
	wsDir := t.TempDir()
	store, err := storage.NewFS(wsDir)
	if err != nil {
		t.Fatal(err)
	}
	return wsDir, store
}
