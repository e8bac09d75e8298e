// Package testutil provides shared test helpers for setting up libraries and stores.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/texrelink/internal/assets"
)

// TestStore creates a temporary SQLite asset store that is automatically cleaned up.
func TestStore(t *testing.T) *assets.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "texrelink-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := assets.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary library directory containing the given
// files (slash-separated, relative to the root) and returns its path.
func TestLibrary(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		WriteFile(t, root, f)
	}
	return root
}

// WriteFile creates rel under root with placeholder content and returns
// the absolute path.
func WriteFile(t *testing.T, root, rel string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(rel), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
