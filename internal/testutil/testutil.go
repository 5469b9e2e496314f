// Package testutil provides shared test helpers for setting up stores and services.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/planner/internal/planservice"
	"github.com/starford/planner/internal/storage"
)

// FixedNow is the instant returned by TestService's clock.
var FixedNow = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

// TestFS creates a file store in a temporary data directory.
func TestFS(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestSQLite opens a temporary SQLite store that is closed on cleanup.
func TestSQLite(t *testing.T) *storage.SQLite {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "planner-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService opens a service over a fresh file store with a fixed clock.
func TestService(t *testing.T, opts ...planservice.Option) (*planservice.Service, *storage.FS) {
	t.Helper()
	_, store := TestFS(t)
	opts = append([]planservice.Option{
		planservice.WithClock(func() time.Time { return FixedNow }),
	}, opts...)
	svc, err := planservice.Open(store, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return svc, store
}
