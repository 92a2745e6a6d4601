// Package testutil provides a throwaway SQLite-backed store for package
// tests, grounded on the teacher's storage.NewSQLiteStore + Initialize
// wiring (cmd/server/main.go's startup sequence), pointed at a private
// in-memory database per test instead of a file on disk.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/sboagy/tunetrees-go/internal/storage"
)

// NewTestStore opens a fresh in-memory SQLite database, applies the full
// schema, and registers cleanup to close it when t ends. The DSN embeds
// t.Name(), so tests and subtests with distinct names get separate
// databases; two calls within the same test share one.
func NewTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(storage.Config{
		DatabasePath: "file:" + t.Name() + "?mode=memory&cache=shared",
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return store
}
