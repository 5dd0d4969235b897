package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-podcast-search/internal/store"
	"github.com/uptrace/bun"
)

// NewTestDB opens a migrated SQLite database in a temporary directory. The database
// is closed when the test ends.
func NewTestDB(t *testing.T) *bun.DB {
	t.Helper()
	return NewTestDBWithDriver(t, store.DriverSQLite3)
}

// NewTestDBWithDriver is NewTestDB for a specific SQLite driver.
func NewTestDBWithDriver(t *testing.T, driver string) *bun.DB {
	t.Helper()

	ctx := context.Background()
	cfg := store.Config{
		Driver: driver,
		DSN:    filepath.Join(t.TempDir(), "podsearch.db"),
	}

	db, err := store.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(ctx, db, cfg.Driver); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
