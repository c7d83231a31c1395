package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB returns a fresh in-memory database with the schema applied. It
// is closed when the test ends.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()
	return openTest(t, ":memory:")
}

// NewTestFileDB is like NewTestDB but backed by a file in a temporary
// directory, for tests that reopen the database.
func NewTestFileDB(t testing.TB) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "elderaid.sqlite3")
	return openTest(t, path), path
}

func openTest(t testing.TB, path string) *sql.DB {
	t.Helper()
	db, err := Open(path)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := EnsureSchema(db); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return db
}
