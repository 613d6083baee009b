// Package storagetest opens migrated in-memory databases and seeds common rows for store tests.
package storagetest

import (
	"database/sql"
	"testing"
	"time"

	"coachdesk/internal/adapters/storage"
)

// Open returns a migrated in-memory database closed when t finishes.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := storage.Open(storage.MemoryPath, 0)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// SeedAccount inserts a minimal account row so foreign keys to it hold.
func SeedAccount(t testing.TB, db *sql.DB, id, email, role string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO account (id, email, role, created_at) VALUES (?, ?, ?, ?)`,
		id, email, role, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(storage.DateLayout),
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", id, err)
	}
}
