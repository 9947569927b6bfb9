// Package testutil provides helpers for integration tests. Every helper skips
// the test when TEST_DATABASE_URL is not set, so unit runs need no database.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" for database/sql
	"gorm.io/gorm"

	"github.com/Eursukkul/guesthouse-booking/pkg/database"
)

// NewGormDB opens the test database through the same constructor the server
// uses and applies migrations. The pool is closed when the test ends.
func NewGormDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := requireDSN(t)

	db, err := database.NewPostgresDB(dsn)
	if err != nil {
		t.Fatalf("testutil.NewGormDB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("testutil.NewGormDB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// NewSQLDB opens a plain *sql.DB on the pgx driver, for driving goose
// directly.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := requireDSN(t)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: open: %v", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		t.Fatalf("testutil.NewSQLDB: ping: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// Truncate empties both booking tables.
func Truncate(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Exec("TRUNCATE status_lookups, bookings").Error; err != nil {
		t.Fatalf("testutil.Truncate: %v", err)
	}
}

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	return dsn
}
