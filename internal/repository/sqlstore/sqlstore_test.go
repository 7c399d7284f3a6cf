package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/repository/sqlstore"
)

// Verify that *sqlstore.DB implements domain.Database at compile time.
var _ domain.Database = (*sqlstore.DB)(nil)

func newTestDB(t *testing.T) *sqlstore.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlstore.OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestUser(t *testing.T, db *sqlstore.DB, email string) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:              email,
		PasswordHash:       "hash",
		TZ:                 "America/Los_Angeles",
		Role:               domain.RoleUser,
		SearchDefaultRange: "wtd_prev",
		RecentLogsScope:    "wtd_prev",
	}
	if err := db.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return u
}

func TestOpenSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sqlstore.OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}
	if db.Dialect() != sqlstore.DialectSQLite {
		t.Fatalf("expected dialect sqlite, got %q", db.Dialect())
	}

	var fkEnabled int
	if err := db.SqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("check foreign_keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fkEnabled)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate (idempotent): %v", err)
	}

	var count int
	if err := db.SqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 migration records, got %d", count)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), "postgres", "", ""); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpenMySQL_BadDSN(t *testing.T) {
	if _, err := sqlstore.OpenMySQL(context.Background(), "not a dsn"); err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}

func TestIsUniqueViolation_MySQL(t *testing.T) {
	// The translation is exercised end to end against SQLite below; MySQL's
	// error type is checked here without a server.
	err := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if !sqlstore.IsUniqueViolation(err) {
		t.Fatal("expected 1062 to be a unique violation")
	}
	if sqlstore.IsUniqueViolation(&mysql.MySQLError{Number: 1452}) {
		t.Fatal("foreign key failure is not a unique violation")
	}
	if sqlstore.IsUniqueViolation(errors.New("boom")) {
		t.Fatal("plain error is not a unique violation")
	}
}

func TestIsDeadlock(t *testing.T) {
	if !sqlstore.IsDeadlock(fmt.Errorf("insert entry: %w", &mysql.MySQLError{Number: 1213})) {
		t.Fatal("expected wrapped 1213 to be a deadlock")
	}
	if sqlstore.IsDeadlock(&mysql.MySQLError{Number: 1062}) {
		t.Fatal("1062 is not a deadlock")
	}
	if sqlstore.IsDeadlock(errors.New("boom")) {
		t.Fatal("plain error is not a deadlock")
	}
}
