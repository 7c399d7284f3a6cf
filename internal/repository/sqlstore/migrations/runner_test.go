package migrations_test

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/msomdec/shift-clock/internal/repository/sqlstore/migrations"
)

func TestRunMigrations(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}

	ctx := context.Background()

	if err := migrations.Run(ctx, db, "sqlite"); err != nil {
		t.Fatalf("first migration run: %v", err)
	}

	// The later ALTER TABLE migration must have given users its defaults.
	if _, err := db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES (?, ?)",
		"test@example.com", "hash123",
	); err != nil {
		t.Fatalf("insert into users: %v", err)
	}
	var tz, scope string
	if err := db.QueryRowContext(ctx, "SELECT tz, recent_logs_scope FROM users").Scan(&tz, &scope); err != nil {
		t.Fatalf("select user defaults: %v", err)
	}
	if tz != "UTC" || scope != "wtd_prev" {
		t.Fatalf("unexpected defaults tz=%q scope=%q", tz, scope)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if err := migrations.Run(ctx, db, "sqlite"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(ctx, db, "sqlite"); err != nil {
		t.Fatalf("second run (idempotent): %v", err)
	}

	files, err := fs.Glob(migrations.FS, "sqlite/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != len(files) {
		t.Fatalf("expected %d migration records, got %d", len(files), count)
	}
}

func TestDialectsShipTheSameMigrations(t *testing.T) {
	sqliteFiles, _ := fs.Glob(migrations.FS, "sqlite/*.sql")
	mysqlFiles, _ := fs.Glob(migrations.FS, "mysql/*.sql")
	if len(sqliteFiles) != len(mysqlFiles) {
		t.Fatalf("sqlite has %d migrations, mysql has %d", len(sqliteFiles), len(mysqlFiles))
	}
	for i := range sqliteFiles {
		if sqliteFiles[i][len("sqlite/"):] != mysqlFiles[i][len("mysql/"):] {
			t.Fatalf("migration %d differs: %s vs %s", i, sqliteFiles[i], mysqlFiles[i])
		}
	}
}

func TestRunUnknownDialect(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(context.Background(), db, "postgres"); err == nil {
		t.Fatal("expected an error for a dialect without migrations")
	}
}
