// Package sqlstore implements the domain repositories on database/sql. The
// same queries run against SQLite (modernc.org/sqlite) and MySQL
// (go-sql-driver/mysql); dialect differences are confined to this file,
// the embedded migrations and the error translation in errors.go.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/repository/sqlstore/migrations"
)

const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

var _ domain.Database = (*DB)(nil)

// DB wraps a *sql.DB together with the dialect it speaks.
type DB struct {
	SqlDB   *sql.DB
	dialect string
}

// OpenSQLite opens a SQLite database at the given path and configures it
// for use. It enables WAL mode and foreign keys.
func OpenSQLite(ctx context.Context, dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection serialises writers and keeps the PRAGMAs below
	// in effect for every statement.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db, dialect: DialectSQLite}, nil
}

// OpenMySQL connects to MySQL. The DSN is normalised so that DATETIME
// columns scan into UTC time.Time values and migration files may hold
// several statements. The initial ping is retried with backoff, since the
// server is often still starting when the app boots next to it.
func OpenMySQL(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = true
	cfg.ClientFoundRows = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["time_zone"] = "'+00:00'"

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	err = retry.Do(
		func() error {
			c, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return db.PingContext(c)
		},
		retry.Context(ctx),
		retry.Attempts(8),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("waiting for mysql", "attempt", n+1, "addr", cfg.Addr, "error", err)
		}),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db, dialect: DialectMySQL}, nil
}

// Open dispatches on driver ("sqlite" or "mysql").
func Open(ctx context.Context, driver, sqlitePath, mysqlDSN string) (*DB, error) {
	switch driver {
	case DialectSQLite:
		return OpenSQLite(ctx, sqlitePath)
	case DialectMySQL:
		return OpenMySQL(ctx, mysqlDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Dialect reports which SQL dialect the database speaks.
func (db *DB) Dialect() string { return db.dialect }

// Migrate applies the embedded schema for the database's dialect.
func (db *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, db.SqlDB, db.dialect)
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	return db.SqlDB.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.SqlDB.PingContext(ctx)
}

func (db *DB) Users() *UserRepository           { return NewUserRepository(db) }
func (db *DB) Entries() *EntryRepository        { return NewEntryRepository(db) }
func (db *DB) EventTypes() *EventTypeRepository { return NewEventTypeRepository(db) }

// forUpdate is appended to a SELECT inside a transaction to lock the rows it
// reads. SQLite locks the whole database on write and has no such clause.
func (db *DB) forUpdate() string {
	if db.dialect == DialectMySQL {
		return " FOR UPDATE"
	}
	return ""
}
