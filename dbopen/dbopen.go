// Package dbopen opens the SQLite databases used by feedpulse with a fixed
// set of pragmas and a numbered migration list.
//
// Pragmas are set through the DSN so that every pooled connection gets them:
//
//	foreign_keys = ON
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
//
// Migrations run in order inside one transaction; PRAGMA user_version
// records how many have been applied, so reopening an up-to-date database
// runs nothing.
package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

type config struct {
	busyTimeout int
	mkdirAll    bool
	migrations  []string
}

// Option customises Open.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// WithMigrations appends DDL steps. Step i is applied once, when
// user_version is below i+1.
func WithMigrations(steps ...string) Option {
	return func(c *config) { c.migrations = append(c.migrations, steps...) }
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string, opts ...Option) (*sql.DB, error) {
	cfg := config{busyTimeout: 10_000}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mkdirAll && path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path, cfg))
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}
	if path == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping: %w", err)
	}
	if err := migrate(context.Background(), db, cfg.migrations); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a migrated in-memory database closed on test cleanup.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(memoryPath, opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func dsn(path string, cfg config) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.busyTimeout))
	q.Add("_pragma", "synchronous(NORMAL)")
	if path != memoryPath {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + q.Encode()
}

// Version returns the number of migrations applied to db.
func Version(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("dbopen: user_version: %w", err)
	}
	return v, nil
}

func migrate(ctx context.Context, db *sql.DB, steps []string) error {
	if len(steps) == 0 {
		return nil
	}
	current, err := Version(ctx, db)
	if err != nil {
		return err
	}
	if current > len(steps) {
		return fmt.Errorf("dbopen: database is at version %d, newer than %d known migrations", current, len(steps))
	}
	if current == len(steps) {
		return nil
	}

	return RunTx(ctx, db, func(tx *sql.Tx) error {
		for i := current; i < len(steps); i++ {
			if _, err := tx.ExecContext(ctx, steps[i]); err != nil {
				return fmt.Errorf("dbopen: migration %d: %w", i+1, err)
			}
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", len(steps))); err != nil {
			return fmt.Errorf("dbopen: set user_version: %w", err)
		}
		return nil
	})
}
