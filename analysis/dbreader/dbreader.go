// Package dbreader reads the per-feature SQLite databases of a capture.
// Databases are opened query-only; nothing here writes to a capture.
package dbreader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	_ "modernc.org/sqlite"

	"github.com/kali20gakki/msprof-sub029/analysis"
)

// Presence is the outcome of checking a table before reading it.
type Presence int

const (
	// Present means the table exists and can be read.
	Present Presence = iota
	// AbsentOptional means the feature was not collected this run.
	AbsentOptional
	// AbsentRequired means a table that every capture must carry is missing.
	AbsentRequired
	// Corrupt means the database exists but cannot be opened or inspected.
	Corrupt
)

var presenceNames = map[Presence]string{
	Present:        "present",
	AbsentOptional: "absent-optional",
	AbsentRequired: "absent-required",
	Corrupt:        "corrupt",
}

func (p Presence) String() string {
	if s, ok := presenceNames[p]; ok {
		return s
	}
	return "unknown"
}

// Status is the tagged result of Check. Err is set for AbsentRequired and Corrupt.
type Status struct {
	Presence Presence
	Err      error
}

// DB is one open feature database.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens the database at path query-only. The file must exist.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &DB{db: db, path: path}, nil
}

// Close releases the database handle.
func (d *DB) Close() error { return d.db.Close() }

// Path returns the file path of the database.
func (d *DB) Path() string { return d.path }

// TableExists reports whether table is defined in the schema.
func (d *DB) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of rows of table.
func (d *DB) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	// table names come from fixed extractor specs, never from capture data
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}

// Query runs query and returns the rows.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

// Check classifies the presence of table in the database at path.
func Check(ctx context.Context, path, table string, required bool) Status {
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Status{Presence: Corrupt, Err: analysis.Corrupt(fmt.Errorf("stat %s: %w", path, err), "dbreader", "check")}
		}
		if required {
			return Status{Presence: AbsentRequired, Err: analysis.Corrupt(fmt.Errorf("%s: %w", path, analysis.ErrTableMissing), "dbreader", "check")}
		}
		return Status{Presence: AbsentOptional}
	}

	db, err := Open(path)
	if err != nil {
		return Status{Presence: Corrupt, Err: analysis.Corrupt(fmt.Errorf("%v: %w", err, analysis.ErrTableCorrupt), "dbreader", "check")}
	}
	defer func() { _ = db.Close() }()

	exists, err := db.TableExists(ctx, table)
	if err != nil {
		return Status{Presence: Corrupt, Err: analysis.Corrupt(fmt.Errorf("%s: %v: %w", path, err, analysis.ErrTableCorrupt), "dbreader", "check")}
	}
	if !exists {
		if required {
			return Status{Presence: AbsentRequired, Err: analysis.Corrupt(fmt.Errorf("%s.%s: %w", path, table, analysis.ErrTableMissing), "dbreader", "check")}
		}
		return Status{Presence: AbsentOptional}
	}
	return Status{Presence: Present}
}
