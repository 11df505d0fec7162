package dbreader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kali20gakki/msprof-sub029/analysis"
)

// MaxReservedRows bounds the capacity reserved for one table read.
var MaxReservedRows int64 = 1 << 26

// Reserve pre-allocates capacity for n records. A count above
// MaxReservedRows, or an allocation the runtime rejects, is a
// ResourceExhaustion error.
func Reserve[T any](n int64) (out []T, err error) {
	if n < 0 || n > MaxReservedRows {
		return nil, analysis.Exhausted(fmt.Errorf("%d rows: %w", n, analysis.ErrCapacity), "dbreader", "reserve")
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = analysis.Exhausted(fmt.Errorf("%d rows: %v: %w", n, r, analysis.ErrCapacity), "dbreader", "reserve")
		}
	}()
	return make([]T, 0, n), nil
}

// ScanFunc converts the current row into a record. Returning keep=false drops the row.
type ScanFunc[T any] func(rows *sql.Rows) (rec T, keep bool, err error)

// ReadAll opens path, reserves room for every row of table, runs query and
// scans each row. Read and scan failures are DataCorrupt.
func ReadAll[T any](ctx context.Context, path, table, query string, scan ScanFunc[T]) ([]T, error) {
	db, err := Open(path)
	if err != nil {
		return nil, analysis.Corrupt(fmt.Errorf("%v: %w", err, analysis.ErrTableCorrupt), "dbreader", table)
	}
	defer func() { _ = db.Close() }()

	n, err := db.Count(ctx, table)
	if err != nil {
		return nil, analysis.Corrupt(fmt.Errorf("%s: count %s: %v: %w", path, table, err, analysis.ErrTableCorrupt), "dbreader", table)
	}
	out, err := Reserve[T](n)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, analysis.Corrupt(fmt.Errorf("%s: query %s: %v: %w", path, table, err, analysis.ErrTableCorrupt), "dbreader", table)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		rec, keep, err := scan(rows)
		if err != nil {
			return nil, analysis.Corrupt(fmt.Errorf("%s: scan %s: %v: %w", path, table, err, analysis.ErrTableCorrupt), "dbreader", table)
		}
		if keep {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, analysis.Corrupt(fmt.Errorf("%s: iterate %s: %v: %w", path, table, err, analysis.ErrTableCorrupt), "dbreader", table)
	}
	return out, nil
}
