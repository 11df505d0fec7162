package dbreader

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kali20gakki/msprof-sub029/analysis"
	"github.com/kali20gakki/msprof-sub029/analysis/internal/testutil"
)

func TestCheck_FourOutcomes(t *testing.T) {
	c := testutil.NewCapture(t)
	c.DB("host", "good.db", "CREATE TABLE T(a INT)")
	c.CorruptDB("host", "bad.db")
	ctx := context.Background()

	tests := []struct {
		name     string
		db       string
		table    string
		required bool
		want     Presence
	}{
		{"present", "good.db", "T", false, Present},
		{"file absent optional", "none.db", "T", false, AbsentOptional},
		{"file absent required", "none.db", "T", true, AbsentRequired},
		{"table absent optional", "good.db", "Other", false, AbsentOptional},
		{"table absent required", "good.db", "Other", true, AbsentRequired},
		{"not a database", "bad.db", "T", false, Corrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Check(ctx, c.DBPath("host", tt.db), tt.table, tt.required)
			assert.Equal(t, tt.want, st.Presence)
			switch tt.want {
			case Present, AbsentOptional:
				assert.NoError(t, st.Err)
			default:
				assert.Equal(t, analysis.ClassDataCorrupt, analysis.ClassOf(st.Err))
			}
		})
	}
}

type pair struct {
	A int64
	B string
}

func scanPair(rows *sql.Rows) (pair, bool, error) {
	var p pair
	err := rows.Scan(&p.A, &p.B)
	return p, p.A >= 0, err
}

func TestReadAll_ScansInOrderAndFilters(t *testing.T) {
	c := testutil.NewCapture(t)
	c.DB("host", "p.db",
		"CREATE TABLE P(a INT, b TEXT)",
		"INSERT INTO P VALUES (2,'two'),(-1,'skip'),(1,'one')",
	)

	got, err := ReadAll(context.Background(), c.DBPath("host", "p.db"), "P",
		"SELECT a, b FROM P ORDER BY a", scanPair)

	require.NoError(t, err)
	assert.Equal(t, []pair{{1, "one"}, {2, "two"}}, got)
}

func TestReadAll_ScanError_IsCorrupt(t *testing.T) {
	c := testutil.NewCapture(t)
	c.DB("host", "p.db",
		"CREATE TABLE P(a TEXT, b TEXT)",
		"INSERT INTO P VALUES ('not-a-number','x')",
	)

	_, err := ReadAll(context.Background(), c.DBPath("host", "p.db"), "P", "SELECT a, b FROM P", scanPair)

	assert.Equal(t, analysis.ClassDataCorrupt, analysis.ClassOf(err))
	assert.ErrorIs(t, err, analysis.ErrTableCorrupt)
}

func TestReadAll_BadQuery_IsCorrupt(t *testing.T) {
	c := testutil.NewCapture(t)
	c.DB("host", "p.db", "CREATE TABLE P(a INT, b TEXT)")

	_, err := ReadAll(context.Background(), c.DBPath("host", "p.db"), "P", "SELECT missing_col FROM P", scanPair)

	assert.Equal(t, analysis.ClassDataCorrupt, analysis.ClassOf(err))
}

func TestReadAll_OverCapacity_IsExhaustion(t *testing.T) {
	// GIVEN a reservation limit below the table's row count
	old := MaxReservedRows
	MaxReservedRows = 1
	defer func() { MaxReservedRows = old }()

	c := testutil.NewCapture(t)
	c.DB("host", "p.db",
		"CREATE TABLE P(a INT, b TEXT)",
		"INSERT INTO P VALUES (1,'a'),(2,'b')",
	)

	_, err := ReadAll(context.Background(), c.DBPath("host", "p.db"), "P", "SELECT a, b FROM P", scanPair)

	assert.Equal(t, analysis.ClassResourceExhaustion, analysis.ClassOf(err))
	assert.ErrorIs(t, err, analysis.ErrCapacity)
}

func TestReserve(t *testing.T) {
	out, err := Reserve[pair](10)
	require.NoError(t, err)
	assert.Equal(t, 0, len(out))
	assert.Equal(t, 10, cap(out))

	_, err = Reserve[pair](-1)
	assert.Equal(t, analysis.ClassResourceExhaustion, analysis.ClassOf(err))
}

func TestPresence_String(t *testing.T) {
	assert.Equal(t, "absent-optional", AbsentOptional.String())
	assert.Equal(t, "unknown", Presence(42).String())
}
