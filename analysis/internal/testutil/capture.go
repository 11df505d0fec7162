// Package testutil builds on-disk capture fixtures for the analysis packages.
// Databases are written with the same SQLite driver the reader uses, so a
// fixture exercises the real read path.
package testutil

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// Standard calibration values written by NewCapture and AddDevice.
const (
	HostFrequency     = "1000"             // cycles per µs: 1 cycle == 1 ns
	HostCntvct        = int64(1_000_000)   // host calibration cycles
	HostMonotonicNs   = int64(5_000_000_000)
	HostEndMonotonic  = int64(6_000_000_000)
	HostWallBeginUs   = int64(1_700_000_000_000_000)
	DeviceCntvct      = int64(2_000_000)
	DeviceMonotonicNs = int64(3_000_000_000)
)

// Capture is a capture root under t.TempDir().
type Capture struct {
	t    *testing.T
	Root string
}

// NewCapture creates a capture root with standard host metadata
// (start_info.json, end_info.json, info.json).
func NewCapture(t *testing.T) *Capture {
	t.Helper()
	return NewCaptureAt(t, t.TempDir())
}

// NewCaptureAt creates a capture root with standard host metadata at dir.
func NewCaptureAt(t *testing.T, dir string) *Capture {
	t.Helper()
	c := &Capture{t: t, Root: dir}
	c.WriteJSON("host", "start_info.json", map[string]string{
		"collectionTimeBegin": fmt.Sprint(HostWallBeginUs),
		"clockMonotonicRaw":   fmt.Sprint(HostMonotonicNs),
		"cntvct":              fmt.Sprint(HostCntvct),
	})
	c.WriteJSON("host", "end_info.json", map[string]string{
		"collectionTimeEnd": fmt.Sprint(HostWallBeginUs + (HostEndMonotonic-HostMonotonicNs)/1000),
		"clockMonotonicRaw": fmt.Sprint(HostEndMonotonic),
	})
	c.WriteJSON("host", "info.json", map[string]any{
		"CPU": []map[string]string{{"Frequency": HostFrequency}},
	})
	return c
}

// AddDevice writes device_<n> metadata with the given hwts frequency.
func (c *Capture) AddDevice(n int, frequency string) string {
	c.t.Helper()
	dir := fmt.Sprintf("device_%d", n)
	c.WriteJSON(dir, "start_info.json", map[string]string{
		"clockMonotonicRaw": fmt.Sprint(DeviceMonotonicNs),
		"cntvct":            fmt.Sprint(DeviceCntvct),
	})
	c.WriteJSON(dir, "info.json", map[string]any{
		"DeviceInfo": []map[string]string{{"hwts_frequency": frequency}},
	})
	return dir
}

// WriteJSON marshals v into <root>/<domainDir>/<name>.
func (c *Capture) WriteJSON(domainDir, name string, v any) {
	c.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		c.t.Fatalf("marshal %s: %v", name, err)
	}
	c.WriteFile(filepath.Join(domainDir, name), data)
}

// WriteFile writes raw bytes at a path relative to the root.
func (c *Capture) WriteFile(rel string, data []byte) {
	c.t.Helper()
	path := filepath.Join(c.Root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.t.Fatalf("write %s: %v", path, err)
	}
}

// Remove deletes a path relative to the root.
func (c *Capture) Remove(rel string) {
	c.t.Helper()
	if err := os.RemoveAll(filepath.Join(c.Root, rel)); err != nil {
		c.t.Fatalf("remove %s: %v", rel, err)
	}
}

// DBPath returns <root>/<domainDir>/sqlite/<db>.
func (c *Capture) DBPath(domainDir, db string) string {
	return filepath.Join(c.Root, domainDir, "sqlite", db)
}

// DB creates <domainDir>/sqlite/<db> and runs each statement in order.
func (c *Capture) DB(domainDir, db string, stmts ...string) {
	c.t.Helper()
	path := c.DBPath(domainDir, db)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.t.Fatalf("mkdir %s: %v", path, err)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		c.t.Fatalf("open %s: %v", path, err)
	}
	defer func() { _ = conn.Close() }()
	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			c.t.Fatalf("%s: %q: %v", db, stmt, err)
		}
	}
}

// CorruptDB writes bytes that are not a SQLite database at the db path.
func (c *Capture) CorruptDB(domainDir, db string) {
	c.t.Helper()
	c.WriteFile(filepath.Join(domainDir, "sqlite", db), []byte(strings.Repeat("this is not a sqlite database. ", 256)))
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
