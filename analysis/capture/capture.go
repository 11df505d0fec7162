// Package capture locates capture roots on disk and reads the per-domain
// calibration side-files they carry.
package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kali20gakki/msprof-sub029/analysis"
)

// DomainID identifies a clock domain inside one capture root.
// Devices use their index; the host uses HostDomain.
type DomainID int

// HostDomain is the reserved id of the host clock domain.
const HostDomain DomainID = -1

// IsHost reports whether id denotes the host domain.
func (id DomainID) IsHost() bool { return id == HostDomain }

// String renders the id the way directory names do ("host", "device_3").
func (id DomainID) String() string {
	if id.IsHost() {
		return hostDir
	}
	return devicePrefix + strconv.Itoa(int(id))
}

const (
	hostDir      = "host"
	devicePrefix = "device_"
	sqliteDir    = "sqlite"

	// MarkerFile must exist under host/ for a directory to count as a capture root.
	MarkerFile = "start_info.json"
)

// Root is one profiling session directory. Immutable once discovered.
type Root struct {
	Path    string
	Devices []DomainID // sorted ascending
}

// Domains returns the host followed by every device, in order.
func (r Root) Domains() []DomainID {
	out := make([]DomainID, 0, len(r.Devices)+1)
	out = append(out, HostDomain)
	return append(out, r.Devices...)
}

// Dir returns the directory of a domain.
func (r Root) Dir(id DomainID) string {
	return filepath.Join(r.Path, id.String())
}

// DBPath returns the path of a feature database for a domain.
func (r Root) DBPath(id DomainID, db string) string {
	return filepath.Join(r.Dir(id), sqliteDir, db)
}

// IsRoot reports whether dir carries the capture marker.
func IsRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, hostDir, MarkerFile))
	return err == nil && !info.IsDir()
}

// Discover resolves path into one or more capture roots. path is either a
// capture root itself or a directory whose immediate children are roots.
func Discover(path string) ([]Root, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, analysis.Configuration(fmt.Errorf("stat %s: %w", path, err), "capture", "discover")
	}
	if !info.IsDir() {
		return nil, analysis.Configuration(fmt.Errorf("%s: %w", path, analysis.ErrNotCapture), "capture", "discover")
	}
	if IsRoot(path) {
		root, err := openRoot(path)
		if err != nil {
			return nil, err
		}
		return []Root{root}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, analysis.Configuration(fmt.Errorf("listing %s: %w", path, err), "capture", "discover")
	}
	var roots []Root
	for _, e := range entries {
		child := filepath.Join(path, e.Name())
		if !e.IsDir() || !IsRoot(child) {
			continue
		}
		root, err := openRoot(child)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	if len(roots) == 0 {
		return nil, analysis.Configuration(fmt.Errorf("%s: %w", path, analysis.ErrNotCapture), "capture", "discover")
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Path < roots[j].Path })
	return roots, nil
}

func openRoot(path string) (Root, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return Root{}, analysis.Configuration(fmt.Errorf("listing %s: %w", path, err), "capture", "discover")
	}
	root := Root{Path: path}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), devicePrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), devicePrefix))
		if err != nil || n < 0 {
			continue // e.g. device_tmp
		}
		root.Devices = append(root.Devices, DomainID(n))
	}
	sort.Slice(root.Devices, func(i, j int) bool { return root.Devices[i] < root.Devices[j] })
	return root, nil
}
