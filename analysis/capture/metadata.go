package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kali20gakki/msprof-sub029/analysis"
)

const (
	startInfoFile = "start_info.json"
	endInfoFile   = "end_info.json"
	infoFile      = "info.json"
)

// StartInfo mirrors start_info.json. Values are decimal strings; a nil
// pointer means the field was absent.
type StartInfo struct {
	CollectionTimeBegin *string `json:"collectionTimeBegin"` // wall clock, µs
	ClockMonotonicRaw   *string `json:"clockMonotonicRaw"`   // ns
	Cntvct              *string `json:"cntvct"`              // cycles
	CntvctDiff          *string `json:"cntvctDiff"`          // drift term, cycles
}

// EndInfo mirrors end_info.json, the end-of-capture marker.
type EndInfo struct {
	CollectionTimeEnd *string `json:"collectionTimeEnd"`
	ClockMonotonicRaw *string `json:"clockMonotonicRaw"`
}

type hostInfo struct {
	CPU []struct {
		Frequency *string `json:"Frequency"`
	} `json:"CPU"`
}

type deviceInfo struct {
	DeviceInfo []struct {
		HwtsFrequency *string `json:"hwts_frequency"`
	} `json:"DeviceInfo"`
}

// Metadata is the raw calibration metadata of one clock domain.
// Start and End are nil when the file is missing; Frequency is nil when the
// frequency source field is missing and points at "" when it is blank.
type Metadata struct {
	Domain    DomainID
	Frequency *string
	Start     *StartInfo
	End       *EndInfo
}

// MetadataSource provides domain metadata for (root, domain).
type MetadataSource interface {
	Metadata(root Root, id DomainID) (Metadata, error)
}

// Files reads metadata from the JSON side-files in each domain directory.
type Files struct{}

// Metadata implements MetadataSource.
func (Files) Metadata(root Root, id DomainID) (Metadata, error) {
	dir := root.Dir(id)
	md := Metadata{Domain: id}

	var start StartInfo
	found, err := readJSON(filepath.Join(dir, startInfoFile), &start)
	if err != nil {
		return md, err
	}
	if found {
		md.Start = &start
	}

	var end EndInfo
	found, err = readJSON(filepath.Join(dir, endInfoFile), &end)
	if err != nil {
		return md, err
	}
	if found {
		md.End = &end
	}

	if id.IsHost() {
		var info hostInfo
		if _, err := readJSON(filepath.Join(dir, infoFile), &info); err != nil {
			return md, err
		}
		if len(info.CPU) > 0 {
			md.Frequency = info.CPU[0].Frequency
		}
	} else {
		var info deviceInfo
		if _, err := readJSON(filepath.Join(dir, infoFile), &info); err != nil {
			return md, err
		}
		if len(info.DeviceInfo) > 0 {
			md.Frequency = info.DeviceInfo[0].HwtsFrequency
		}
	}
	return md, nil
}

// readJSON decodes path into v. A missing file is reported as found=false
// without error; an unreadable or malformed file is a configuration error.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, analysis.Configuration(fmt.Errorf("reading %s: %w", path, err), "capture", "metadata")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, analysis.Configuration(fmt.Errorf("parsing %s: %w", path, err), "capture", "metadata")
	}
	return true, nil
}
