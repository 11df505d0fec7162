// Package extractor reads the feature tables of a capture, converts every
// timestamp onto the display timeline and publishes typed record
// collections into the inventory.
//
// Reading guide:
//   - extractor.go: the Extractor interface and the shared table-reading loop
//   - host.go: host-domain features (hash dictionary, API calls, MSTX)
//   - device.go: cycle-stamped device features
//   - sampled.go: device metrics stamped with device monotonic time
//   - enums.go: protocol enumerations rendered as text
package extractor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kali20gakki/msprof-sub029/analysis"
	"github.com/kali20gakki/msprof-sub029/analysis/capture"
	"github.com/kali20gakki/msprof-sub029/analysis/clock"
	"github.com/kali20gakki/msprof-sub029/analysis/dbreader"
	"github.com/kali20gakki/msprof-sub029/analysis/inventory"
	"github.com/kali20gakki/msprof-sub029/analysis/record"
)

// Extractor is one per-feature read-normalize-publish unit of work.
type Extractor interface {
	Name() string
	Run(ctx context.Context, inv *inventory.Inventory) error
}

// Source is the capture an extractor reads from.
type Source struct {
	Roots  []capture.Root
	Clocks *clock.Registry
}

// Extractor names.
const (
	GeHash        = "ge_hash"
	StepTrace     = "step_trace"
	TaskTime      = "task_time"
	Communication = "communication"
	HostAPI       = "host_api"
	MsprofTx      = "msprof_tx"
	NpuMem        = "npu_mem"
	HBM           = "hbm"
	PCIe          = "pcie"
	HCCS          = "hccs"
	AICoreFreq    = "aicore_freq"
)

// Prerequisite returns the extractor every other one may depend on.
func Prerequisite(src Source) Extractor {
	return newGeHash(src)
}

// Parallel returns the extractors that run concurrently after the
// prerequisite, in a stable order.
func Parallel(src Source) []Extractor {
	return []Extractor{
		newStepTrace(src),
		newTaskTime(src),
		newCommunication(src),
		newHostAPI(src),
		newMsprofTx(src),
		newNpuMem(src),
		newHBM(src),
		newPCIe(src),
		newHCCS(src),
		newAICoreFreq(src),
	}
}

// table is one feature table and its fixed query.
type table struct {
	db       string
	name     string
	query    string
	required bool
}

// scope selects which domains of a root carry a table.
type scope int

const (
	hostScope scope = iota
	deviceScope
)

// feature is an Extractor over one table in every matching domain of every
// root. The rows of all domains form the single published collection.
type feature[T any] struct {
	name  string
	src   Source
	table table
	scope scope
	scan  func(c converter) dbreader.ScanFunc[T]
}

func (f *feature[T]) Name() string { return f.name }

func (f *feature[T]) Run(ctx context.Context, inv *inventory.Inventory) error {
	var (
		out   []T
		found bool
	)
	names := hashDict(inv)
	for _, root := range f.src.Roots {
		for _, id := range f.domains(root) {
			d, ok := f.src.Clocks.Domain(root, id)
			if !ok {
				return analysis.Configuration(fmt.Errorf("%s/%s: no clock calibration", root.Path, id), f.name, "run")
			}
			path := root.DBPath(id, f.table.db)
			status := dbreader.Check(ctx, path, f.table.name, f.table.required)
			switch status.Presence {
			case dbreader.Present:
				c := converter{domain: d, window: f.src.Clocks.Window(), names: names}
				recs, err := dbreader.ReadAll(ctx, path, f.table.name, f.table.query, f.scan(c))
				if err != nil {
					return fmt.Errorf("%s: %w", f.name, err)
				}
				logrus.Debugf("%s: %d rows from %s", f.name, len(recs), path)
				out = append(out, recs...)
				found = true
			case dbreader.AbsentOptional:
				logrus.Debugf("%s: %s has no %s", f.name, root.Dir(id), f.table.name)
			case dbreader.AbsentRequired, dbreader.Corrupt:
				return fmt.Errorf("%s: %w", f.name, status.Err)
			default:
				return analysis.Corrupt(fmt.Errorf("unknown table presence %d", status.Presence), f.name, "run")
			}
		}
	}
	if !found {
		return analysis.Unavailable(fmt.Errorf("%s: %w", f.table.name, analysis.ErrTableMissing), f.name, "run")
	}
	return inventory.Publish(inv, out)
}

func (f *feature[T]) domains(root capture.Root) []capture.DomainID {
	if f.scope == hostScope {
		return []capture.DomainID{capture.HostDomain}
	}
	return root.Devices
}

// hashDict returns the published hash dictionary; names stay unresolved
// when the prerequisite published nothing.
func hashDict(inv *inventory.Inventory) record.HashDict {
	entries, _ := inventory.Lookup[record.HashEntry](inv)
	return record.NewHashDict(entries)
}

// converter applies the clock of one domain to the rows of one table.
type converter struct {
	domain clock.Domain
	window clock.Window
	names  record.HashDict
}

// deviceID is the device index of the domain, -1 for the host.
func (c converter) deviceID() int { return int(c.domain.ID) }

// cycles converts an absolute cycle reading to display ns and reports
// whether it falls inside the session window.
func (c converter) cycles(raw int64) (int64, bool) {
	host := c.domain.HostMonotonic(raw)
	return c.window.Rebase(host), c.window.Contains(host)
}

// optionalCycles converts a cycle reading that is 0 when the mark is absent.
func (c converter) optionalCycles(raw int64) int64 {
	if raw == 0 {
		return 0
	}
	ns, _ := c.cycles(raw)
	return ns
}

// duration converts a cycle delta to ns.
func (c converter) duration(delta int64) int64 {
	return c.domain.ConvertDuration(delta)
}

// sample converts a domain-local monotonic ns sample to display ns and
// reports whether it falls inside the session window.
func (c converter) sample(monoNs int64) (int64, bool) {
	host := c.domain.AlignSample(monoNs)
	return c.window.Rebase(host), c.window.Contains(host)
}
