package clock

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kali20gakki/msprof-sub029/analysis"
	"github.com/kali20gakki/msprof-sub029/analysis/capture"
)

type domainKey struct {
	root string
	id   capture.DomainID
}

// Registry holds the calibration of every domain of every capture root.
// It requires no synchronization after Load returns.
type Registry struct {
	domains map[domainKey]Domain
	window  Window
}

// Load reads calibration metadata for every domain of every root. A missing
// mandatory field or a non-positive frequency fails the whole load; a missing
// end-of-capture marker leaves the window unbounded.
func Load(roots []capture.Root, src capture.MetadataSource) (*Registry, error) {
	if len(roots) == 0 {
		return nil, configErr(fmt.Errorf("no capture roots: %w", analysis.ErrNotCapture))
	}
	reg := &Registry{domains: make(map[domainKey]Domain)}
	seenDevices := make(map[capture.DomainID]string)

	for i, root := range roots {
		host, window, err := loadHost(root, src)
		if err != nil {
			return nil, err
		}
		reg.domains[domainKey{root.Path, capture.HostDomain}] = host
		if i == 0 {
			reg.window = window
		} else {
			reg.window = reg.window.merge(window)
		}

		for _, id := range root.Devices {
			if other, dup := seenDevices[id]; dup {
				return nil, configErr(fmt.Errorf("%s in %s and %s: %w", id, other, root.Path, analysis.ErrDuplicateDomain))
			}
			seenDevices[id] = root.Path
			dev, err := loadDevice(root, id, host, src)
			if err != nil {
				return nil, err
			}
			reg.domains[domainKey{root.Path, id}] = dev
		}
	}
	logrus.Debugf("clock window: start=%d end=%d base=%d offset=%d",
		reg.window.StartTimeNs, reg.window.EndTimeNs, reg.window.BaseTimeNs, reg.window.FixedOffsetNs)
	return reg, nil
}

func loadHost(root capture.Root, src capture.MetadataSource) (Domain, Window, error) {
	md, err := src.Metadata(root, capture.HostDomain)
	if err != nil {
		return Domain{}, Window{}, err
	}
	d, err := baseDomain(root, md)
	if err != nil {
		return Domain{}, Window{}, err
	}
	startMono := d.CalibrationMonotonicNs

	// the drift term is a cycle count folded into the host monotonic reference
	if md.Start.CntvctDiff != nil && strings.TrimSpace(*md.Start.CntvctDiff) != "" {
		drift, err := parseInt(*md.Start.CntvctDiff)
		if err != nil {
			return Domain{}, Window{}, configErr(fmt.Errorf("%s cntvctDiff: %w", root.Path, err))
		}
		d.CalibrationMonotonicNs += d.ConvertDuration(drift)
	} else {
		logrus.Warnf("%s: no drift correction term; host/device alignment may lose precision", root.Path)
	}

	window := Window{StartTimeNs: startMono, BaseTimeNs: startMono, EndTimeNs: math.MaxInt64}
	if md.Start.CollectionTimeBegin != nil {
		beginUs, err := parseInt(*md.Start.CollectionTimeBegin)
		if err != nil {
			return Domain{}, Window{}, configErr(fmt.Errorf("%s collectionTimeBegin: %w", root.Path, err))
		}
		window.FixedOffsetNs = beginUs * 1000
	} else {
		logrus.Warnf("%s: no collectionTimeBegin; display timeline starts at 0", root.Path)
	}
	if md.End != nil && md.End.ClockMonotonicRaw != nil {
		end, err := parseInt(*md.End.ClockMonotonicRaw)
		if err != nil {
			return Domain{}, Window{}, configErr(fmt.Errorf("%s end clockMonotonicRaw: %w", root.Path, err))
		}
		window.EndTimeNs = end
	} else {
		logrus.Infof("%s: no end-of-capture marker; session window left open", root.Path)
	}
	return d, window, nil
}

func loadDevice(root capture.Root, id capture.DomainID, host Domain, src capture.MetadataSource) (Domain, error) {
	md, err := src.Metadata(root, id)
	if err != nil {
		return Domain{}, err
	}
	d, err := baseDomain(root, md)
	if err != nil {
		return Domain{}, err
	}
	d.OffsetNs = host.CalibrationMonotonicNs - d.CalibrationMonotonicNs
	return d, nil
}

// baseDomain validates the mandatory fields shared by host and devices.
func baseDomain(root capture.Root, md capture.Metadata) (Domain, error) {
	where := fmt.Sprintf("%s/%s", root.Path, md.Domain)
	if md.Frequency == nil {
		return Domain{}, configErr(fmt.Errorf("%s frequency: %w", where, analysis.ErrMissingField))
	}
	freq, err := ParseFrequency(*md.Frequency)
	if err != nil {
		return Domain{}, configErr(fmt.Errorf("%s: %w", where, err))
	}
	if strings.TrimSpace(*md.Frequency) == "" {
		logrus.Debugf("%s: blank frequency, using %s", where, DefaultFrequency)
	}
	if md.Start == nil {
		return Domain{}, configErr(fmt.Errorf("%s start_info: %w", where, analysis.ErrMissingField))
	}
	cycles, err := requiredInt(md.Start.Cntvct, where, "cntvct")
	if err != nil {
		return Domain{}, err
	}
	mono, err := requiredInt(md.Start.ClockMonotonicRaw, where, "clockMonotonicRaw")
	if err != nil {
		return Domain{}, err
	}
	return Domain{
		ID:                     md.Domain,
		Frequency:              freq,
		CalibrationCycles:      cycles,
		CalibrationMonotonicNs: mono,
	}, nil
}

func requiredInt(v *string, where, field string) (int64, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return 0, configErr(fmt.Errorf("%s %s: %w", where, field, analysis.ErrMissingField))
	}
	n, err := parseInt(*v)
	if err != nil {
		return 0, configErr(fmt.Errorf("%s %s: %w", where, field, err))
	}
	return n, nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func configErr(err error) error {
	return analysis.Configuration(err, "clock", "load")
}

// Window returns the session window.
func (r *Registry) Window() Window { return r.window }

// Domain returns the calibration of a domain of a root.
func (r *Registry) Domain(root capture.Root, id capture.DomainID) (Domain, bool) {
	d, ok := r.domains[domainKey{root.Path, id}]
	return d, ok
}

// Host returns the host domain of root.
func (r *Registry) Host(root capture.Root) (Domain, bool) {
	return r.Domain(root, capture.HostDomain)
}

// Display converts a raw cycle reading of d onto the display timeline.
func (r *Registry) Display(d Domain, rawCycles int64) int64 {
	return Rebase(d.HostMonotonic(rawCycles), r.window)
}

// ReconcileSampledTimestamp converts a domain-local monotonic sample onto
// the display timeline.
func (r *Registry) ReconcileSampledTimestamp(d Domain, sampleMonotonicNs int64) int64 {
	return Rebase(d.AlignSample(sampleMonotonicNs), r.window)
}
