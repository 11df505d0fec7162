package clock

import (
	"math"

	"github.com/kali20gakki/msprof-sub029/analysis/capture"
)

// Domain is the calibration record of one clock domain. Read-only after Load.
type Domain struct {
	ID                     capture.DomainID
	Frequency              Frequency
	CalibrationCycles      int64
	CalibrationMonotonicNs int64 // host: includes drift correction
	OffsetNs               int64 // hostCalibrationMonotonicNs - CalibrationMonotonicNs
}

// ConvertDuration converts a cycle delta to nanoseconds.
func (d Domain) ConvertDuration(cycleDelta int64) int64 {
	return d.Frequency.CyclesToNs(cycleDelta)
}

// ConvertAbsolute converts a raw cycle reading to ns since the domain's
// calibration point.
func (d Domain) ConvertAbsolute(rawCycles int64) int64 {
	return d.Frequency.CyclesToNs(rawCycles - d.CalibrationCycles)
}

// HostMonotonic places a raw cycle reading on the host monotonic axis.
func (d Domain) HostMonotonic(rawCycles int64) int64 {
	return saturatingAdd(saturatingAdd(d.CalibrationMonotonicNs, d.ConvertAbsolute(rawCycles)), d.OffsetNs)
}

// AlignSample places a domain-local monotonic sample on the host monotonic axis.
func (d Domain) AlignSample(sampleMonotonicNs int64) int64 {
	return saturatingAdd(sampleMonotonicNs, d.OffsetNs)
}

func saturatingAdd(a, b int64) int64 {
	s := a + b
	if a > 0 && b > 0 && s < 0 {
		return math.MaxInt64
	}
	if a < 0 && b < 0 && s >= 0 {
		return math.MinInt64
	}
	return s
}
