// Package clock reconciles the clock domains of a capture onto one shared
// nanosecond timeline.
//
// Each domain (the host, and every device) carries a hardware cycle counter
// and a calibration pair sampled at session start: a cycle reading and a
// monotonic-clock reading. A cycle-stamped value is converted as
//
//	domainNs  = round((raw - calibrationCycles) * 1000 / frequency)
//	hostNs    = calibrationMonotonicNs + domainNs + offset
//	displayNs = hostNs - window.BaseTimeNs + window.FixedOffsetNs
//
// where offset is hostCalibrationMonotonicNs - deviceCalibrationMonotonicNs
// (zero for the host). Sampled metrics that only carry a device monotonic
// reading skip the first two steps and take the offset directly.
//
// Frequencies are kept as exact rationals and every conversion is carried out
// in 128-bit integer arithmetic, rounding once at the end, so nanosecond epoch
// values never pass through a float64.
package clock
