package clock

import "math"

// Window is the session-wide time window. StartTimeNs, EndTimeNs and
// BaseTimeNs are host monotonic readings; FixedOffsetNs is the wall-clock
// time of session start, so rebased values read as wall-clock nanoseconds.
type Window struct {
	StartTimeNs   int64
	EndTimeNs     int64 // math.MaxInt64 when no end-of-capture marker exists
	BaseTimeNs    int64
	FixedOffsetNs int64
}

// Rebase translates a host monotonic value onto the display timeline.
// It is a pure translation: Rebase(a) - Rebase(b) == a - b.
func Rebase(ns int64, w Window) int64 {
	return ns - w.BaseTimeNs + w.FixedOffsetNs
}

// Rebase is the method form of the package-level Rebase.
func (w Window) Rebase(ns int64) int64 { return Rebase(ns, w) }

// Contains reports whether a host monotonic value falls inside the window.
func (w Window) Contains(hostNs int64) bool {
	return hostNs >= w.StartTimeNs && hostNs <= w.EndTimeNs
}

// Bounded reports whether an end-of-capture marker set EndTimeNs.
func (w Window) Bounded() bool { return w.EndTimeNs != math.MaxInt64 }

// merge widens w to cover o. The base and offset follow the earlier start.
func (w Window) merge(o Window) Window {
	out := w
	if o.StartTimeNs < w.StartTimeNs {
		out.StartTimeNs = o.StartTimeNs
		out.BaseTimeNs = o.BaseTimeNs
		out.FixedOffsetNs = o.FixedOffsetNs
	}
	if o.EndTimeNs > w.EndTimeNs {
		out.EndTimeNs = o.EndTimeNs
	}
	return out
}
