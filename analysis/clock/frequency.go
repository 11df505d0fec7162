package clock

import (
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"strings"

	"github.com/kali20gakki/msprof-sub029/analysis"
)

// DefaultFrequency is used when the frequency source field is blank (cycles per µs).
const DefaultFrequency = "1000.0"

// maxDenominator bounds the rational so den*1000 fits in 64 bits.
const maxDenominator = math.MaxUint64 / 1000

// Frequency is a clock rate in cycles per microsecond, held as num/den.
type Frequency struct {
	num uint64
	den uint64
}

// ParseFrequency parses a decimal frequency. Blank text yields DefaultFrequency.
func ParseFrequency(text string) (Frequency, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = DefaultFrequency
	}
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return Frequency{}, fmt.Errorf("frequency %q: %w", text, analysis.ErrBadFrequency)
	}
	if r.Sign() <= 0 {
		return Frequency{}, fmt.Errorf("frequency %q: %w", text, analysis.ErrBadFrequency)
	}
	num, den := r.Num(), r.Denom()
	if !num.IsUint64() || !den.IsUint64() || den.Uint64() > maxDenominator {
		return Frequency{}, fmt.Errorf("frequency %q out of range", text)
	}
	return Frequency{num: num.Uint64(), den: den.Uint64()}, nil
}

// MustFrequency is ParseFrequency for constants; it panics on bad input.
func MustFrequency(text string) Frequency {
	f, err := ParseFrequency(text)
	if err != nil {
		panic(err)
	}
	return f
}

// MHz returns the frequency as a float, for logging only.
func (f Frequency) MHz() float64 {
	if f.den == 0 {
		return 0
	}
	return float64(f.num) / float64(f.den)
}

// Valid reports whether f was produced by ParseFrequency.
func (f Frequency) Valid() bool { return f.num > 0 && f.den > 0 }

// CyclesToNs converts a cycle count to nanoseconds: cycles * 1000 / frequency,
// rounded half away from zero. Results beyond the int64 range saturate.
func (f Frequency) CyclesToNs(cycles int64) int64 {
	if cycles == 0 {
		return 0
	}
	neg := cycles < 0
	mag := uint64(cycles)
	if neg {
		mag = uint64(-(cycles + 1)) + 1 // safe for MinInt64
	}
	q, ok := mulDivRound(mag, f.den*1000, f.num)
	if !ok || q > math.MaxInt64 {
		if neg {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	if neg {
		return -int64(q)
	}
	return int64(q)
}

// mulDivRound computes round(a*b/c) in 128-bit precision.
func mulDivRound(a, b, c uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, false
	}
	q, rem := bits.Div64(hi, lo, c)
	if rem >= c-rem { // rem*2 >= c without overflow
		if q == math.MaxUint64 {
			return 0, false
		}
		q++
	}
	return q, true
}
