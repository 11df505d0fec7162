package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Micros renders a nanosecond value as microseconds with exactly three
// decimals (9598772 → 9598.772). It marshals as a JSON number.
type Micros int64

// String formats the value without going through float64.
func (m Micros) String() string {
	ns := int64(m)
	sign := ""
	u := uint64(ns)
	if ns < 0 {
		sign = "-"
		u = uint64(-(ns + 1)) + 1
	}
	return fmt.Sprintf("%s%d.%03d", sign, u/1000, u%1000)
}

// MarshalJSON implements json.Marshaler.
func (m Micros) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// Encode appends the JSON object for e to buf. It is the single serializer
// for every event variant.
func Encode(buf *bytes.Buffer, e Event) error {
	w := objectWriter{buf: buf}
	switch ev := e.(type) {
	case Duration:
		w.str("name", ev.Name)
		w.raw("ph", strconv.Quote(string(PhaseDuration)))
		w.num("pid", ev.PID)
		w.num("tid", ev.TID)
		w.raw("ts", Micros(ev.StartNs).String())
		w.raw("dur", Micros(ev.DurNs).String())
		if ev.Category != "" {
			w.str("cat", ev.Category)
		}
		w.args("args", ev.Args)
	case Instant:
		w.str("name", ev.Name)
		w.raw("ph", strconv.Quote(string(PhaseInstant)))
		w.num("pid", ev.PID)
		w.num("tid", ev.TID)
		w.raw("ts", Micros(ev.TsNs).String())
		w.str("s", "t")
		if ev.Category != "" {
			w.str("cat", ev.Category)
		}
		w.args("args", ev.Args)
	case Flow:
		w.str("name", ev.Name)
		w.raw("ph", strconv.Quote(string(ev.Phase())))
		w.str("id", ev.ID)
		w.num("pid", ev.PID)
		w.num("tid", ev.TID)
		w.raw("ts", Micros(ev.TsNs).String())
		if ev.Category != "" {
			w.str("cat", ev.Category)
		}
		if ev.Role == FlowEnd {
			w.str("bp", "e")
		}
	case Metadata:
		w.str("name", string(ev.Kind))
		w.raw("ph", strconv.Quote(string(PhaseMetadata)))
		w.num("pid", ev.PID)
		if ev.Kind == ThreadName || ev.Kind == ThreadSortIndex {
			w.num("tid", ev.TID)
		}
		w.args("args", metadataArgs(ev))
	case Counter:
		w.str("name", ev.Name)
		w.raw("ph", strconv.Quote(string(PhaseCounter)))
		w.num("pid", ev.PID)
		w.raw("ts", Micros(ev.TsNs).String())
		w.args("args", ev.Values)
	default:
		return fmt.Errorf("unknown trace event %T", e)
	}
	return w.close()
}

func metadataArgs(m Metadata) Args {
	switch m.Kind {
	case ProcessSortIndex, ThreadSortIndex:
		return Args{"sort_index": m.Value}
	case ProcessLabels:
		return Args{"labels": m.Value}
	default:
		return Args{"name": m.Value}
	}
}

// objectWriter writes one JSON object with fields in call order.
type objectWriter struct {
	buf    *bytes.Buffer
	fields int
	err    error
}

func (w *objectWriter) key(k string) {
	if w.fields == 0 {
		w.buf.WriteByte('{')
	} else {
		w.buf.WriteByte(',')
	}
	w.fields++
	w.buf.WriteString(strconv.Quote(k))
	w.buf.WriteByte(':')
}

func (w *objectWriter) raw(k, v string) {
	w.key(k)
	w.buf.WriteString(v)
}

func (w *objectWriter) str(k, v string) {
	b, err := json.Marshal(v)
	if err != nil && w.err == nil {
		w.err = err
	}
	w.key(k)
	w.buf.Write(b)
}

func (w *objectWriter) num(k string, v int) {
	w.raw(k, strconv.Itoa(v))
}

func (w *objectWriter) args(k string, a Args) {
	if a == nil {
		a = Args{}
	}
	// map keys come out sorted
	b, err := json.Marshal(a)
	if err != nil && w.err == nil {
		w.err = fmt.Errorf("encoding %s: %w", k, err)
	}
	w.key(k)
	w.buf.Write(b)
}

func (w *objectWriter) close() error {
	if w.fields == 0 {
		w.buf.WriteByte('{')
	}
	w.buf.WriteByte('}')
	return w.err
}
