package trace

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// ErrClosed is returned when appending to a closed Document.
var ErrClosed = errors.New("trace document is closed")

// Fragment is a comma-joined run of encoded events, without brackets.
// Each trace assembler produces one.
type Fragment struct {
	buf    bytes.Buffer
	counts map[Phase]int
}

// Add encodes e and appends it to the fragment. A failed encoding leaves the
// fragment unchanged.
func (f *Fragment) Add(e Event) error {
	mark := f.buf.Len()
	if mark > 0 {
		f.buf.WriteByte(',')
	}
	if err := Encode(&f.buf, e); err != nil {
		f.buf.Truncate(mark)
		return err
	}
	if f.counts == nil {
		f.counts = make(map[Phase]int)
	}
	f.counts[e.Phase()]++
	return nil
}

// Bytes returns the encoded events.
func (f *Fragment) Bytes() []byte { return f.buf.Bytes() }

// Empty reports whether no event was added.
func (f *Fragment) Empty() bool { return f.buf.Len() == 0 }

// Summary returns per-phase event counts of the fragment.
func (f *Fragment) Summary() *Summary {
	return summarize(f.counts)
}

// Document streams fragments into a single JSON array. The opening bracket
// is written on creation and the closing bracket exactly once by Close.
type Document struct {
	w         *bufio.Writer
	fragments int
	closed    bool
}

// NewDocument writes the opening bracket to w.
func NewDocument(w io.Writer) (*Document, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("["); err != nil {
		return nil, err
	}
	return &Document{w: bw}, nil
}

// Append writes a fragment, separated from the previous one by a comma.
// Empty fragments are skipped so the array never holds a dangling separator.
func (d *Document) Append(f *Fragment) error {
	if d.closed {
		return ErrClosed
	}
	if f == nil || f.Empty() {
		return nil
	}
	if d.fragments > 0 {
		if err := d.w.WriteByte(','); err != nil {
			return err
		}
	}
	if _, err := d.w.Write(f.Bytes()); err != nil {
		return err
	}
	d.fragments++
	return nil
}

// Fragments returns the number of non-empty fragments written.
func (d *Document) Fragments() int { return d.fragments }

// Close writes the closing bracket and flushes. Repeated calls are no-ops.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if _, err := d.w.WriteString("]\n"); err != nil {
		return err
	}
	return d.w.Flush()
}
