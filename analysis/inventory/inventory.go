// Package inventory is the typed hand-off store between extractors and
// assemblers. Each record type is published at most once; lookups happen
// after every producer has finished.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrAlreadyPublished is returned when a record type is published twice.
var ErrAlreadyPublished = errors.New("collection already published")

// Inventory maps a record type to the one collection published for it
// (goroutine-safe for Publish of distinct types).
type Inventory struct {
	mu    sync.Mutex
	slots map[any]slot
}

type slot struct {
	name  string
	items any
	count int
}

// New creates an empty Inventory.
func New() *Inventory {
	return &Inventory{slots: make(map[any]slot)}
}

// key returns a value unique to T: the typed nil pointer compares equal only
// to itself.
func key[T any]() any { return (*T)(nil) }

// Publish stores items as the collection for type T. A nil slice is stored as
// an empty collection, so a published-but-empty feature is distinguishable
// from one that never ran.
func Publish[T any](inv *Inventory, items []T) error {
	if items == nil {
		items = []T{}
	}
	k := key[T]()

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, exists := inv.slots[k]; exists {
		return fmt.Errorf("%T: %w", *new(T), ErrAlreadyPublished)
	}
	inv.slots[k] = slot{name: fmt.Sprintf("%T", *new(T)), items: items, count: len(items)}
	return nil
}

// Lookup returns the collection published for T.
func Lookup[T any](inv *Inventory) ([]T, bool) {
	inv.mu.Lock()
	s, ok := inv.slots[key[T]()]
	inv.mu.Unlock()
	if !ok {
		return nil, false
	}
	items, ok := s.items.([]T)
	return items, ok
}

// Has reports whether T was published.
func Has[T any](inv *Inventory) bool {
	_, ok := Lookup[T](inv)
	return ok
}

// Entry describes one published collection.
type Entry struct {
	Type  string
	Count int
}

// Entries lists the published collections, sorted by type name.
func (inv *Inventory) Entries() []Entry {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]Entry, 0, len(inv.slots))
	for _, s := range inv.slots {
		out = append(out, Entry{Type: s.name, Count: s.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Len returns the number of published collections.
func (inv *Inventory) Len() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return len(inv.slots)
}

// Types lists the names of the published collections, sorted.
func (inv *Inventory) Types() []string {
	entries := inv.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Type
	}
	return out
}
