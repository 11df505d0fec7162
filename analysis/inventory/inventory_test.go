package inventory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alpha struct{ N int }
type beta struct{ S string }

func TestPublishLookup_RoundTripsByType(t *testing.T) {
	inv := New()
	require.NoError(t, Publish(inv, []alpha{{1}, {2}}))
	require.NoError(t, Publish(inv, []beta{{"x"}}))

	a, ok := Lookup[alpha](inv)
	require.True(t, ok)
	assert.Equal(t, []alpha{{1}, {2}}, a)

	b, ok := Lookup[beta](inv)
	require.True(t, ok)
	assert.Equal(t, []beta{{"x"}}, b)
}

func TestLookup_Unpublished(t *testing.T) {
	inv := New()
	_, ok := Lookup[alpha](inv)
	assert.False(t, ok)
	assert.False(t, Has[alpha](inv))
}

func TestPublish_Twice_IsError(t *testing.T) {
	inv := New()
	require.NoError(t, Publish(inv, []alpha{{1}}))

	err := Publish(inv, []alpha{{2}})

	assert.ErrorIs(t, err, ErrAlreadyPublished)
	got, _ := Lookup[alpha](inv)
	assert.Equal(t, []alpha{{1}}, got, "first publish wins; nothing is merged")
}

func TestPublish_NilIsEmptyCollection(t *testing.T) {
	inv := New()
	require.NoError(t, Publish[alpha](inv, nil))

	got, ok := Lookup[alpha](inv)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Len(t, got, 0)
}

func TestPublish_DistinctNamedTypesDoNotCollide(t *testing.T) {
	type local alpha
	inv := New()
	require.NoError(t, Publish(inv, []alpha{{1}}))
	require.NoError(t, Publish(inv, []local{{2}}))
	assert.Equal(t, 2, inv.Len())
}

type slot0 struct{ v int }
type slot1 struct{ v int }
type slot2 struct{ v int }
type slot3 struct{ v int }

func TestPublish_ConcurrentDistinctTypes(t *testing.T) {
	// GIVEN producers publishing different types from different goroutines
	inv := New()
	var wg sync.WaitGroup
	publishers := []func() error{
		func() error { return Publish(inv, []slot0{{0}}) },
		func() error { return Publish(inv, []slot1{{1}}) },
		func() error { return Publish(inv, []slot2{{2}}) },
		func() error { return Publish(inv, []slot3{{3}}) },
	}
	errs := make([]error, len(publishers))
	for i, p := range publishers {
		wg.Add(1)
		go func(i int, p func() error) {
			defer wg.Done()
			errs[i] = p()
		}(i, p)
	}
	wg.Wait()

	// THEN every collection is present after the join
	for i, err := range errs {
		assert.NoError(t, err, "publisher %d", i)
	}
	assert.Equal(t, 4, inv.Len())
	s2, ok := Lookup[slot2](inv)
	require.True(t, ok)
	assert.Equal(t, 2, s2[0].v)
}

func TestEntries_SortedWithCounts(t *testing.T) {
	inv := New()
	require.NoError(t, Publish(inv, []beta{{"a"}, {"b"}}))
	require.NoError(t, Publish(inv, []alpha{}))

	entries := inv.Entries()

	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Type: fmt.Sprintf("%T", alpha{}), Count: 0}, entries[0])
	assert.Equal(t, Entry{Type: fmt.Sprintf("%T", beta{}), Count: 2}, entries[1])
}

func TestTypes_SortedNames(t *testing.T) {
	inv := New()
	assert.Empty(t, inv.Types())

	require.NoError(t, Publish(inv, []beta{{"a"}}))
	require.NoError(t, Publish(inv, []alpha{}))

	assert.Equal(t, []string{fmt.Sprintf("%T", alpha{}), fmt.Sprintf("%T", beta{})}, inv.Types())
	assert.Equal(t, 2, inv.Len())
}
