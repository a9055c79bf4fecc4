package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flipperdevices/furipipe/registry"
)

type fakeChain struct {
	id string
}

func (f fakeChain) ChainID() string { return f.id }

func TestAddGetRemove(t *testing.T) {
	r := registry.New()
	require.Equal(t, 0, r.Len())

	c := fakeChain{id: "chain-1"}
	r.Add(c)
	require.Equal(t, 1, r.Len())

	got, ok := r.Get("chain-1")
	require.True(t, ok)
	require.Equal(t, c, got)

	r.Remove("chain-1")
	require.Equal(t, 0, r.Len())

	_, ok = r.Get("chain-1")
	require.False(t, ok)
}

func TestAddOverwritesSameID(t *testing.T) {
	r := registry.New()
	r.Add(fakeChain{id: "chain-1"})
	r.Add(fakeChain{id: "chain-1"})
	require.Equal(t, 1, r.Len())
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	r := registry.New()
	require.NotPanics(t, func() { r.Remove("nonexistent") })
}

func TestRange(t *testing.T) {
	r := registry.New()
	r.Add(fakeChain{id: "a"})
	r.Add(fakeChain{id: "b"})
	r.Add(fakeChain{id: "c"})

	seen := make(map[string]bool)
	r.Range(func(e registry.Entry) bool {
		seen[e.ChainID()] = true
		return true
	})
	require.Len(t, seen, 3)
	require.True(t, seen["a"] && seen["b"] && seen["c"])
}

func TestRangeStopsEarly(t *testing.T) {
	r := registry.New()
	r.Add(fakeChain{id: "a"})
	r.Add(fakeChain{id: "b"})

	count := 0
	r.Range(func(registry.Entry) bool {
		count++
		return false
	})
	require.Equal(t, 1, count)
}
