package viewcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := NewMemoryStore()
	store.Set("a", 1)
	v, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestMemoryStore_SnapshotRestore(t *testing.T) {
	store := NewMemoryStore()
	store.Set("list", []int{1, 2, 3})
	store.Set("detail", "original")

	keys := []Key{"list", "detail", "absent"}
	snapshot := store.Snapshot(keys)

	store.Set("list", []int{9})
	store.Set("detail", "patched")
	store.Set("absent", "appeared mid-mutation")

	store.Restore(snapshot, keys)

	v, ok := store.Get("list")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, v)

	v, ok = store.Get("detail")
	require.True(t, ok)
	assert.Equal(t, "original", v)

	// A key absent at snapshot time is dropped again on restore.
	_, ok = store.Get("absent")
	assert.False(t, ok)
}

func TestMemoryStore_StaleFlag(t *testing.T) {
	store := NewMemoryStore()
	store.Set("board", "v1")
	assert.False(t, store.IsStale("board"))

	store.MarkStale("board", "not-present")
	assert.True(t, store.IsStale("board"))

	// Setting a fresh value clears the flag.
	store.Set("board", "v2")
	assert.False(t, store.IsStale("board"))
}

func TestMemoryStore_RefetchGenerations(t *testing.T) {
	store := NewMemoryStore()
	store.Set("list", "cached")

	gen := store.BeginRefetch("list")
	// A mutation cancels the in-flight refetch before patching.
	store.CancelRefetch("list")

	// The stale refetch completion must not clobber the speculative patch.
	assert.False(t, store.CompleteRefetch("list", gen, "stale network result"))
	v, _ := store.Get("list")
	assert.Equal(t, "cached", v)

	// A refetch begun after the cancel commits normally.
	gen = store.BeginRefetch("list")
	assert.True(t, store.CompleteRefetch("list", gen, "fresh"))
	v, _ = store.Get("list")
	assert.Equal(t, "fresh", v)
	assert.False(t, store.IsStale("list"))
}
