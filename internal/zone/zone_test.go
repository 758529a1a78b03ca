package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMallocWithinBudget(t *testing.T) {
	z := New(100)
	b := z.Malloc(40, TagCache, nil)
	require.Len(t, b.Bytes(), 40)

	st := z.Stats()
	assert.Equal(t, int64(40), st.UsedBytes)
	assert.Equal(t, 1, st.CacheBlocks)
	assert.Equal(t, 0, st.StaticBlocks)
	assert.Equal(t, uint64(0), st.Purges)
}

func TestPurgeOldestCacheBlockFirst(t *testing.T) {
	z := New(100)
	var purged []string
	first := z.Malloc(40, TagCache, func() { purged = append(purged, "first") })
	second := z.Malloc(40, TagCache, func() { purged = append(purged, "second") })

	z.Malloc(40, TagCache, nil)

	assert.Equal(t, []string{"first"}, purged)
	assert.Nil(t, first.Bytes())
	assert.Len(t, second.Bytes(), 40)
	assert.Equal(t, int64(80), z.Stats().UsedBytes)
}

func TestStaticBlocksSurvivePressure(t *testing.T) {
	z := New(100)
	locked := z.Malloc(60, TagCache, func() { t.Fatalf("static block must not be purged") })
	locked.MarkNonReclaimable()
	require.Equal(t, 1, z.Stats().StaticBlocks)

	var purged int
	z.Malloc(30, TagCache, func() { purged++ })
	z.Malloc(30, TagCache, nil)

	assert.Equal(t, 1, purged)
	assert.Len(t, locked.Bytes(), 60)
	assert.Equal(t, 1, z.Stats().StaticBlocks)
}

func TestOvercommitWhenOnlyStaticRemains(t *testing.T) {
	z := New(50)
	z.Malloc(50, TagStatic, nil)
	b := z.Malloc(10, TagCache, nil)

	assert.Len(t, b.Bytes(), 10)
	st := z.Stats()
	assert.Equal(t, uint64(1), st.Overcommits)
	assert.Equal(t, int64(60), st.UsedBytes)
}

func TestChangeTagRequeuesAsMostRecent(t *testing.T) {
	z := New(100)
	var purged []string
	a := z.Malloc(40, TagCache, func() { purged = append(purged, "a") })
	z.Malloc(40, TagCache, func() { purged = append(purged, "b") })

	// lock then unlock a: it becomes the most recently released block.
	a.MarkNonReclaimable()
	a.MarkReclaimable()

	z.Malloc(40, TagCache, nil)
	assert.Equal(t, []string{"b"}, purged)
}

func TestPurgeCacheAndHook(t *testing.T) {
	var hookBytes int
	z := New(0, WithPurgeHook(func(size int) { hookBytes += size }))
	z.Malloc(10, TagCache, nil)
	z.Malloc(20, TagCache, nil)
	z.Malloc(5, TagStatic, nil)

	assert.Equal(t, 2, z.PurgeCache())
	assert.Equal(t, 30, hookBytes)
	st := z.Stats()
	assert.Equal(t, int64(5), st.UsedBytes)
	assert.Equal(t, uint64(30), st.PurgedBytes)
}

func TestFreeDoesNotCallOwner(t *testing.T) {
	z := New(0)
	b := z.Malloc(8, TagCache, func() { t.Fatalf("owner should not run on Free") })
	z.Free(b)
	b.Release()
	assert.Nil(t, b.Bytes())
	assert.Equal(t, int64(0), z.Stats().UsedBytes)

	b.MarkNonReclaimable()
	assert.Equal(t, 0, z.Stats().StaticBlocks)
}
