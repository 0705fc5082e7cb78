package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fp(b byte) Fingerprint {
	return Fingerprint{b, b, b, b}
}

func TestCommitCache_Bounded(t *testing.T) {
	cache := NewCommitCache()

	for h := uint64(1); h <= 15; h++ {
		cache.Insert(h, fp(byte(h)))
	}

	require.Equal(t, 10, cache.Len())

	// Heights 1-5 were the least recently touched.
	for h := uint64(1); h <= 5; h++ {
		_, ok := cache.Get(h)
		require.False(t, ok, "height %d should have been evicted", h)
	}

	for h := uint64(6); h <= 15; h++ {
		got, ok := cache.Get(h)
		require.True(t, ok)
		require.Equal(t, fp(byte(h)), got)
	}
}

func TestCommitCache_EvictsLeastRecentlyTouched(t *testing.T) {
	cache := NewCommitCache()

	for h := uint64(1); h <= 10; h++ {
		cache.Insert(h, fp(byte(h)))
	}

	// Touch height 1 so height 2 becomes the eviction candidate.
	_, ok := cache.Get(1)
	require.True(t, ok)

	cache.Insert(11, fp(11))

	_, ok = cache.Get(2)
	require.False(t, ok)

	_, ok = cache.Get(1)
	require.True(t, ok)
}

func TestCommitCache_EntriesOrder(t *testing.T) {
	cache := NewCommitCache()

	cache.Insert(0, fp(0))
	cache.Insert(1, fp(1))
	cache.Insert(2, fp(2))

	entries := cache.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, uint64(0), entries[0].Height)
	require.Equal(t, uint64(1), entries[1].Height)
	require.Equal(t, uint64(2), entries[2].Height)

	// Enumeration must not disturb recency: inserting one more entry
	// still evicts the oldest.
	for h := uint64(3); h <= 10; h++ {
		cache.Insert(h, fp(byte(h)))
	}

	_ = cache.Entries()
	cache.Insert(11, fp(11))

	_, ok := cache.Get(0)
	require.False(t, ok)
}

func TestCommitCache_ReinsertRestoresRecency(t *testing.T) {
	cache := NewCommitCache()
	for h := uint64(0); h < 10; h++ {
		cache.Insert(h, fp(byte(h)))
	}

	restored := NewCommitCache()
	for _, entry := range cache.Entries() {
		restored.Insert(entry.Height, entry.Fingerprint)
	}

	require.Equal(t, cache.Entries(), restored.Entries())

	cache.Insert(100, fp(100))
	restored.Insert(100, fp(100))

	require.Equal(t, cache.Entries(), restored.Entries())
}
