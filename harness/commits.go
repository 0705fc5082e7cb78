package harness

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// commitCacheSize bounds how many recent commits the engine remembers.
const commitCacheSize = 10

// Fingerprint identifies a committed block at some height. Opaque bytes.
type Fingerprint []byte

// CommitEntry is one retained commit, produced when enumerating the cache.
type CommitEntry struct {
	Height      uint64
	Fingerprint Fingerprint
}

// CommitCache is a bounded height-to-fingerprint map with LRU eviction,
// modeling the engine's recent-commit memory. Safe for concurrent use.
type CommitCache struct {
	entries *lru.Cache
}

func NewCommitCache() *CommitCache {
	entries, err := lru.New(commitCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(fmt.Sprintf("lru: %v", err))
	}

	return &CommitCache{entries: entries}
}

// Insert adds or refreshes a commit and marks it most-recently-used,
// evicting the least-recently-touched entry when the cache is full.
func (c *CommitCache) Insert(height uint64, fp Fingerprint) {
	c.entries.Add(height, fp)
}

// Get returns the fingerprint committed at the given height, if it is
// still retained, and marks the entry most-recently-used.
func (c *CommitCache) Get(height uint64) (Fingerprint, bool) {
	v, ok := c.entries.Get(height)
	if !ok {
		return nil, false
	}

	return v.(Fingerprint), true
}

// Len returns the number of retained commits.
func (c *CommitCache) Len() int {
	return c.entries.Len()
}

// Entries returns the retained commits in recency order, least recently
// touched first, without disturbing that order. Feeding the entries back
// through Insert in the same order reproduces the recency state, which is
// how snapshots restore the cache.
func (c *CommitCache) Entries() []CommitEntry {
	keys := c.entries.Keys()
	entries := make([]CommitEntry, 0, len(keys))

	for _, key := range keys {
		v, ok := c.entries.Peek(key)
		if !ok {
			continue
		}

		entries = append(entries, CommitEntry{
			Height:      key.(uint64),
			Fingerprint: v.(Fingerprint),
		})
	}

	return entries
}
