// Package wal defines the write-ahead log capability the consensus engine
// requires from its storage backend, and an in-memory mock of it used by
// the replay harness.
package wal

import "context"

// Wal is the storage contract the engine runs against: keep the most
// recent durable state, not an append log. Save fully replaces the
// previous value. Load reports whether any state was ever saved, so that
// "never saved" is distinguishable from an empty blob. Implementations
// must be safe for concurrent use and must report failures to the caller
// rather than swallowing them.
type Wal interface {
	Save(ctx context.Context, state []byte) error
	Load(ctx context.Context) (state []byte, ok bool, err error)
}
