package wal

import (
	"context"
	"sync"
)

// MockWal is an in-memory Wal holding a single value. The lock is held
// only for the duration of one call, so no node's WAL access can block
// another's.
type MockWal struct {
	mut   sync.Mutex
	state []byte
	ok    bool
}

func NewMockWal() *MockWal {
	return &MockWal{}
}

// Restore returns a MockWal pre-seeded with the given state, as if it had
// been saved before. Used when rebuilding a cluster from a snapshot.
func Restore(state []byte) *MockWal {
	return &MockWal{
		state: append([]byte(nil), state...),
		ok:    true,
	}
}

// Save stores the state, fully replacing any previous value.
func (w *MockWal) Save(_ context.Context, state []byte) error {
	w.mut.Lock()
	defer w.mut.Unlock()

	w.state = append([]byte(nil), state...)
	w.ok = true

	return nil
}

// Load returns the last saved state. ok is false if nothing was ever saved.
func (w *MockWal) Load(_ context.Context) ([]byte, bool, error) {
	w.mut.Lock()
	defer w.mut.Unlock()

	if !w.ok {
		return nil, false, nil
	}

	return append([]byte(nil), w.state...), true, nil
}
