package sim

import (
	"context"
	"path/filepath"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/quorumlab/bftreplay/consensus"
	"github.com/quorumlab/bftreplay/harness"
	"github.com/quorumlab/bftreplay/membership"
)

// allAliveSampler keeps the whole roster online, making the run shape
// fully predictable.
type allAliveSampler struct{}

func (allAliveSampler) Sample(all []membership.Node) []membership.Node {
	return all
}

func testRecord(t *testing.T, nodes int) *harness.Record {
	t.Helper()

	conf := harness.DefaultConfig()
	conf.Nodes = nodes
	conf.Sampler = allAliveSampler{}

	rec, err := harness.New(conf)
	require.NoError(t, err)

	return rec
}

func TestDriver_Run(t *testing.T) {
	ctx := context.Background()
	rec := testRecord(t, 4)

	driver := New(rec, 1, kitlog.NewNopLogger())
	require.NoError(t, driver.Run(ctx, 5))

	// Bootstrap commit plus one commit per height.
	require.Equal(t, 6, rec.Commits().Len())

	entries := rec.Commits().Entries()
	for i, entry := range entries {
		require.Equal(t, uint64(i), entry.Height)
	}

	for _, node := range rec.Nodes() {
		h, ok := rec.Height(node.Address)
		require.True(t, ok)
		require.Equal(t, uint64(5), h)

		w, ok := rec.Wal(node.Address)
		require.True(t, ok)

		state, saved, err := w.Load(ctx)
		require.NoError(t, err)
		require.True(t, saved)

		info, err := consensus.Decode(state)
		require.NoError(t, err)
		require.Equal(t, uint64(5), info.Height)
	}
}

func TestDriver_CommitCacheStaysBounded(t *testing.T) {
	rec := testRecord(t, 4)

	driver := New(rec, 1, kitlog.NewNopLogger())
	require.NoError(t, driver.Run(context.Background(), 25))

	require.Equal(t, 10, rec.Commits().Len())

	// The ten most recent heights are retained.
	entries := rec.Commits().Entries()
	require.Equal(t, uint64(16), entries[0].Height)
	require.Equal(t, uint64(25), entries[len(entries)-1].Height)
}

func TestDriver_RoundTripAfterRun(t *testing.T) {
	rec := testRecord(t, 4)

	driver := New(rec, 7, kitlog.NewNopLogger())
	require.NoError(t, driver.Run(context.Background(), 12))

	path := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, rec.Save(path))

	conf := harness.DefaultConfig()
	conf.Sampler = allAliveSampler{}

	loaded, err := harness.Load(path, conf)
	require.NoError(t, err)

	want, err := rec.StateHash()
	require.NoError(t, err)

	got, err := loaded.StateHash()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDriver_Cancelled(t *testing.T) {
	rec := testRecord(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driver := New(rec, 1, kitlog.NewNopLogger())
	require.ErrorIs(t, driver.Run(ctx, 5), context.Canceled)
}
