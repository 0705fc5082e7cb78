// Package harness captures and restores the runtime state of a simulated
// consensus cluster, so integration tests can freeze a scenario to a file
// and rebuild an identical in-memory cluster later.
package harness

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/quorumlab/bftreplay/membership"
	"github.com/quorumlab/bftreplay/wal"
)

// fingerprintSize is the length of generated commit fingerprints in bytes.
const fingerprintSize = 32

type Config struct {
	Nodes    int
	Interval uint64 // simulation tick in milliseconds
	Sampler  membership.Sampler
	Logger   kitlog.Logger
}

func DefaultConfig() Config {
	return Config{
		Nodes:    4,
		Interval: 3000,
		Sampler:  membership.NewQuorumSampler(time.Now().UnixNano()),
		Logger:   kitlog.NewNopLogger(),
	}
}

// Record owns the whole runtime state of a simulated cluster: the
// membership view, one MockWal per node, the recent-commit cache and the
// per-node committed heights. Each structure is guarded independently, so
// operations on one never block operations on another. A snapshot taken
// while other tasks are mutating the record is therefore not an atomic
// cut across structures; see Save.
type Record struct {
	view     *membership.View
	wals     map[membership.Address]*wal.MockWal
	commits  *CommitCache
	interval uint64
	logger   kitlog.Logger

	mut     sync.Mutex // guards heights
	heights map[membership.Address]uint64
}

// New creates a cluster fixture with conf.Nodes freshly generated members.
// Every WAL starts empty, every height starts at zero, and the commit
// cache is seeded with a single bootstrap entry at height 0 carrying a
// random fingerprint. The structure of the fixture is fixed; only the
// generated content is random.
func New(conf Config) (*Record, error) {
	if conf.Sampler == nil {
		conf.Sampler = membership.NewQuorumSampler(time.Now().UnixNano())
	}

	if conf.Logger == nil {
		conf.Logger = kitlog.NewNopLogger()
	}

	nodes := make([]membership.Node, conf.Nodes)

	for i := range nodes {
		addr, err := membership.GenerateAddress()
		if err != nil {
			return nil, err
		}

		nodes[i] = membership.NewNode(addr)
	}

	wals := make(map[membership.Address]*wal.MockWal, len(nodes))
	heights := make(map[membership.Address]uint64, len(nodes))

	for _, node := range nodes {
		wals[node.Address] = wal.NewMockWal()
		heights[node.Address] = 0
	}

	fp, err := randomFingerprint()
	if err != nil {
		return nil, err
	}

	commits := NewCommitCache()
	commits.Insert(0, fp)

	rec := &Record{
		view:     membership.NewView(nodes, conf.Sampler),
		wals:     wals,
		commits:  commits,
		heights:  heights,
		interval: conf.Interval,
		logger:   kitlog.With(conf.Logger, "component", "record"),
	}

	level.Debug(rec.logger).Log(
		"msg", "cluster fixture created",
		"nodes", len(nodes),
		"interval", conf.Interval,
	)

	return rec, nil
}

func randomFingerprint() (Fingerprint, error) {
	buf := make([]byte, fingerprintSize)

	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate fingerprint: %w", err)
	}

	return buf, nil
}

// Nodes returns the full roster.
func (r *Record) Nodes() []membership.Node {
	return r.view.All()
}

// Alive returns the current alive subset.
func (r *Record) Alive() []membership.Node {
	return r.view.Alive()
}

// UpdateAlive resamples the alive subset and returns the new value.
func (r *Record) UpdateAlive() []membership.Node {
	alive := r.view.UpdateAlive()

	level.Debug(r.logger).Log("msg", "alive set updated", "alive", len(alive))

	return alive
}

// Wal returns the WAL owned by the given node. This is the capability
// handed to the consensus engine under test.
func (r *Record) Wal(addr membership.Address) (wal.Wal, bool) {
	w, ok := r.wals[addr]
	if !ok {
		return nil, false
	}

	return w, true
}

// Commits returns the recent-commit cache.
func (r *Record) Commits() *CommitCache {
	return r.commits
}

// Interval returns the simulation tick granularity in milliseconds.
func (r *Record) Interval() uint64 {
	return r.interval
}

// Height returns the last height the given node was seen to commit.
func (r *Record) Height(addr membership.Address) (uint64, bool) {
	r.mut.Lock()
	defer r.mut.Unlock()

	h, ok := r.heights[addr]

	return h, ok
}

// SetHeight records the node's latest committed height.
func (r *Record) SetHeight(addr membership.Address, height uint64) {
	r.mut.Lock()
	defer r.mut.Unlock()

	r.heights[addr] = height
}
