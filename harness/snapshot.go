package harness

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/twmb/murmur3"

	"github.com/quorumlab/bftreplay/consensus"
	"github.com/quorumlab/bftreplay/internal/generic"
	"github.com/quorumlab/bftreplay/membership"
	"github.com/quorumlab/bftreplay/wal"
)

// The canonical snapshot form is a pure data projection of a Record. Every
// map becomes an ordered sequence of explicit key/value entries, opaque
// byte strings become fixed hex text, and WAL blobs are stored decoded,
// so the file is deterministic, diff-friendly and human-readable. The
// form only exists transiently during a save or load.

type nodeEntry struct {
	Address string `json:"address"`
}

type blockEntry struct {
	Height   uint64 `json:"height"`
	PrevHash string `json:"prev_hash"`
	Hash     string `json:"hash"`
	Payload  string `json:"payload"`
}

type lockEntry struct {
	Round uint64     `json:"round"`
	Block blockEntry `json:"block"`
}

type walStateEntry struct {
	Height uint64     `json:"height"`
	Round  uint64     `json:"round"`
	Step   string     `json:"step"`
	Lock   *lockEntry `json:"lock,omitempty"`
}

type walEntry struct {
	Address string         `json:"address"`
	State   *walStateEntry `json:"state"` // null when the node never saved
}

type commitEntry struct {
	Height      uint64 `json:"height"`
	Fingerprint string `json:"fingerprint"`
}

type heightEntry struct {
	Address string `json:"address"`
	Height  uint64 `json:"height"`
}

type snapshot struct {
	NodeRecord   []nodeEntry   `json:"node_record"`
	AliveRecord  []nodeEntry   `json:"alive_record"`
	WalRecord    []walEntry    `json:"wal_record"`
	CommitRecord []commitEntry `json:"commit_record"`
	HeightRecord []heightEntry `json:"height_record"`
	Interval     uint64        `json:"interval"`
}

// Save captures the cluster state into a pretty-printed JSON file at path.
// Each structure is locked independently only while it is being read, so a
// snapshot taken during concurrent mutation may combine moments that never
// coexisted; that looseness is part of the fixture contract. Failures are
// returned immediately and are meant to abort the test run.
func (r *Record) Save(path string) error {
	snap, err := r.toSnapshot()
	if err != nil {
		return fmt.Errorf("failed to project snapshot: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	level.Info(r.logger).Log("msg", "snapshot saved", "path", path, "bytes", len(data))

	return nil
}

// Load rebuilds a live Record from a snapshot file written by Save.
// Decoded WAL states are re-encoded into the exact binary blob the engine
// expects, commit entries are reinserted in file order to restore their
// recency, and heights and the alive set come back verbatim. conf supplies
// the sampler and logger for the new record; its Nodes and Interval fields
// are ignored in favor of the file contents.
func Load(path string, conf Config) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	rec, err := fromSnapshot(&snap, conf)
	if err != nil {
		return nil, err
	}

	level.Info(rec.logger).Log(
		"msg", "snapshot loaded",
		"path", path,
		"nodes", len(snap.NodeRecord),
	)

	return rec, nil
}

// StateHash returns a 64-bit digest of the canonical snapshot form. Two
// records with identical projected state hash identically, which turns
// pre/post-restore comparison into a single integer check.
func (r *Record) StateHash() (uint64, error) {
	snap, err := r.toSnapshot()
	if err != nil {
		return 0, err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return murmur3.Sum64(data), nil
}

func (r *Record) toSnapshot() (*snapshot, error) {
	ctx := context.Background()
	snap := &snapshot{Interval: r.interval}

	for _, node := range r.view.All() {
		snap.NodeRecord = append(snap.NodeRecord, nodeEntry{Address: node.Address.Hex()})
	}

	for _, node := range r.view.Alive() {
		snap.AliveRecord = append(snap.AliveRecord, nodeEntry{Address: node.Address.Hex()})
	}

	// WAL and height sequences are keyed by address. Sorting keeps the
	// file shape independent of map iteration order.
	walAddrs := generic.MapKeys(r.wals)
	generic.SortSlice(walAddrs, false)

	for _, addr := range walAddrs {
		entry := walEntry{Address: addr.Hex()}

		state, ok, err := r.wals[addr].Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load wal of %s: %w", addr.Hex(), err)
		}

		// An absent value stays absent. Only present blobs are decoded.
		if ok {
			info, err := consensus.Decode(state)
			if err != nil {
				return nil, fmt.Errorf("corrupted wal state of %s: %w", addr.Hex(), err)
			}

			entry.State = toWalStateEntry(info)
		}

		snap.WalRecord = append(snap.WalRecord, entry)
	}

	for _, c := range r.commits.Entries() {
		snap.CommitRecord = append(snap.CommitRecord, commitEntry{
			Height:      c.Height,
			Fingerprint: hex.EncodeToString(c.Fingerprint),
		})
	}

	r.mut.Lock()
	heightAddrs := generic.MapKeys(r.heights)
	generic.SortSlice(heightAddrs, false)

	for _, addr := range heightAddrs {
		snap.HeightRecord = append(snap.HeightRecord, heightEntry{
			Address: addr.Hex(),
			Height:  r.heights[addr],
		})
	}
	r.mut.Unlock()

	return snap, nil
}

func fromSnapshot(snap *snapshot, conf Config) (*Record, error) {
	if conf.Sampler == nil {
		conf.Sampler = membership.NewQuorumSampler(0)
	}

	if conf.Logger == nil {
		conf.Logger = kitlog.NewNopLogger()
	}

	nodes := make([]membership.Node, 0, len(snap.NodeRecord))

	for _, entry := range snap.NodeRecord {
		addr, err := membership.ParseAddress(entry.Address)
		if err != nil {
			return nil, fmt.Errorf("bad roster entry: %w", err)
		}

		nodes = append(nodes, membership.NewNode(addr))
	}

	alive := make([]membership.Node, 0, len(snap.AliveRecord))

	for _, entry := range snap.AliveRecord {
		addr, err := membership.ParseAddress(entry.Address)
		if err != nil {
			return nil, fmt.Errorf("bad alive entry: %w", err)
		}

		alive = append(alive, membership.NewNode(addr))
	}

	wals := make(map[membership.Address]*wal.MockWal, len(snap.WalRecord))

	for _, entry := range snap.WalRecord {
		addr, err := membership.ParseAddress(entry.Address)
		if err != nil {
			return nil, fmt.Errorf("bad wal entry: %w", err)
		}

		if entry.State == nil {
			wals[addr] = wal.NewMockWal()
			continue
		}

		info, err := fromWalStateEntry(entry.State)
		if err != nil {
			return nil, fmt.Errorf("bad wal entry of %s: %w", entry.Address, err)
		}

		wals[addr] = wal.Restore(consensus.Encode(info))
	}

	commits := NewCommitCache()

	for _, entry := range snap.CommitRecord {
		fp, err := hex.DecodeString(entry.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("bad commit entry: %w", err)
		}

		commits.Insert(entry.Height, fp)
	}

	heights := make(map[membership.Address]uint64, len(snap.HeightRecord))

	for _, entry := range snap.HeightRecord {
		addr, err := membership.ParseAddress(entry.Address)
		if err != nil {
			return nil, fmt.Errorf("bad height entry: %w", err)
		}

		heights[addr] = entry.Height
	}

	return &Record{
		view:     membership.RestoreView(nodes, alive, conf.Sampler),
		wals:     wals,
		commits:  commits,
		heights:  heights,
		interval: snap.Interval,
		logger:   kitlog.With(conf.Logger, "component", "record"),
	}, nil
}

func toWalStateEntry(info *consensus.WalInfo) *walStateEntry {
	entry := &walStateEntry{
		Height: info.Height,
		Round:  info.Round,
		Step:   info.Step.String(),
	}

	if info.Lock != nil {
		entry.Lock = &lockEntry{
			Round: info.Lock.Round,
			Block: blockEntry{
				Height:   info.Lock.Block.Height,
				PrevHash: hex.EncodeToString(info.Lock.Block.PrevHash),
				Hash:     hex.EncodeToString(info.Lock.Block.Hash),
				Payload:  hex.EncodeToString(info.Lock.Block.Payload),
			},
		}
	}

	return entry
}

func fromWalStateEntry(entry *walStateEntry) (*consensus.WalInfo, error) {
	step, err := consensus.ParseStep(entry.Step)
	if err != nil {
		return nil, err
	}

	info := &consensus.WalInfo{
		Height: entry.Height,
		Round:  entry.Round,
		Step:   step,
	}

	if entry.Lock != nil {
		prevHash, err := hex.DecodeString(entry.Lock.Block.PrevHash)
		if err != nil {
			return nil, fmt.Errorf("bad prev_hash: %w", err)
		}

		hash, err := hex.DecodeString(entry.Lock.Block.Hash)
		if err != nil {
			return nil, fmt.Errorf("bad hash: %w", err)
		}

		payload, err := hex.DecodeString(entry.Lock.Block.Payload)
		if err != nil {
			return nil, fmt.Errorf("bad payload: %w", err)
		}

		info.Lock = &consensus.Lock{
			Round: entry.Lock.Round,
			Block: consensus.Block{
				Height:   entry.Lock.Block.Height,
				PrevHash: prevHash,
				Hash:     hash,
				Payload:  payload,
			},
		}
	}

	return info, nil
}
