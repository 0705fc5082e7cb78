// Package sim plays a simulated cluster forward against a harness record,
// standing in for the consensus engine's node tasks during tests.
package sim

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/twmb/murmur3"

	"github.com/quorumlab/bftreplay/consensus"
	"github.com/quorumlab/bftreplay/harness"
)

const payloadSize = 64

// Driver advances a cluster deterministically: one iteration per height,
// resampling the alive set, having every alive node persist its WAL state
// and recording the height's commit. Two drivers with the same seed and
// sampler produce identical cluster state.
type Driver struct {
	rec    *harness.Record
	rng    *rand.Rand
	logger kitlog.Logger
}

func New(rec *harness.Record, seed int64, logger kitlog.Logger) *Driver {
	return &Driver{
		rec:    rec,
		rng:    rand.New(rand.NewSource(seed)),
		logger: kitlog.With(logger, "component", "sim"),
	}
}

// Run plays the cluster forward by the given number of heights.
func (d *Driver) Run(ctx context.Context, heights uint64) error {
	var prevHash []byte

	for h := uint64(1); h <= heights; h++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		alive := d.rec.UpdateAlive()
		block := d.makeBlock(h, prevHash)
		prevHash = block.Hash

		for _, node := range alive {
			w, ok := d.rec.Wal(node.Address)
			if !ok {
				return fmt.Errorf("no wal for node %s", node.Address.Hex())
			}

			info := &consensus.WalInfo{
				Height: h,
				Round:  uint64(d.rng.Intn(3)),
				Step:   consensus.StepPrecommit,
			}

			// Roughly half the nodes persist a locked proposal.
			if d.rng.Intn(2) == 0 {
				info.Step = consensus.StepCommit
				info.Lock = &consensus.Lock{
					Round: info.Round,
					Block: block,
				}
			}

			if err := w.Save(ctx, consensus.Encode(info)); err != nil {
				return fmt.Errorf("failed to save wal of %s: %w", node.Address.Hex(), err)
			}

			d.rec.SetHeight(node.Address, h)
		}

		d.rec.Commits().Insert(h, harness.Fingerprint(block.Hash))

		level.Debug(d.logger).Log("msg", "height committed", "height", h, "alive", len(alive))
	}

	return nil
}

func (d *Driver) makeBlock(height uint64, prevHash []byte) consensus.Block {
	payload := make([]byte, payloadSize)
	_, _ = d.rng.Read(payload)

	h1, h2 := murmur3.Sum128(payload)

	hash := make([]byte, 16)
	binary.BigEndian.PutUint64(hash[:8], h1)
	binary.BigEndian.PutUint64(hash[8:], h2)

	return consensus.Block{
		Height:   height,
		PrevHash: prevHash,
		Hash:     hash,
		Payload:  payload,
	}
}
