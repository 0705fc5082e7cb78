package membership

import (
	"math/rand"
	"sync"

	"github.com/quorumlab/bftreplay/internal/generic"
)

// Sampler decides which members of the roster are currently alive.
// Implementations must return a subset of the given nodes.
type Sampler interface {
	Sample(all []Node) []Node
}

// QuorumSampler takes a random subset of the roster while never going
// below the BFT quorum (2f+1 out of 3f+1), so a simulated cluster always
// keeps enough members online to make progress. The subset preserves
// roster order.
type QuorumSampler struct {
	mut sync.Mutex
	rng *rand.Rand
}

// NewQuorumSampler creates a sampler with the given seed. Two samplers
// with the same seed produce the same sequence of alive sets.
func NewQuorumSampler(seed int64) *QuorumSampler {
	return &QuorumSampler{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (s *QuorumSampler) Sample(all []Node) []Node {
	s.mut.Lock()
	defer s.mut.Unlock()

	n := len(all)
	if n == 0 {
		return nil
	}

	quorum := n - (n-1)/3

	count := quorum
	if n > quorum {
		count += s.rng.Intn(n - quorum + 1)
	}

	picked := s.rng.Perm(n)[:count]
	generic.SortSlice(picked, false)

	alive := make([]Node, 0, count)
	for _, i := range picked {
		alive = append(alive, all[i])
	}

	return alive
}
