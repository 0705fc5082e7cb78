// Package membership tracks the roster of a simulated cluster and the
// subset of members currently considered alive.
package membership

import "sync"

// View holds the full node roster and the alive subset. The roster is
// fixed at construction. The alive subset is recomputed by UpdateAlive and
// replaced atomically under the view's own lock, independent of any other
// cluster structure.
type View struct {
	all     []Node
	sampler Sampler

	mut   sync.RWMutex
	alive []Node
}

// NewView builds a view over the given roster and computes the initial
// alive subset with the sampler.
func NewView(all []Node, sampler Sampler) *View {
	return &View{
		all:     all,
		sampler: sampler,
		alive:   sampler.Sample(all),
	}
}

// RestoreView rebuilds a view from a previously captured roster and alive
// subset, without resampling.
func RestoreView(all, alive []Node, sampler Sampler) *View {
	return &View{
		all:     all,
		sampler: sampler,
		alive:   alive,
	}
}

// All returns the full roster.
func (v *View) All() []Node {
	nodes := make([]Node, len(v.all))
	copy(nodes, v.all)

	return nodes
}

// Alive returns the current alive subset.
func (v *View) Alive() []Node {
	v.mut.RLock()
	defer v.mut.RUnlock()

	nodes := make([]Node, len(v.alive))
	copy(nodes, v.alive)

	return nodes
}

// UpdateAlive resamples the alive subset from the roster and replaces the
// previous value. The new subset is returned so callers can assert on the
// cluster composition change. Repeated calls simply resample.
func (v *View) UpdateAlive() []Node {
	alive := v.sampler.Sample(v.all)

	v.mut.Lock()
	v.alive = alive
	v.mut.Unlock()

	nodes := make([]Node, len(alive))
	copy(nodes, alive)

	return nodes
}
