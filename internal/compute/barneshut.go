package compute

import (
	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/octree"
)

const bhChunk = 64

// BarnesHutBackend rebuilds an octree every step and approximates distant
// groups of bodies by their center of mass. The build is single-threaded;
// with more than one worker the per-body traversal is spread over
// goroutines that read the finished tree.
type BarnesHutBackend struct {
	workers int
	tree    *octree.Tree
}

func NewBarnesHutBackend(workers int) *BarnesHutBackend {
	if workers < 1 {
		workers = 1
	}
	return &BarnesHutBackend{workers: workers, tree: octree.New()}
}

func (c *BarnesHutBackend) Name() string {
	if c.workers > 1 {
		return string(BarnesHutParallel)
	}
	return string(BarnesHut)
}

func (c *BarnesHutBackend) Available() bool { return true }
func (c *BarnesHutBackend) Cleanup()        { c.tree = octree.New() }

// Tree exposes the octree built by the last step.
func (c *BarnesHutBackend) Tree() *octree.Tree { return c.tree }

func (c *BarnesHutBackend) Accelerations(s *bodies.Store, p Params, acc *bodies.Accelerations) {
	c.tree.Build(s)

	traverse := func(from, to int) {
		for i := from; i < to; i++ {
			acc.Set(i, c.tree.Accel(i, p.G, p.Softening, p.Theta))
		}
	}

	if c.workers == 1 {
		traverse(0, s.N())
		return
	}
	// Traversal cost varies per body, so ranges are claimed dynamically.
	guidedFor(s.N(), c.workers, bhChunk, traverse)
}
