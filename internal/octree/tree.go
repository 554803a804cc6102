package octree

import (
	"math"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/physics"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxDepth bounds subdivision. Bodies that still share a leaf at this depth
// are chained in that leaf instead of splitting it further.
const MaxDepth = 32

type Kind uint8

const (
	External Kind = iota
	Internal
)

func (k Kind) String() string {
	if k == Internal {
		return "internal"
	}
	return "external"
}

// Node is one cubic cell of the tree. Internal nodes own the eight
// contiguous nodes starting at Child; external nodes hold a chain of body
// indices starting at Body, or -1 when empty.
type Node struct {
	Kind   Kind
	Center r3.Vec
	Half   float64
	Mass   float64
	CoM    r3.Vec
	Body   int32
	Child  int32
}

// Tree is an arena octree rebuilt from scratch on every Build. The arena is
// kept between builds to avoid reallocating.
type Tree struct {
	nodes []Node
	next  []int32
	aos   []bodies.Body
	depth int
}

func New() *Tree {
	return &Tree{}
}

// Bounds returns the cube enclosing every real body: its side is the
// largest axis extent and it is centered on the box midpoint.
func Bounds(s *bodies.Store) (center r3.Vec, size float64) {
	bs := s.Bodies()
	lo, hi := bs[0].Pos, bs[0].Pos
	for _, b := range bs[1:] {
		lo = r3.Vec{X: math.Min(lo.X, b.Pos.X), Y: math.Min(lo.Y, b.Pos.Y), Z: math.Min(lo.Z, b.Pos.Z)}
		hi = r3.Vec{X: math.Max(hi.X, b.Pos.X), Y: math.Max(hi.Y, b.Pos.Y), Z: math.Max(hi.Z, b.Pos.Z)}
	}
	ext := r3.Sub(hi, lo)
	size = math.Max(ext.X, math.Max(ext.Y, ext.Z))
	center = r3.Scale(0.5, r3.Add(lo, hi))
	return center, size
}

// Build discards the previous tree and inserts every real body of s, then
// aggregates mass and center of mass bottom-up. The tree reads s until the
// next Build; s must not be mutated while Accel is in use.
func (t *Tree) Build(s *bodies.Store) {
	t.aos = s.AoS()
	t.nodes = t.nodes[:0]
	t.depth = 0
	if cap(t.next) < s.N() {
		t.next = make([]int32, s.N())
	}
	t.next = t.next[:s.N()]
	for i := range t.next {
		t.next[i] = -1
	}

	center, size := Bounds(s)
	t.nodes = append(t.nodes, Node{
		Kind:   External,
		Center: center,
		Half:   size / 2,
		CoM:    center,
		Body:   -1,
		Child:  -1,
	})
	for i := 0; i < s.N(); i++ {
		t.insert(int32(i))
	}
	t.aggregate()
}

func octant(center, p r3.Vec) int32 {
	var o int32
	if p.X > center.X {
		o |= 1
	}
	if p.Y > center.Y {
		o |= 2
	}
	if p.Z > center.Z {
		o |= 4
	}
	return o
}

func (t *Tree) insert(b int32) {
	body := t.aos[b]
	n := int32(0)
	depth := 0
	for {
		node := &t.nodes[n]
		if node.Kind == Internal {
			n = node.Child + octant(node.Center, body.Pos)
			depth++
			continue
		}

		if node.Body < 0 {
			node.Body = b
			node.Mass = body.Mass
			node.CoM = body.Pos
			t.depth = max(t.depth, depth)
			return
		}

		if depth >= MaxDepth || node.Half == 0 || t.aos[node.Body].Pos == body.Pos {
			t.chain(node, b)
			return
		}

		t.split(n)
	}
}

// chain adds b to an occupied leaf that can no longer be subdivided.
func (t *Tree) chain(node *Node, b int32) {
	body := t.aos[b]
	t.next[b] = node.Body
	node.Body = b

	m := node.Mass + body.Mass
	if m > 0 {
		node.CoM = r3.Scale(1/m, r3.Add(r3.Scale(node.Mass, node.CoM), r3.Scale(body.Mass, body.Pos)))
	}
	node.Mass = m
}

// split turns leaf n into an internal node and moves its bodies into the
// matching child.
func (t *Tree) split(n int32) {
	parent := t.nodes[n]
	h := parent.Half / 2
	first := int32(len(t.nodes))
	for o := 0; o < 8; o++ {
		c := parent.Center
		c.X += offset(o&1, h)
		c.Y += offset(o&2, h)
		c.Z += offset(o&4, h)
		t.nodes = append(t.nodes, Node{Kind: External, Center: c, Half: h, CoM: c, Body: -1, Child: -1})
	}

	child := &t.nodes[first+octant(parent.Center, parent.CoM)]
	child.Body = parent.Body
	child.Mass = parent.Mass
	child.CoM = parent.CoM

	node := &t.nodes[n]
	node.Kind = Internal
	node.Child = first
	node.Body = -1
	node.Mass = 0
	node.CoM = node.Center
}

func offset(bit int, h float64) float64 {
	if bit != 0 {
		return h
	}
	return -h
}

// aggregate walks the arena backwards so children are summed before
// their parent.
func (t *Tree) aggregate() {
	for n := len(t.nodes) - 1; n >= 0; n-- {
		node := &t.nodes[n]
		if node.Kind != Internal {
			continue
		}
		var mass float64
		var weighted r3.Vec
		for c := node.Child; c < node.Child+8; c++ {
			child := &t.nodes[c]
			mass += child.Mass
			weighted = r3.Add(weighted, r3.Scale(child.Mass, child.CoM))
		}
		node.Mass = mass
		if mass > 0 {
			node.CoM = r3.Scale(1/mass, weighted)
		} else {
			node.CoM = node.Center
		}
	}
}

// Accel returns the acceleration on real body i. Leaves are summed exactly
// and i itself is skipped; an internal node is taken as a point mass when
// (2·Half)² ≤ d²·θ², with d the distance to its center of mass.
func (t *Tree) Accel(i int, g, softening, theta float64) r3.Vec {
	eps2 := softening * softening
	theta2 := theta * theta
	p := t.aos[i].Pos
	self := int32(i)

	var acc r3.Vec
	var stack [8*MaxDepth + 8]int32
	top := 0
	stack[top] = 0
	top++

	for top > 0 {
		top--
		node := &t.nodes[stack[top]]
		if node.Mass == 0 {
			continue
		}

		if node.Kind == External {
			for b := node.Body; b >= 0; b = t.next[b] {
				if b == self || t.aos[b].Mass == 0 {
					continue
				}
				acc = r3.Add(acc, physics.Pull(g, eps2, p, t.aos[b].Pos, t.aos[b].Mass))
			}
			continue
		}

		size := 2 * node.Half
		d2 := r3.Norm2(r3.Sub(node.CoM, p))
		if size*size <= d2*theta2 {
			acc = r3.Add(acc, physics.Pull(g, eps2, p, node.CoM, node.Mass))
			continue
		}
		for c := node.Child; c < node.Child+8; c++ {
			stack[top] = c
			top++
		}
	}
	return acc
}

func (t *Tree) Root() Node       { return t.nodes[0] }
func (t *Tree) Node(idx int) Node { return t.nodes[idx] }
func (t *Tree) Len() int          { return len(t.nodes) }

// Depth is the deepest level at which a body was placed; the root is 0.
func (t *Tree) Depth() int { return t.depth }
