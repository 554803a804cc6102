package octree

import (
	"math"
	"testing"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/physics"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

const g = 6.67384e-11

func storeOf(t testing.TB, bs []bodies.Body) *bodies.Store {
	t.Helper()
	s, err := bodies.NewEmpty(len(bs))
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range bs {
		s.SetBody(i, b.Mass, b.Radius, b.Pos, b.Vel)
	}
	return s
}

func randomStore(t testing.TB, n int, seed uint64) *bodies.Store {
	t.Helper()
	rnd := rand.New(rand.NewSource(seed))
	bs := make([]bodies.Body, n)
	for i := range bs {
		bs[i] = bodies.Body{
			Mass: 1e20 + rnd.Float64()*1e21,
			Pos: r3.Vec{
				X: (rnd.Float64()*2 - 1) * 1e9,
				Y: (rnd.Float64()*2 - 1) * 1e9,
				Z: (rnd.Float64()*2 - 1) * 1e9,
			},
		}
	}
	return storeOf(t, bs)
}

func bruteForce(s *bodies.Store, i int, eps float64) r3.Vec {
	var a r3.Vec
	p := s.Position(i)
	for j, b := range s.Bodies() {
		if j == i {
			continue
		}
		a = r3.Add(a, physics.Pull(g, eps*eps, p, b.Pos, b.Mass))
	}
	return a
}

func TestBounds(t *testing.T) {
	s := storeOf(t, []bodies.Body{
		{Mass: 1, Pos: r3.Vec{X: -1, Y: 0, Z: 2}},
		{Mass: 1, Pos: r3.Vec{X: 3, Y: 1, Z: 2}},
		{Mass: 1, Pos: r3.Vec{X: 0, Y: -1, Z: 3}},
	})
	center, size := Bounds(s)
	if center != (r3.Vec{X: 1, Y: 0, Z: 2.5}) || size != 4 {
		t.Errorf("Bounds = %v, %v", center, size)
	}
}

func TestSingleBody(t *testing.T) {
	s := storeOf(t, []bodies.Body{{Mass: 7, Pos: r3.Vec{X: 1, Y: 2, Z: 3}}})
	tree := New()
	tree.Build(s)

	root := tree.Root()
	if tree.Len() != 1 || root.Kind != External {
		t.Fatalf("single body tree has %d nodes, root %v", tree.Len(), root.Kind)
	}
	if root.Mass != 7 || root.CoM != (r3.Vec{X: 1, Y: 2, Z: 3}) || root.Body != 0 {
		t.Errorf("root = %+v", root)
	}
	if a := tree.Accel(0, g, 0, 1); a != (r3.Vec{}) {
		t.Errorf("self acceleration = %v", a)
	}
}

func TestSubdivision(t *testing.T) {
	s := storeOf(t, []bodies.Body{
		{Mass: 1, Pos: r3.Vec{X: -1, Y: -1, Z: -1}},
		{Mass: 3, Pos: r3.Vec{X: 1, Y: 1, Z: 1}},
	})
	tree := New()
	tree.Build(s)

	root := tree.Root()
	if root.Kind != Internal || tree.Len() != 9 || tree.Depth() != 1 {
		t.Fatalf("root %v, %d nodes, depth %d", root.Kind, tree.Len(), tree.Depth())
	}
	if root.Mass != 4 || root.CoM != (r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}) {
		t.Errorf("root aggregate = %v at %v", root.Mass, root.CoM)
	}
	low := tree.Node(int(root.Child))
	high := tree.Node(int(root.Child) + 7)
	if low.Body != 0 || high.Body != 1 {
		t.Errorf("octants hold %d and %d", low.Body, high.Body)
	}
	if low.Half != 0.5 || low.Center != (r3.Vec{X: -0.5, Y: -0.5, Z: -0.5}) {
		t.Errorf("child cell = %v ± %v", low.Center, low.Half)
	}
	for c := 1; c < 7; c++ {
		n := tree.Node(int(root.Child) + c)
		if n.Mass != 0 || n.CoM != n.Center {
			t.Errorf("empty octant %d = %+v", c, n)
		}
	}
}

func TestCoincidentBodiesChain(t *testing.T) {
	p := r3.Vec{X: 5, Y: 5, Z: 5}
	s := storeOf(t, []bodies.Body{
		{Mass: 1, Pos: p},
		{Mass: 1, Pos: p},
		{Mass: 2, Pos: r3.Vec{}},
	})
	tree := New()
	tree.Build(s)

	if tree.Depth() > MaxDepth {
		t.Fatalf("depth %d exceeds MaxDepth", tree.Depth())
	}
	if root := tree.Root(); root.Mass != 4 {
		t.Errorf("root mass = %v", root.Mass)
	}
	a := tree.Accel(0, g, 0, 0)
	want := bruteForce(s, 0, 0)
	if r3.Norm(r3.Sub(a, want)) > 1e-12*r3.Norm(want) {
		t.Errorf("Accel = %v, want %v", a, want)
	}
}

func TestAllCoincident(t *testing.T) {
	s := storeOf(t, []bodies.Body{
		{Mass: 1, Pos: r3.Vec{X: 1}},
		{Mass: 1, Pos: r3.Vec{X: 1}},
	})
	tree := New()
	tree.Build(s)
	if tree.Len() != 1 || tree.Root().Mass != 2 {
		t.Errorf("coincident build: %d nodes, mass %v", tree.Len(), tree.Root().Mass)
	}
	a := tree.Accel(0, g, 0, 1)
	if a != (r3.Vec{}) {
		t.Errorf("Accel with zero separation and no softening = %v", a)
	}
}

func TestThetaZeroIsExact(t *testing.T) {
	s := randomStore(t, 64, 3)
	tree := New()
	tree.Build(s)
	for i := 0; i < s.N(); i++ {
		got := tree.Accel(i, g, 0.035, 0)
		want := bruteForce(s, i, 0.035)
		if r3.Norm(r3.Sub(got, want)) > 1e-9*r3.Norm(want) {
			t.Errorf("body %d: %v, want %v", i, got, want)
		}
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		theta  float64
		maxErr float64
	}{
		{0.3, 0.01},
		{1.0, 0.5},
	}

	s := randomStore(t, 256, 11)
	tree := New()
	tree.Build(s)

	for _, tt := range tests {
		var sumErr float64
		for i := 0; i < s.N(); i++ {
			got := tree.Accel(i, g, 0.035, tt.theta)
			want := bruteForce(s, i, 0.035)
			if math.IsNaN(got.X) || math.IsInf(got.X, 0) {
				t.Fatalf("theta=%v: body %d acceleration not finite", tt.theta, i)
			}
			sumErr += r3.Norm(r3.Sub(got, want)) / r3.Norm(want)
		}
		if mean := sumErr / float64(s.N()); mean > tt.maxErr {
			t.Errorf("theta=%v: mean relative error %v > %v", tt.theta, mean, tt.maxErr)
		}
	}
}

func TestRebuildResetsArena(t *testing.T) {
	s := randomStore(t, 100, 5)
	tree := New()
	tree.Build(s)
	first := tree.Len()
	tree.Build(s)
	if tree.Len() != first {
		t.Errorf("rebuild produced %d nodes, first build %d", tree.Len(), first)
	}
	if math.Abs(tree.Root().Mass-s.TotalMass()) > 1e-9*s.TotalMass() {
		t.Errorf("root mass %v, total %v", tree.Root().Mass, s.TotalMass())
	}
}

func TestZeroMassBodiesIgnored(t *testing.T) {
	s := randomStore(t, 20, 9)
	padded, _ := bodies.NewEmpty(24)
	for i, b := range s.Bodies() {
		padded.SetBody(i, b.Mass, b.Radius, b.Pos, b.Vel)
	}
	for i := 20; i < 24; i++ {
		padded.SetBody(i, 0, 0, r3.Vec{X: float64(i) * 1e7}, r3.Vec{})
	}

	a, b := New(), New()
	a.Build(s)
	b.Build(padded)
	for i := 0; i < 20; i++ {
		x := a.Accel(i, g, 0.035, 0)
		y := b.Accel(i, g, 0.035, 0)
		if r3.Norm(r3.Sub(x, y)) > 1e-9*r3.Norm(x) {
			t.Errorf("body %d: %v vs %v", i, x, y)
		}
	}
}

func BenchmarkBuild(b *testing.B) {
	s := randomStore(b, 4096, 1)
	tree := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Build(s)
	}
}

func BenchmarkAccel(b *testing.B) {
	s := randomStore(b, 4096, 1)
	tree := New()
	tree.Build(s)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Accel(i%s.N(), g, 0.035, 1)
	}
}
