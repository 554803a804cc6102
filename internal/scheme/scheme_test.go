package scheme

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/gravsim/internal/bodies"
)

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		gen, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if gen.Name() != name {
			t.Errorf("Lookup(%q).Name() = %q", name, gen.Name())
		}
	}
	if _, err := Lookup("spiral"); !errors.Is(err, ErrUnknownScheme) {
		t.Errorf("unknown scheme error = %v", err)
	}
	if got := Names(); len(got) != 4 || got[0] != "galaxy" {
		t.Errorf("Names() = %v", got)
	}
}

func TestSchemes(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			gen, _ := Lookup(name)
			s, err := bodies.New(21, gen, 42)
			if err != nil {
				t.Fatal(err)
			}
			if !s.IsValid() {
				t.Fatal("scheme produced NaN or Inf")
			}
			for i := 0; i < s.N(); i++ {
				if s.Mass(i) < 0 || s.Body(i).Radius < 0 {
					t.Errorf("body %d: negative mass or radius", i)
				}
			}
			for i := s.N(); i < s.Len(); i++ {
				if s.Mass(i) != 0 {
					t.Errorf("padding body %d has mass %v", i, s.Mass(i))
				}
			}

			again, _ := bodies.New(21, gen, 42)
			for i := 0; i < s.Len(); i++ {
				if s.Body(i) != again.Body(i) {
					t.Fatalf("seed 42 not reproducible at body %d", i)
				}
			}
			other, _ := bodies.New(21, gen, 43)
			if other.Body(5) == s.Body(5) {
				t.Error("different seeds produced the same body")
			}
		})
	}
}

func TestGalaxyShell(t *testing.T) {
	s, _ := bodies.New(200, Galaxy{}, 1)
	if s.Mass(0) != 2.0e24 || s.Position(0) != (r3.Vec{}) {
		t.Fatalf("central body = %+v", s.Body(0))
	}
	for i := 1; i < s.N(); i++ {
		d := r3.Norm(s.Position(i))
		if d < 1e8*(1-1e-12) || d > 2e8*(1+1e-12) {
			t.Errorf("body %d at distance %v", i, d)
		}
		if s.Velocity(i).Z != 0 {
			t.Errorf("body %d has vz %v", i, s.Velocity(i).Z)
		}
	}
}

func TestFlatGalaxy(t *testing.T) {
	s, _ := bodies.New(50, FlatGalaxy{}, 1)
	for i := 0; i < s.N(); i++ {
		if s.Position(i).Z != 0 {
			t.Errorf("body %d off plane: %v", i, s.Position(i))
		}
	}
}

func TestOrbitingGalaxyCircularSpeed(t *testing.T) {
	o := OrbitingGalaxy{G: 6.67384e-11}
	s, _ := bodies.New(100, o, 3)
	m := 2.0e26 / 100 * 0.01
	for i := 1; i < s.N(); i++ {
		b := s.Body(i)
		if b.Mass != m {
			t.Fatalf("satellite mass %v, want %v", b.Mass, m)
		}
		r := r3.Norm(b.Pos)
		want := math.Sqrt(o.G * 0.9 * 2.0e26 / r)
		if got := r3.Norm(b.Vel); math.Abs(got-want) > 1e-9*want {
			t.Errorf("body %d speed %v, want %v", i, got, want)
		}
		if math.Abs(r3.Dot(b.Pos, b.Vel)) > 1e-6*r*want {
			t.Errorf("body %d velocity not tangential", i)
		}
	}
}

func TestRandomBox(t *testing.T) {
	s, _ := bodies.New(300, Random{}, 9)
	for i := 0; i < s.N(); i++ {
		p := s.Position(i)
		if math.Abs(p.X) > 5e8*1.33 || math.Abs(p.Y) > 5e8 || p.Z < -1.5e9 || p.Z > -5e8 {
			t.Errorf("body %d outside box: %v", i, p)
		}
		if s.Mass(i) >= 5e21 {
			t.Errorf("body %d mass %v", i, s.Mass(i))
		}
	}
}
