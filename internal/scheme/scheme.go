package scheme

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/gravsim/internal/bodies"
)

var ErrUnknownScheme = errors.New("scheme: unknown scheme")

var registry = map[string]bodies.Initializer{
	"galaxy":     Galaxy{},
	"galaxy2":    FlatGalaxy{},
	"galaxy+mod": OrbitingGalaxy{G: 6.67384e-11},
	"random":     Random{},
}

func Lookup(name string) (bodies.Initializer, error) {
	gen, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownScheme, name, Names())
	}
	return gen, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// unit returns a value in (0, 1].
func unit(rnd *rand.Rand) float64 { return 1 - rnd.Float64() }

// signed returns a value in [-1, 1).
func signed(rnd *rand.Rand) float64 { return rnd.Float64()*2 - 1 }

// boxPosition is a point in the box shared by the random scheme and the
// padding bodies of every scheme.
func boxPosition(rnd *rand.Rand) r3.Vec {
	return r3.Vec{
		X: signed(rnd) * 5.0e8 * 1.33,
		Y: signed(rnd) * 5.0e8,
		Z: signed(rnd)*5.0e8 - 1.0e9,
	}
}

func boxVelocity(rnd *rand.Rand) r3.Vec {
	return r3.Vec{X: signed(rnd) * 1.0e2, Y: signed(rnd) * 1.0e2, Z: signed(rnd) * 1.0e2}
}

// fillPadding gives padding bodies arbitrary kinematics and no mass.
func fillPadding(s *bodies.Store, rnd *rand.Rand) {
	for i := s.N(); i < s.Len(); i++ {
		s.SetBody(i, 0, 0, boxPosition(rnd), boxVelocity(rnd))
	}
}

// satellite places a body 1e8 to 2e8 m from the origin in a direction
// drawn from two angles, moving about the z axis.
func satellite(rnd *rand.Rand, flat bool) (mass, radius float64, pos, vel r3.Vec) {
	mass = unit(rnd) * 5e20
	radius = mass * 2.5e-15

	horizontal := unit(rnd) * 2 * math.Pi
	vertical := unit(rnd) * 2 * math.Pi
	dist := unit(rnd)*1.0e8 + 1.0e8

	pos = r3.Vec{
		X: math.Cos(vertical) * math.Sin(horizontal) * dist,
		Y: math.Sin(vertical) * dist,
		Z: math.Cos(vertical) * math.Cos(horizontal) * dist,
	}
	if flat {
		pos.Z = 0
	}
	vel = r3.Vec{X: pos.Y * 4.0e-6, Y: -pos.X * 4.0e-6}
	return mass, radius, pos, vel
}

// Galaxy is a 2e24 kg central body surrounded by light satellites.
type Galaxy struct{}

func (Galaxy) Name() string { return "galaxy" }

func (Galaxy) Initialize(s *bodies.Store, seed uint64) {
	rnd := rand.New(rand.NewSource(seed))
	s.SetBody(0, 2.0e24, 1.0e6, r3.Vec{}, r3.Vec{})
	for i := 1; i < s.N(); i++ {
		m, r, p, v := satellite(rnd, false)
		s.SetBody(i, m, r, p, v)
	}
	fillPadding(s, rnd)
}

// FlatGalaxy is Galaxy with every satellite in the z = 0 plane.
type FlatGalaxy struct{}

func (FlatGalaxy) Name() string { return "galaxy2" }

func (FlatGalaxy) Initialize(s *bodies.Store, seed uint64) {
	rnd := rand.New(rand.NewSource(seed))
	s.SetBody(0, 2.0e24, 0, r3.Vec{}, r3.Vec{})
	for i := 1; i < s.N(); i++ {
		m, r, p, v := satellite(rnd, true)
		s.SetBody(i, m, r, p, v)
	}
	fillPadding(s, rnd)
}

// OrbitingGalaxy puts equal satellites in the equatorial plane of a
// 2e26 kg central body with circular orbit speeds. The satellites together
// weigh one percent of the central mass.
type OrbitingGalaxy struct {
	G float64
}

func (OrbitingGalaxy) Name() string { return "galaxy+mod" }

func (o OrbitingGalaxy) Initialize(s *bodies.Store, seed uint64) {
	const central = 2.0e26
	rnd := rand.New(rand.NewSource(seed))
	n := float64(s.N())
	m := central / n * 0.01

	s.SetBody(0, central, 5.0e6, r3.Vec{}, r3.Vec{})
	for i := 1; i < s.N(); i++ {
		phi := unit(rnd) * 2 * math.Pi
		dist := unit(rnd)*1.0e8 + 1.0e8

		pos := r3.Vec{X: math.Cos(phi) * dist, Y: math.Sin(phi) * dist}
		speed := math.Sqrt(o.G * (central - m*n*10) / dist)
		vel := r3.Vec{X: -speed * math.Sin(phi), Y: speed * math.Cos(phi)}
		s.SetBody(i, m, 5.0e5, pos, vel)
	}
	fillPadding(s, rnd)
}

// Random scatters bodies of up to 5e21 kg uniformly in a box.
type Random struct{}

func (Random) Name() string { return "random" }

func (Random) Initialize(s *bodies.Store, seed uint64) {
	rnd := rand.New(rand.NewSource(seed))
	for i := 0; i < s.N(); i++ {
		m := rnd.Float64() * 5.0e21
		s.SetBody(i, m, m*0.5e-14, boxPosition(rnd), boxVelocity(rnd))
	}
	fillPadding(s, rnd)
}
