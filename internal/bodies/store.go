package bodies

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Lanes is the number of float64 values processed per vector register
// (256-bit registers).
const Lanes = 4

var ErrNoBodies = errors.New("bodies: body count must be positive")

// Body is the array-of-structures record for one body.
type Body struct {
	Mass   float64
	Radius float64
	Pos    r3.Vec
	Vel    r3.Vec
}

// SoA is the structure-of-arrays projection. Every slice has Len() entries.
type SoA struct {
	M, R       []float64
	QX, QY, QZ []float64
	VX, VY, VZ []float64
}

// Initializer populates the real bodies of a freshly allocated store.
type Initializer interface {
	Name() string
	Initialize(s *Store, seed uint64)
}

type Option func(*Store)

// WithLanes pads the store to a multiple of w instead of Lanes.
func WithLanes(w int) Option {
	return func(s *Store) {
		if w > 0 {
			s.lanes = w
		}
	}
}

// Store owns the physical state of N real bodies and P padding bodies.
type Store struct {
	n       int
	padding int
	lanes   int
	soa     SoA
	aos     []Body
}

// New allocates a store for n real bodies and fills it with init.
// Padding bodies always end up with zero mass and radius, whatever the
// initializer wrote into them.
func New(n int, init Initializer, seed uint64, opts ...Option) (*Store, error) {
	s, err := NewEmpty(n, opts...)
	if err != nil {
		return nil, err
	}
	if init != nil {
		init.Initialize(s, seed)
	}
	for i := s.n; i < s.Len(); i++ {
		b := s.aos[i]
		s.SetBody(i, 0, 0, b.Pos, b.Vel)
	}
	return s, nil
}

// NewEmpty allocates a zeroed store for n real bodies.
func NewEmpty(n int, opts ...Option) (*Store, error) {
	if n <= 0 {
		return nil, ErrNoBodies
	}
	s := &Store{n: n, lanes: Lanes}
	for _, o := range opts {
		o(s)
	}
	nVecs := (n + s.lanes - 1) / s.lanes
	s.padding = nVecs*s.lanes - n
	s.allocate()
	return s, nil
}

func (s *Store) allocate() {
	total := s.n + s.padding
	s.soa = SoA{
		M:  make([]float64, total),
		R:  make([]float64, total),
		QX: make([]float64, total),
		QY: make([]float64, total),
		QZ: make([]float64, total),
		VX: make([]float64, total),
		VY: make([]float64, total),
		VZ: make([]float64, total),
	}
	s.aos = make([]Body, total)
}

func (s *Store) N() int       { return s.n }
func (s *Store) Padding() int { return s.padding }
func (s *Store) Len() int     { return s.n + s.padding }
func (s *Store) Lanes() int   { return s.lanes }

// SoA returns the structure-of-arrays projection. Callers must not write
// through it; use SetBody.
func (s *Store) SoA() *SoA { return &s.soa }

// AoS returns the array-of-structures projection, padding included.
// Callers must not write through it; use SetBody.
func (s *Store) AoS() []Body { return s.aos }

// Bodies is the AoS view restricted to real bodies.
func (s *Store) Bodies() []Body { return s.aos[:s.n] }

func (s *Store) Body(i int) Body       { return s.aos[i] }
func (s *Store) Mass(i int) float64    { return s.soa.M[i] }
func (s *Store) Position(i int) r3.Vec { return s.aos[i].Pos }
func (s *Store) Velocity(i int) r3.Vec { return s.aos[i].Vel }
func (s *Store) IsPadding(i int) bool  { return i >= s.n }

// AllocatedBytes counts both projections: eight float64 fields per body in each.
func (s *Store) AllocatedBytes() int { return s.Len() * 8 * 8 * 2 }

// SetBody writes both projections for index i.
func (s *Store) SetBody(i int, mass, radius float64, pos, vel r3.Vec) {
	s.soa.M[i] = mass
	s.soa.R[i] = radius
	s.soa.QX[i] = pos.X
	s.soa.QY[i] = pos.Y
	s.soa.QZ[i] = pos.Z
	s.soa.VX[i] = vel.X
	s.soa.VY[i] = vel.Y
	s.soa.VZ[i] = vel.Z

	s.aos[i] = Body{Mass: mass, Radius: radius, Pos: pos, Vel: vel}
}

// Integrate advances every real body by dt using the accelerations in acc.
//
// a·dt is formed once per axis and reused for both updates:
//
//	v' = v + a·dt
//	p' = p + (v + a·dt/2)·dt
func (s *Store) Integrate(acc *Accelerations, dt float64) {
	d := &s.soa
	for i := 0; i < s.n; i++ {
		axDt := acc.AX[i] * dt
		ayDt := acc.AY[i] * dt
		azDt := acc.AZ[i] * dt

		pos := r3.Vec{
			X: d.QX[i] + (d.VX[i]+axDt*0.5)*dt,
			Y: d.QY[i] + (d.VY[i]+ayDt*0.5)*dt,
			Z: d.QZ[i] + (d.VZ[i]+azDt*0.5)*dt,
		}
		vel := r3.Vec{
			X: d.VX[i] + axDt,
			Y: d.VY[i] + ayDt,
			Z: d.VZ[i] + azDt,
		}
		s.SetBody(i, d.M[i], d.R[i], pos, vel)
	}
}

// Snapshot copies the real bodies.
func (s *Store) Snapshot() []Body {
	out := make([]Body, s.n)
	copy(out, s.aos[:s.n])
	return out
}

func (s *Store) TotalMass() float64 {
	total := 0.0
	for i := 0; i < s.n; i++ {
		total += s.soa.M[i]
	}
	return total
}

// IsValid reports whether no real body carries a NaN or Inf.
func (s *Store) IsValid() bool {
	d := &s.soa
	for i := 0; i < s.n; i++ {
		for _, v := range [...]float64{d.QX[i], d.QY[i], d.QZ[i], d.VX[i], d.VY[i], d.VZ[i]} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
