package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/physics"
)

// Stability is the fraction of observed states in which every body stays
// within threshold meters of the center of mass.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(store *bodies.Store, step int, t float64) {
	s.samples++
	com := physics.CenterOfMass(store)
	limit := s.threshold * s.threshold
	for _, b := range store.Bodies() {
		if r3.Norm2(r3.Sub(b.Pos, com)) > limit {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
