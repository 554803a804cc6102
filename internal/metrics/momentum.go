package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/physics"
)

// MomentumDrift is the largest |P - P0| seen, relative to the total
// momentum magnitude scale sum(m·|v|) of the first state.
type MomentumDrift struct {
	initial  r3.Vec
	scale    float64
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift { return &MomentumDrift{} }

func (m *MomentumDrift) Name() string { return "momentum_drift" }

func (m *MomentumDrift) Observe(s *bodies.Store, step int, t float64) {
	p := physics.Momentum(s)
	if m.samples == 0 {
		m.initial = p
		for _, b := range s.Bodies() {
			m.scale += b.Mass * r3.Norm(b.Vel)
		}
	}
	m.samples++

	if m.scale > 0 {
		m.maxDrift = math.Max(m.maxDrift, r3.Norm(r3.Sub(p, m.initial))/m.scale)
	}
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	*m = MomentumDrift{}
}

// MaxSpeed is the highest body speed observed.
type MaxSpeed struct {
	max float64
}

func NewMaxSpeed() *MaxSpeed { return &MaxSpeed{} }

func (m *MaxSpeed) Name() string { return "max_speed" }

func (m *MaxSpeed) Observe(s *bodies.Store, step int, t float64) {
	for _, b := range s.Bodies() {
		m.max = math.Max(m.max, r3.Norm(b.Vel))
	}
}

func (m *MaxSpeed) Value() float64 { return m.max }
func (m *MaxSpeed) Reset()         { m.max = 0 }
