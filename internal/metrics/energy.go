package metrics

import (
	"math"
	"sync"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/physics"
)

// parallelThreshold is the body count above which the O(N²) potential is
// split across goroutines.
const parallelThreshold = 512

// TotalEnergy is kinetic plus softened potential energy.
func TotalEnergy(s *bodies.Store, g, softening float64) float64 {
	n := s.N()
	if n < parallelThreshold {
		return physics.Energy(s, g, softening)
	}

	var mu sync.Mutex
	pe := 0.0
	dynamo.ParallelFor(n, 0, 64, func(start, end int) {
		part := physics.PotentialEnergyRows(s, g, softening, start, end)
		mu.Lock()
		pe += part
		mu.Unlock()
	})
	return physics.KineticEnergy(s) + pe
}

type Energy struct {
	name        string
	g           float64
	softening   float64
	samples     int
	totalEnergy float64
}

func NewEnergy(g, softening float64) *Energy {
	return &Energy{
		name:      "energy",
		g:         g,
		softening: softening,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s *bodies.Store, step int, t float64) {
	e.totalEnergy += TotalEnergy(s, e.g, e.softening)
	e.samples++
}

// Value is the mean total energy over all samples.
func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift tracks |E - E0| / |E0| against the first observed state.
type EnergyDrift struct {
	name          string
	g             float64
	softening     float64
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(g, softening float64) *EnergyDrift {
	return &EnergyDrift{
		name:      "energy_drift",
		g:         g,
		softening: softening,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s *bodies.Store, step int, t float64) {
	energy := TotalEnergy(s, e.g, e.softening)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	e.maxDrift = math.Max(e.maxDrift, e.Current())
}

// Current is the drift of the last observed state.
func (e *EnergyDrift) Current() float64 {
	if e.initialEnergy == 0 {
		return 0
	}
	return math.Abs(e.currentEnergy-e.initialEnergy) / math.Abs(e.initialEnergy)
}

// Energy is the last observed total energy.
func (e *EnergyDrift) Energy() float64 { return e.currentEnergy }

// Value is the largest drift seen so far.
func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
