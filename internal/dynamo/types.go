package dynamo

import (
	"math"
	"time"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/compute"
)

// Params are the simulation-wide constants. They are fixed before the first
// step and never change during a run.
type Params struct {
	G         float64
	Softening float64
	Dt        float64
	Theta     float64
}

func DefaultParams() Params {
	return Params{
		G:         6.67384e-11,
		Softening: 0.035,
		Dt:        3600,
		Theta:     1.0,
	}
}

func (p Params) Validate() error {
	switch {
	case !(p.G > 0) || math.IsInf(p.G, 0):
		return boundsError("G", p.G, "positive and finite")
	case !(p.Softening >= 0) || math.IsInf(p.Softening, 0):
		return boundsError("softening", p.Softening, ">= 0")
	case !(p.Dt > 0) || math.IsInf(p.Dt, 0):
		return boundsError("dt", p.Dt, "positive and finite")
	case !(p.Theta >= 0) || math.IsInf(p.Theta, 0):
		return boundsError("theta", p.Theta, ">= 0")
	}
	return nil
}

// Compute returns the subset of p the force backends read.
func (p Params) Compute() compute.Params {
	return compute.Params{G: p.G, Softening: p.Softening, Theta: p.Theta}
}

type Metric interface {
	Name() string
	Observe(s *bodies.Store, step int, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s *bodies.Store, step int, t float64)
}

type ObserverFunc func(s *bodies.Store, step int, t float64)

func (f ObserverFunc) OnStep(s *bodies.Store, step int, t float64) { f(s, step, t) }

type Config struct {
	Iterations    int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Iterations:    1000,
		ValidateState: true,
	}
}

type Result struct {
	Steps     int
	SimTime   float64
	Elapsed   time.Duration
	StepTimes []time.Duration
	Metrics   map[string]float64
	FPS       float64
	Gflops    float64
}
