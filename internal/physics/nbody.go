package physics

import (
	"math"

	"github.com/san-kum/gravsim/internal/bodies"
	"gonum.org/v1/gonum/spatial/r3"
)

// Factor returns G/(d²+ε²)^{3/2} for a pair at squared distance d2 with
// squared softening eps2. ok is false when d2+eps2 is zero, in which case
// the pair contributes nothing.
func Factor(g, d2, eps2 float64) (f float64, ok bool) {
	s := d2 + eps2
	if s == 0 {
		return 0, false
	}
	return g / (s * math.Sqrt(s)), true
}

// Pull returns the acceleration that a point mass m at q exerts on a body at p.
func Pull(g, eps2 float64, p, q r3.Vec, m float64) r3.Vec {
	r := r3.Sub(q, p)
	f, ok := Factor(g, r3.Norm2(r), eps2)
	if !ok {
		return r3.Vec{}
	}
	return r3.Scale(f*m, r)
}

func KineticEnergy(s *bodies.Store) float64 {
	ke := 0.0
	d := s.SoA()
	for i := 0; i < s.N(); i++ {
		v2 := d.VX[i]*d.VX[i] + d.VY[i]*d.VY[i] + d.VZ[i]*d.VZ[i]
		ke += 0.5 * d.M[i] * v2
	}
	return ke
}

// PotentialEnergy sums the softened pair potential -G·mi·mj/sqrt(d²+ε²).
func PotentialEnergy(s *bodies.Store, g, softening float64) float64 {
	return PotentialEnergyRows(s, g, softening, 0, s.N())
}

// PotentialEnergyRows sums the pairs (i, j) with from <= i < to and j > i,
// so disjoint row ranges can be summed independently.
func PotentialEnergyRows(s *bodies.Store, g, softening float64, from, to int) float64 {
	eps2 := softening * softening
	d := s.SoA()
	pe := 0.0
	for i := from; i < to; i++ {
		for j := i + 1; j < s.N(); j++ {
			rx := d.QX[j] - d.QX[i]
			ry := d.QY[j] - d.QY[i]
			rz := d.QZ[j] - d.QZ[i]
			r2 := rx*rx + ry*ry + rz*rz + eps2
			if r2 == 0 {
				continue
			}
			pe -= g * d.M[i] * d.M[j] / math.Sqrt(r2)
		}
	}
	return pe
}

func Energy(s *bodies.Store, g, softening float64) float64 {
	return KineticEnergy(s) + PotentialEnergy(s, g, softening)
}

func Momentum(s *bodies.Store) r3.Vec {
	var p r3.Vec
	for _, b := range s.Bodies() {
		p = r3.Add(p, r3.Scale(b.Mass, b.Vel))
	}
	return p
}

func AngularMomentum(s *bodies.Store) r3.Vec {
	var l r3.Vec
	for _, b := range s.Bodies() {
		l = r3.Add(l, r3.Scale(b.Mass, r3.Cross(b.Pos, b.Vel)))
	}
	return l
}

// CenterOfMass returns the mass-weighted mean position, or the zero vector
// when the total mass is zero.
func CenterOfMass(s *bodies.Store) r3.Vec {
	var c r3.Vec
	total := 0.0
	for _, b := range s.Bodies() {
		c = r3.Add(c, r3.Scale(b.Mass, b.Pos))
		total += b.Mass
	}
	if total == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/total, c)
}
