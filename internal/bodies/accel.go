package bodies

import "gonum.org/v1/gonum/spatial/r3"

// Accelerations is the per-step accumulator, one 3-vector per body slot.
// It is reset before the force stage and consumed once by Integrate.
type Accelerations struct {
	AX, AY, AZ []float64
}

func NewAccelerations(n int) *Accelerations {
	return &Accelerations{
		AX: make([]float64, n),
		AY: make([]float64, n),
		AZ: make([]float64, n),
	}
}

func (a *Accelerations) Len() int { return len(a.AX) }

func (a *Accelerations) Reset() {
	clear(a.AX)
	clear(a.AY)
	clear(a.AZ)
}

func (a *Accelerations) At(i int) r3.Vec {
	return r3.Vec{X: a.AX[i], Y: a.AY[i], Z: a.AZ[i]}
}

func (a *Accelerations) Set(i int, v r3.Vec) {
	a.AX[i] = v.X
	a.AY[i] = v.Y
	a.AZ[i] = v.Z
}

// CopyFrom overwrites a with src. Both must have the same length.
func (a *Accelerations) CopyFrom(src *Accelerations) {
	copy(a.AX, src.AX)
	copy(a.AY, src.AY)
	copy(a.AZ, src.AZ)
}
