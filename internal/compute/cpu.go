package compute

import (
	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/physics"
)

// ScalarBackend visits each unordered pair once and updates both bodies.
// The write to acc[j] makes it unsafe to split across goroutines.
type ScalarBackend struct{}

func NewScalarBackend() *ScalarBackend { return &ScalarBackend{} }

func (c *ScalarBackend) Name() string    { return string(Scalar) }
func (c *ScalarBackend) Available() bool { return true }
func (c *ScalarBackend) Cleanup()        {}

func (c *ScalarBackend) Accelerations(s *bodies.Store, p Params, acc *bodies.Accelerations) {
	d := s.SoA()
	n := s.N()
	g := p.G
	eps2 := p.Softening * p.Softening
	ax, ay, az := acc.AX, acc.AY, acc.AZ

	clear(ax[:n])
	clear(ay[:n])
	clear(az[:n])

	for i := 0; i < n; i++ {
		xi, yi, zi := d.QX[i], d.QY[i], d.QZ[i]

		for j := i + 1; j < n; j++ {
			rx := d.QX[j] - xi
			ry := d.QY[j] - yi
			rz := d.QZ[j] - zi

			f, ok := physics.Factor(g, rx*rx+ry*ry+rz*rz, eps2)
			if !ok {
				continue
			}

			fi := f * d.M[j]
			ax[i] += fi * rx
			ay[i] += fi * ry
			az[i] += fi * rz

			fj := f * d.M[i]
			ax[j] -= fj * rx
			ay[j] -= fj * ry
			az[j] -= fj * rz
		}
	}
}

// VectorBackend computes each row i on its own, taking Lanes values of j
// per iteration. Only acc[i] is written, so rows are independent.
type VectorBackend struct{}

func NewVectorBackend() *VectorBackend { return &VectorBackend{} }

func (c *VectorBackend) Name() string    { return string(SIMD) }
func (c *VectorBackend) Available() bool { return true }
func (c *VectorBackend) Cleanup()        {}

func (c *VectorBackend) Accelerations(s *bodies.Store, p Params, acc *bodies.Accelerations) {
	k := newRowKernel(s, p)
	k.rows(0, s.N(), acc)
}
