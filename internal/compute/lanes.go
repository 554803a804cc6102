package compute

import (
	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/physics"
)

// lane holds one vector register worth of float64 values.
type lane [bodies.Lanes]float64

func (l *lane) sum() float64 {
	s := 0.0
	for _, v := range l {
		s += v
	}
	return s
}

// rowKernel is the read-only input shared by every goroutine of a step.
// Workers write disjoint rows of the output.
type rowKernel struct {
	soa   *bodies.SoA
	n     int
	total int
	g     float64
	eps2  float64
}

func newRowKernel(s *bodies.Store, p Params) rowKernel {
	return rowKernel{
		soa:   s.SoA(),
		n:     s.N(),
		total: s.Len(),
		g:     p.G,
		eps2:  p.Softening * p.Softening,
	}
}

// rows fills acc for rows [from, to).
func (k rowKernel) rows(from, to int, acc *bodies.Accelerations) {
	for i := from; i < to; i++ {
		acc.AX[i], acc.AY[i], acc.AZ[i] = k.row(i)
	}
}

// row sums the pull of every real body on body i. j advances Lanes at a
// time; the tail that does not fill a lane runs through pair.
func (k rowKernel) row(i int) (ax, ay, az float64) {
	d := k.soa
	qx, qy, qz := d.QX[i], d.QY[i], d.QZ[i]

	var sx, sy, sz lane
	end := k.n - k.n%bodies.Lanes
	for j := 0; j < end; j += bodies.Lanes {
		for l := 0; l < bodies.Lanes; l++ {
			rx := d.QX[j+l] - qx
			ry := d.QY[j+l] - qy
			rz := d.QZ[j+l] - qz

			f, ok := physics.Factor(k.g, rx*rx+ry*ry+rz*rz, k.eps2)
			if !ok {
				continue
			}
			f *= d.M[j+l]
			sx[l] += f * rx
			sy[l] += f * ry
			sz[l] += f * rz
		}
	}
	ax, ay, az = sx.sum(), sy.sum(), sz.sum()

	for j := end; j < k.n; j++ {
		px, py, pz := k.pair(qx, qy, qz, j)
		ax += px
		ay += py
		az += pz
	}
	return ax, ay, az
}

func (k rowKernel) pair(qx, qy, qz float64, j int) (ax, ay, az float64) {
	d := k.soa
	rx := d.QX[j] - qx
	ry := d.QY[j] - qy
	rz := d.QZ[j] - qz

	f, ok := physics.Factor(k.g, rx*rx+ry*ry+rz*rz, k.eps2)
	if !ok {
		return 0, 0, 0
	}
	f *= d.M[j]
	return f * rx, f * ry, f * rz
}

// block fills Lanes consecutive rows starting at i0, one row per lane, with
// every j broadcast across the lanes. Rows past the end of the store fall
// back to row.
func (k rowKernel) block(i0 int, acc *bodies.Accelerations) {
	if i0+bodies.Lanes > k.total {
		k.rows(i0, k.total, acc)
		return
	}

	d := k.soa
	var qx, qy, qz lane
	copy(qx[:], d.QX[i0:i0+bodies.Lanes])
	copy(qy[:], d.QY[i0:i0+bodies.Lanes])
	copy(qz[:], d.QZ[i0:i0+bodies.Lanes])

	var ax, ay, az lane
	for j := 0; j < k.n; j++ {
		mj, xj, yj, zj := d.M[j], d.QX[j], d.QY[j], d.QZ[j]
		for l := 0; l < bodies.Lanes; l++ {
			rx := xj - qx[l]
			ry := yj - qy[l]
			rz := zj - qz[l]

			f, ok := physics.Factor(k.g, rx*rx+ry*ry+rz*rz, k.eps2)
			if !ok {
				continue
			}
			f *= mj
			ax[l] += f * rx
			ay[l] += f * ry
			az[l] += f * rz
		}
	}

	copy(acc.AX[i0:], ax[:])
	copy(acc.AY[i0:], ay[:])
	copy(acc.AZ[i0:], az[:])
}
