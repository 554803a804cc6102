package compute_test

import (
	"errors"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/compute"
)

var params = compute.Params{G: 6.67384e-11, Softening: 0.035, Theta: 1.0}

type cloud struct {
	bs []bodies.Body
}

func randomCloud(n int, seed uint64) cloud {
	rnd := rand.New(rand.NewSource(seed))
	bs := make([]bodies.Body, n)
	for i := range bs {
		bs[i] = bodies.Body{
			Mass: rnd.Float64() * 5e21,
			Pos: r3.Vec{
				X: (rnd.Float64()*2 - 1) * 5e8,
				Y: (rnd.Float64()*2 - 1) * 5e8,
				Z: (rnd.Float64()*2 - 1) * 5e8,
			},
		}
	}
	return cloud{bs: bs}
}

func (c cloud) store(opts ...bodies.Option) *bodies.Store {
	s, err := bodies.NewEmpty(len(c.bs), opts...)
	Expect(err).NotTo(HaveOccurred())
	for i, b := range c.bs {
		s.SetBody(i, b.Mass, b.Radius, b.Pos, b.Vel)
	}
	for i := s.N(); i < s.Len(); i++ {
		s.SetBody(i, 0, 0, r3.Vec{X: 1e8 * float64(i), Y: -3e8}, r3.Vec{})
	}
	return s
}

func accelerate(b compute.Backend, s *bodies.Store, p compute.Params) *bodies.Accelerations {
	acc := bodies.NewAccelerations(s.Len())
	b.Accelerations(s, p, acc)
	return acc
}

func newBackend(kind compute.Kind, opts compute.Options) compute.Backend {
	b, err := compute.New(kind, opts)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(b.Cleanup)
	return b
}

// maxRelErr is the largest per-body error relative to the reference magnitude.
func maxRelErr(got, want *bodies.Accelerations, n int) float64 {
	worst := 0.0
	for i := 0; i < n; i++ {
		diff := r3.Norm(r3.Sub(got.At(i), want.At(i)))
		ref := r3.Norm(want.At(i))
		if ref == 0 {
			ref = 1
		}
		worst = math.Max(worst, diff/ref)
	}
	return worst
}

// meanRelErr averages the per-body error relative to the reference magnitude.
func meanRelErr(got, want *bodies.Accelerations, n int) float64 {
	errs := make([]float64, n)
	for i := range errs {
		errs[i] = r3.Norm(r3.Sub(got.At(i), want.At(i))) / r3.Norm(want.At(i))
	}
	return floats.Sum(errs) / float64(n)
}

var _ = Describe("Backends", func() {
	multi := compute.Options{Workers: 4, Batch: 2}

	Describe("brute force equivalence", func() {
		for _, n := range []int{1, 7, 8, 33, 64} {
			It(fmt.Sprintf("agrees across CPU kernels for %d bodies", n), func() {
				s := randomCloud(n, uint64(n)).store()
				ref := accelerate(newBackend(compute.Scalar, multi), s, params)

				for _, opts := range []struct {
					kind compute.Kind
					opts compute.Options
				}{
					{compute.SIMD, multi},
					{compute.Parallel, compute.Options{Workers: 4, Schedule: compute.Static}},
					{compute.Parallel, compute.Options{Workers: 3, Schedule: compute.Guided}},
					{compute.Pool, multi},
					{compute.Pool, compute.Options{Workers: 1, Batch: 1}},
				} {
					got := accelerate(newBackend(opts.kind, opts.opts), s, params)
					Expect(maxRelErr(got, ref, n)).To(BeNumerically("<", 1e-4), "kind %s", opts.kind)
				}
			})
		}
	})

	Describe("symmetric against asymmetric", func() {
		It("matches the scalar pair-symmetric kernel", func() {
			s := randomCloud(50, 7).store()
			sym := accelerate(compute.NewScalarBackend(), s, params)
			asym := accelerate(compute.NewVectorBackend(), s, params)
			Expect(maxRelErr(asym, sym, s.N())).To(BeNumerically("<", 1e-10))
		})
	})

	Describe("Barnes-Hut", func() {
		It("converges to brute force for small theta", func() {
			s := randomCloud(200, 42).store()
			ref := accelerate(compute.NewVectorBackend(), s, params)

			p := params
			p.Theta = 0.3
			var errs []float64
			for _, kind := range []compute.Kind{compute.BarnesHut, compute.BarnesHutParallel} {
				got := accelerate(newBackend(kind, multi), s, p)
				for i := 0; i < s.N(); i++ {
					errs = append(errs, r3.Norm(r3.Sub(got.At(i), ref.At(i)))/r3.Norm(ref.At(i)))
				}
			}
			Expect(floats.Sum(errs) / float64(len(errs))).To(BeNumerically("<", 0.01))
		})

		It("stays close to brute force at the reference opening angle", func() {
			s := randomCloud(1000, 3).store()
			ref := accelerate(compute.NewVectorBackend(), s, params)
			got := accelerate(newBackend(compute.BarnesHutParallel, multi), s, params)
			for i := 0; i < s.N(); i++ {
				a := got.At(i)
				Expect(math.IsNaN(a.X) || math.IsInf(r3.Norm(a), 0)).To(BeFalse())
			}
			Expect(meanRelErr(got, ref, s.N())).To(BeNumerically("<", 0.15))
		})

		It("matches between serial and parallel traversal", func() {
			s := randomCloud(150, 9).store()
			serial := accelerate(compute.NewBarnesHutBackend(1), s, params)
			parallel := accelerate(compute.NewBarnesHutBackend(4), s, params)
			for i := 0; i < s.N(); i++ {
				Expect(parallel.At(i)).To(Equal(serial.At(i)))
			}
		})
	})

	Describe("padding neutrality", func() {
		for _, kind := range compute.CPUKinds() {
			It("ignores zero-mass padding for "+string(kind), func() {
				c := randomCloud(13, 5)
				narrow := c.store(bodies.WithLanes(1))
				wide := c.store(bodies.WithLanes(16))
				Expect(narrow.Padding()).To(Equal(0))
				Expect(wide.Padding()).To(Equal(3))

				a := accelerate(newBackend(kind, multi), narrow, params)
				b := accelerate(newBackend(kind, multi), wide, params)
				Expect(maxRelErr(b, a, 13)).To(BeNumerically("<", 1e-12))
			})
		}
	})

	Describe("two bodies", func() {
		It("follows Newton's law without softening", func() {
			const m, d = 1e20, 1e8
			p := compute.Params{G: 6.674e-11, Softening: 0, Theta: 1}
			want := p.G * m / (d * d)

			for _, kind := range compute.CPUKinds() {
				s, _ := bodies.NewEmpty(2)
				s.SetBody(0, m, 0, r3.Vec{}, r3.Vec{})
				s.SetBody(1, m, 0, r3.Vec{X: d}, r3.Vec{})

				acc := accelerate(newBackend(kind, multi), s, p)
				Expect(acc.AX[0]).To(BeNumerically("~", want, want*1e-12), "kind %s", kind)
				Expect(acc.AX[1]).To(BeNumerically("~", -want, want*1e-12), "kind %s", kind)
				Expect(acc.AY[0]).To(BeZero())
				Expect(acc.AZ[1]).To(BeZero())

				s.Integrate(acc, 1)
				Expect(s.Position(0).X).To(BeNumerically("~", 0.5*want, want*1e-12))
				Expect(s.Position(1).X).To(BeNumerically("~", d-0.5*want, 1e-6))
			}
		})

		It("skips coincident bodies without softening", func() {
			s, _ := bodies.NewEmpty(2)
			s.SetBody(0, 1e20, 0, r3.Vec{X: 1}, r3.Vec{})
			s.SetBody(1, 1e20, 0, r3.Vec{X: 1}, r3.Vec{})
			p := compute.Params{G: 6.674e-11, Theta: 1}
			for _, kind := range compute.CPUKinds() {
				acc := accelerate(newBackend(kind, multi), s, p)
				Expect(acc.At(0)).To(Equal(r3.Vec{}), "kind %s", kind)
			}
		})
	})

	Describe("selection", func() {
		It("parses every kind", func() {
			for _, kind := range compute.Kinds() {
				k, err := compute.ParseKind(" " + string(kind))
				Expect(err).NotTo(HaveOccurred())
				Expect(k).To(Equal(kind))
			}
		})

		It("rejects unknown kinds", func() {
			_, err := compute.ParseKind("quantum")
			Expect(errors.Is(err, compute.ErrUnknownBackend)).To(BeTrue())
			_, err = compute.New("quantum", compute.Options{})
			Expect(err).To(MatchError(compute.ErrUnknownBackend))
		})

		It("rejects unknown schedules", func() {
			_, err := compute.New(compute.Parallel, compute.Options{Schedule: "dynamic"})
			Expect(err).To(HaveOccurred())
		})

		It("reports missing devices at construction", func() {
			for _, kind := range []compute.Kind{compute.OpenGL, compute.CUDA} {
				b, err := compute.New(kind, compute.Options{})
				if err == nil {
					b.Cleanup()
					continue
				}
				Expect(errors.Is(err, compute.ErrDeviceUnavailable)).To(BeTrue())
				Expect(b).To(BeNil())
			}
		})

		It("always finds a backend", func() {
			b := compute.AutoSelectBackend(compute.Options{Workers: 2})
			DeferCleanup(b.Cleanup)
			Expect(b.Available()).To(BeTrue())
		})

		It("counts nominal flops", func() {
			Expect(compute.FlopsPerIteration(1)).To(BeZero())
			Expect(compute.FlopsPerIteration(10)).To(Equal(1350.0))
		})
	})

	Describe("pool lifecycle", func() {
		It("restarts its workers after Cleanup", func() {
			s := randomCloud(64, 8).store()
			pool := compute.NewPoolBackend(3, 2)
			first := accelerate(pool, s, params)
			pool.Cleanup()

			done := make(chan *bodies.Accelerations, 1)
			go func() { done <- accelerate(pool, s, params) }()
			var again *bodies.Accelerations
			Eventually(done).Should(Receive(&again))
			Expect(maxRelErr(again, first, s.N())).To(BeZero())

			pool.Cleanup()
			pool.Cleanup()
		})
	})
})
