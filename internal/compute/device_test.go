//go:build opengl || cuda

package compute_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/compute"
)

func device(kind compute.Kind) compute.Backend {
	b, err := compute.New(kind, compute.DefaultOptions())
	if errors.Is(err, compute.ErrDeviceUnavailable) {
		Skip(err.Error())
	}
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(b.Cleanup)
	return b
}

var _ = Describe("Device backends", func() {
	for _, kind := range []compute.Kind{compute.OpenGL, compute.CUDA} {
		It("matches the CPU kernels to single precision on "+string(kind), func() {
			s := randomCloud(256, 11).store()
			ref := accelerate(compute.NewVectorBackend(), s, params)

			b := device(kind)
			got := accelerate(b, s, params)
			Expect(b.(compute.ErrorReporter).Err()).NotTo(HaveOccurred())
			Expect(meanRelErr(got, ref, s.N())).To(BeNumerically("<", 1e-3))
		})

		It("can be driven from another goroutine on "+string(kind), func() {
			s := randomCloud(64, 12).store()
			b := device(kind)
			first := accelerate(b, s, params)

			done := make(chan *bodies.Accelerations, 1)
			go func() { done <- accelerate(b, s, params) }()
			var second *bodies.Accelerations
			Eventually(done).Should(Receive(&second))
			Expect(maxRelErr(second, first, s.N())).To(BeNumerically("<", 1e-6))
		})
	}

	It("holds one OpenGL context at a time", func() {
		first, err := compute.NewOpenGLBackend()
		if errors.Is(err, compute.ErrDeviceUnavailable) {
			Skip(err.Error())
		}
		Expect(err).NotTo(HaveOccurred())

		_, err = compute.NewOpenGLBackend()
		Expect(err).To(MatchError(compute.ErrDeviceUnavailable))

		first.Cleanup()
		first.Cleanup()
		Expect(first.Available()).To(BeFalse())

		s := randomCloud(16, 2).store()
		acc := accelerate(first, s, params)
		Expect(first.Err()).To(MatchError(compute.ErrDeviceUnavailable))
		Expect(acc.At(0)).To(Equal(r3.Vec{}))

		second, err := compute.NewOpenGLBackend()
		Expect(err).NotTo(HaveOccurred())
		second.Cleanup()
	})
})
