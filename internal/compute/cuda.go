//go:build cuda

package compute

/*
#cgo CFLAGS: -I/opt/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L${SRCDIR} -lcudart -lkernels -lstdc++
#include <stdlib.h>

extern int cuda_device_count();
extern const char* cuda_device_name_get();
extern const char* cuda_error_string(int status);
extern int nbody_accel(const float* qx, const float* qy, const float* qz, const float* m,
	float* ax, float* ay, float* az, int n, float g, float eps2);
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/san-kum/gravsim/internal/bodies"
)

// CUDABackend stages the SoA projection as float32 and runs kernels.cu.
// A failed transfer or launch zeroes acc and is reported by Err.
type CUDABackend struct {
	deviceName string
	staging    [7][]float32
	err        error
}

func NewCUDABackend() (*CUDABackend, error) {
	count := int(C.cuda_device_count())
	if count <= 0 {
		return nil, fmt.Errorf("%w: no cuda device", ErrDeviceUnavailable)
	}
	return &CUDABackend{deviceName: C.GoString(C.cuda_device_name_get())}, nil
}

func (c *CUDABackend) Name() string    { return "cuda (" + c.deviceName + ")" }
func (c *CUDABackend) Available() bool { return true }
func (c *CUDABackend) Cleanup()        { c.staging = [7][]float32{} }
func (c *CUDABackend) Err() error      { return c.err }

func (c *CUDABackend) Accelerations(s *bodies.Store, p Params, acc *bodies.Accelerations) {
	n := s.N()
	if len(c.staging[0]) < n {
		for k := range c.staging {
			c.staging[k] = make([]float32, n)
		}
	}
	qx, qy, qz, m := c.staging[0], c.staging[1], c.staging[2], c.staging[3]
	ax, ay, az := c.staging[4], c.staging[5], c.staging[6]

	d := s.SoA()
	for i := 0; i < n; i++ {
		qx[i] = float32(d.QX[i])
		qy[i] = float32(d.QY[i])
		qz[i] = float32(d.QZ[i])
		m[i] = float32(d.M[i])
	}

	ptr := func(v []float32) *C.float { return (*C.float)(unsafe.Pointer(&v[0])) }
	status := C.nbody_accel(ptr(qx), ptr(qy), ptr(qz), ptr(m), ptr(ax), ptr(ay), ptr(az),
		C.int(n), C.float(p.G), C.float(p.Softening*p.Softening))
	if status != 0 {
		c.err = fmt.Errorf("%w: cuda: %s", ErrDeviceFailure, C.GoString(C.cuda_error_string(status)))
		acc.Reset()
		return
	}
	c.err = nil

	for i := 0; i < n; i++ {
		acc.AX[i] = float64(ax[i])
		acc.AY[i] = float64(ay[i])
		acc.AZ[i] = float64(az[i])
	}
}
