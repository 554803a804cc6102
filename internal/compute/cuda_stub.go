//go:build !cuda

package compute

import (
	"fmt"

	"github.com/san-kum/gravsim/internal/bodies"
)

type CUDABackend struct{}

func NewCUDABackend() (*CUDABackend, error) {
	return nil, fmt.Errorf("%w: built without the cuda tag", ErrDeviceUnavailable)
}

func (c *CUDABackend) Name() string    { return "cuda (not available)" }
func (c *CUDABackend) Available() bool { return false }
func (c *CUDABackend) Cleanup()        {}
func (c *CUDABackend) Err() error      { return nil }

func (c *CUDABackend) Accelerations(s *bodies.Store, p Params, acc *bodies.Accelerations) {}
