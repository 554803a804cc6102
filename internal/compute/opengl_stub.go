//go:build !opengl

package compute

import (
	"fmt"

	"github.com/san-kum/gravsim/internal/bodies"
)

type OpenGLBackend struct{}

func NewOpenGLBackend() (*OpenGLBackend, error) {
	return nil, fmt.Errorf("%w: built without the opengl tag", ErrDeviceUnavailable)
}

func (c *OpenGLBackend) Name() string    { return "opengl (not available)" }
func (c *OpenGLBackend) Available() bool { return false }
func (c *OpenGLBackend) Cleanup()        {}
func (c *OpenGLBackend) Err() error      { return nil }

func (c *OpenGLBackend) Accelerations(s *bodies.Store, p Params, acc *bodies.Accelerations) {}
