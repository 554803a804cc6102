package compute

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/san-kum/gravsim/internal/bodies"
)

var (
	ErrUnknownBackend    = errors.New("compute: unknown backend")
	ErrDeviceUnavailable = errors.New("compute: device unavailable")
	ErrDeviceFailure     = errors.New("compute: device failed during a step")
)

// Params are the physical constants every backend needs.
type Params struct {
	G         float64
	Softening float64
	Theta     float64
}

// Backend fills acc[0:N] with the acceleration of every real body of s.
// Padding slots of acc may be written but carry no meaning.
type Backend interface {
	Name() string
	Available() bool
	Accelerations(s *bodies.Store, p Params, acc *bodies.Accelerations)
	Cleanup()
}

// ErrorReporter is implemented by backends whose Accelerations can fail,
// typically device offload. Err describes the failure of the last call, or
// is nil when that call filled acc.
type ErrorReporter interface {
	Err() error
}

type Kind string

const (
	Scalar            Kind = "scalar"
	SIMD              Kind = "simd"
	Parallel          Kind = "parallel"
	Pool              Kind = "pool"
	BarnesHut         Kind = "barnes-hut"
	BarnesHutParallel Kind = "barnes-hut-parallel"
	OpenGL            Kind = "opengl"
	CUDA              Kind = "cuda"
)

type Schedule string

const (
	Static Schedule = "static"
	Guided Schedule = "guided"
)

type Options struct {
	Workers  int
	Batch    int
	Schedule Schedule
}

func DefaultOptions() Options {
	return Options{
		Workers:  runtime.NumCPU(),
		Batch:    2,
		Schedule: Static,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.Batch <= 0 {
		o.Batch = d.Batch
	}
	if o.Schedule == "" {
		o.Schedule = d.Schedule
	}
	return o
}

func Kinds() []Kind {
	return []Kind{Scalar, SIMD, Parallel, Pool, BarnesHut, BarnesHutParallel, OpenGL, CUDA}
}

// CPUKinds lists the kinds that never need a device.
func CPUKinds() []Kind {
	return []Kind{Scalar, SIMD, Parallel, Pool, BarnesHut, BarnesHutParallel}
}

func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// New constructs the backend for kind. Device backends fail here, wrapping
// ErrDeviceUnavailable, rather than on a later step.
func New(kind Kind, opts Options) (Backend, error) {
	opts = opts.withDefaults()
	switch kind {
	case Scalar:
		return NewScalarBackend(), nil
	case SIMD:
		return NewVectorBackend(), nil
	case Parallel:
		if opts.Schedule != Static && opts.Schedule != Guided {
			return nil, fmt.Errorf("compute: unknown schedule %q", opts.Schedule)
		}
		return NewParallelBackend(opts.Workers, opts.Schedule), nil
	case Pool:
		return NewPoolBackend(opts.Workers, opts.Batch), nil
	case BarnesHut:
		return NewBarnesHutBackend(1), nil
	case BarnesHutParallel:
		return NewBarnesHutBackend(opts.Workers), nil
	case OpenGL:
		gl, err := NewOpenGLBackend()
		if err != nil {
			return nil, err
		}
		return gl, nil
	case CUDA:
		cuda, err := NewCUDABackend()
		if err != nil {
			return nil, err
		}
		return cuda, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
}

// AutoSelectBackend prefers a CUDA device and falls back to the worker pool.
func AutoSelectBackend(opts Options) Backend {
	if cuda, err := NewCUDABackend(); err == nil {
		return cuda
	}
	opts = opts.withDefaults()
	return NewPoolBackend(opts.Workers, opts.Batch)
}

// FlopsPerIteration is the nominal floating point work of one step over n
// bodies, counted as the symmetric pair kernel. Every backend reports
// against the same figure so Gflop/s numbers are comparable.
func FlopsPerIteration(n int) float64 {
	fn := float64(n)
	return 30 * (fn*fn - fn) / 2
}
