//go:build opengl

package compute

import (
	_ "embed"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/san-kum/gravsim/internal/bodies"
)

//go:embed shaders/nbody.comp
var nbodyShader string

const localSize = 256

// raylib keeps one window, and so one context, per process.
var contextInUse atomic.Bool

// OpenGLBackend runs the pair kernel in a compute shader. It owns a hidden
// raylib window whose context stays current on one locked OS thread; every
// GL call is handed to that thread, so the backend may be driven from any
// goroutine. raylib must be built with the opengl43 tag for a 4.3 context:
//
//	go build -tags "opengl opengl43" ./...
//
// Bodies are staged as float32 vec4 (x, y, z, m) in binding 0 and the three
// acceleration arrays come back from bindings 1 to 3 after each dispatch.
type OpenGLBackend struct {
	calls chan func()
	quit  chan struct{}
	done  chan struct{}
	stop  sync.Once

	program  uint32
	ssboIn   uint32
	ssboOut  [3]uint32
	capacity int
	staging  []float32
	readback []float32
	renderer string
	err      error
}

func NewOpenGLBackend() (*OpenGLBackend, error) {
	if !contextInUse.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: opengl context already in use", ErrDeviceUnavailable)
	}

	c := &OpenGLBackend{
		calls: make(chan func()),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	ready := make(chan error, 1)
	go c.serve(ready)
	if err := <-ready; err != nil {
		contextInUse.Store(false)
		return nil, err
	}
	return c, nil
}

// serve owns the context thread until Cleanup. The thread stays locked and
// is discarded with the goroutine.
func (c *OpenGLBackend) serve(ready chan<- error) {
	runtime.LockOSThread()
	defer close(c.done)

	if err := c.open(); err != nil {
		ready <- err
		return
	}
	ready <- nil

	for {
		select {
		case fn := <-c.calls:
			fn()
		case <-c.quit:
			c.release()
			return
		}
	}
}

func (c *OpenGLBackend) open() error {
	rl.SetTraceLogLevel(rl.LogWarning)
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(1, 1, "gravsim")
	if !rl.IsWindowReady() {
		return fmt.Errorf("%w: cannot open a hidden window", ErrDeviceUnavailable)
	}
	if err := c.compile(); err != nil {
		rl.CloseWindow()
		return err
	}
	return nil
}

func (c *OpenGLBackend) compile() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("%w: init opengl: %v", ErrDeviceUnavailable, err)
	}
	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	if major < 4 || major == 4 && minor < 3 {
		return fmt.Errorf("%w: opengl %d.%d context, compute shaders need 4.3", ErrDeviceUnavailable, major, minor)
	}

	program, err := createComputeProgram(nbodyShader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	c.program = program
	c.renderer = gl.GoStr(gl.GetString(gl.RENDERER))
	gl.GenBuffers(1, &c.ssboIn)
	gl.GenBuffers(3, &c.ssboOut[0])
	return nil
}

func (c *OpenGLBackend) release() {
	gl.DeleteBuffers(1, &c.ssboIn)
	gl.DeleteBuffers(3, &c.ssboOut[0])
	gl.DeleteProgram(c.program)
	c.program = 0
	rl.CloseWindow()
}

// do runs fn on the context thread and waits for it. It reports false once
// the backend has been cleaned up.
func (c *OpenGLBackend) do(fn func()) bool {
	finished := make(chan struct{})
	select {
	case c.calls <- func() { fn(); close(finished) }:
	case <-c.done:
		return false
	}
	<-finished
	return true
}

func (c *OpenGLBackend) Name() string { return "opengl (" + c.renderer + ")" }
func (c *OpenGLBackend) Err() error   { return c.err }

func (c *OpenGLBackend) Available() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *OpenGLBackend) Accelerations(s *bodies.Store, p Params, acc *bodies.Accelerations) {
	ok := c.do(func() { c.err = c.dispatch(s, p, acc) })
	if !ok {
		acc.Reset()
		c.err = fmt.Errorf("%w: opengl backend closed", ErrDeviceUnavailable)
	}
}

func (c *OpenGLBackend) resize(n int) {
	if n <= c.capacity {
		return
	}
	c.capacity = n
	c.staging = make([]float32, n*4)
	c.readback = make([]float32, n)

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, c.ssboIn)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, n*4*4, nil, gl.DYNAMIC_DRAW)
	for _, buf := range c.ssboOut {
		gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, buf)
		gl.BufferData(gl.SHADER_STORAGE_BUFFER, n*4, nil, gl.DYNAMIC_READ)
	}
}

func (c *OpenGLBackend) dispatch(s *bodies.Store, p Params, acc *bodies.Accelerations) error {
	n := s.N()
	c.resize(n)

	d := s.SoA()
	for i := 0; i < n; i++ {
		c.staging[i*4] = float32(d.QX[i])
		c.staging[i*4+1] = float32(d.QY[i])
		c.staging[i*4+2] = float32(d.QZ[i])
		c.staging[i*4+3] = float32(d.M[i])
	}

	gl.UseProgram(c.program)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, c.ssboIn)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, n*4*4, gl.Ptr(c.staging))
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, c.ssboIn)
	for k, buf := range c.ssboOut {
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, uint32(k+1), buf)
	}

	gl.Uniform1i(gl.GetUniformLocation(c.program, gl.Str("numBodies\x00")), int32(n))
	gl.Uniform1f(gl.GetUniformLocation(c.program, gl.Str("g\x00")), float32(p.G))
	gl.Uniform1f(gl.GetUniformLocation(c.program, gl.Str("eps2\x00")), float32(p.Softening*p.Softening))

	gl.DispatchCompute(uint32((n+localSize-1)/localSize), 1, 1)
	gl.MemoryBarrier(gl.BUFFER_UPDATE_BARRIER_BIT)

	for k, out := range [][]float64{acc.AX, acc.AY, acc.AZ} {
		gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, c.ssboOut[k])
		gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, n*4, gl.Ptr(c.readback))
		for i := 0; i < n; i++ {
			out[i] = float64(c.readback[i])
		}
	}

	if code := gl.GetError(); code != gl.NO_ERROR {
		acc.Reset()
		return fmt.Errorf("%w: opengl error 0x%x", ErrDeviceFailure, code)
	}
	return nil
}

// Cleanup deletes the GL objects and closes the window. Later calls to
// Accelerations zero acc and report ErrDeviceUnavailable through Err.
func (c *OpenGLBackend) Cleanup() {
	c.stop.Do(func() {
		close(c.quit)
		<-c.done
		contextInUse.Store(false)
	})
}

func createComputeProgram(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile compute shader: %v", log)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.DeleteShader(shader)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program")
	}
	return program, nil
}
