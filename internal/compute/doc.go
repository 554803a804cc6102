// Package compute provides the interchangeable force backends.
//
// Every backend implements [Backend]: given a body store and the physical
// constants it writes one acceleration per real body. Backends are selected
// by [Kind] through [New]:
//
//   - scalar: symmetric pair loop, single goroutine
//   - simd: asymmetric row kernel, Lanes values of j at a time
//   - parallel: the row kernel over disjoint ranges of i, static or guided
//   - pool: persistent workers claiming batches from an atomic cursor
//   - barnes-hut, barnes-hut-parallel: octree approximation
//   - opengl, cuda: device offload
//
// Only the scalar backend uses pair symmetry. Every parallel backend writes
// each output row from exactly one goroutine.
//
// # GPU Acceleration
//
// Device backends are compiled in with build tags and fail at construction
// with [ErrDeviceUnavailable] when no device or context is present. The
// OpenGL backend opens its own hidden window for a 4.3 context:
//
//	go build -tags "opengl opengl43" ./...
//	nvcc -O3 -shared -Xcompiler -fPIC -o internal/compute/libkernels.so internal/compute/kernels.cu
//	go build -tags cuda ./...
//
// Device kernels run in float32 and agree with the CPU kernels only to
// single precision. A failure during a step is reported through
// [ErrorReporter] and wraps [ErrDeviceFailure].
package compute
