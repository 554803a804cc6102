// Package dynamo drives an N-body simulation step by step.
//
// A [Simulator] owns a [bodies.Store] and a [compute.Backend]. Each call to
// [Simulator.Step] performs the full step:
//
//   - reset the acceleration accumulator
//   - compute accelerations with the backend
//   - integrate positions and velocities by dt
//
// Nothing but the store carries over from one step to the next.
//
// # Example
//
//	store, _ := bodies.New(1000, scheme.Galaxy{}, 42)
//	backend, _ := compute.New(compute.Pool, compute.DefaultOptions())
//	sim, _ := dynamo.New(store, backend, dynamo.DefaultParams())
//	result, _ := sim.Run(ctx, dynamo.Config{Iterations: 100})
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. For parallel simulations,
// use the [Ensemble] type which runs independent simulators per seed.
package dynamo
