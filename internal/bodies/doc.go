// Package bodies holds the physical state of an N-body simulation.
//
// A Store keeps every body in two projections that always carry the same
// values: a structure-of-arrays view (SoA) read by the vectorized force
// kernels, and an array-of-structures view (AoS) read by the Barnes-Hut tree.
// All writes go through SetBody, which updates both.
//
// The body count is rounded up to a multiple of the lane width with padding
// bodies of zero mass. Padding never contributes to the acceleration of a real
// body and is never advanced by Integrate.
//
// # Integration
//
// Integrate applies one step of the half-step position update:
//
//	v' = v + a·dt
//	p' = p + (v + a·dt/2)·dt
//
// The a·dt product is computed once and shared by both updates so that every
// force backend feeds the same rounding into the next step.
package bodies
