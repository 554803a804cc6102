// Package physics provides the gravitational pair kernel and the conserved
// quantities of an N-body system.
//
// [Factor] is the single definition of the softened pair term shared by every
// force backend and by the Barnes-Hut tree:
//
//	factor = G / (d² + ε²)^{3/2}
//
// The remaining functions read a [bodies.Store] and are used for monitoring:
//
//	e0 := physics.Energy(store, g, softening)
//	p := physics.Momentum(store)
package physics
