// Package viz renders simulation progress in the terminal.
//
// [Model] is a Bubble Tea program that steps a simulator on a fixed tick
// and shows step count, simulated time, step rate and energy drift with an
// asciigraph chart of the drift history. [PlotSteps] charts the step
// records of a stored run.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	S     - Single step while paused
//	T     - Cycle color themes
//	?     - Show help
//	Q     - Quit
package viz
