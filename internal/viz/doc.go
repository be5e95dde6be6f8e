// Package viz renders control sessions in the terminal.
//
// The live view uses the Bubble Tea framework:
//
//   - [Model]: steps one session per tick, draws the driven path
//   - [Canvas]: Braille-based pixel canvas for the trajectory
//   - a setpoint form that starts a fresh session on every launch
//
// # Key Bindings
//
//	Space - Pause/Resume the session
//	N     - Single step while paused
//	R     - Restart on a fresh simulator
//	T     - Cycle color themes
//	?     - Show help overlay
//	+/-   - Iterations per frame
package viz
