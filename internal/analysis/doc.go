// Package analysis characterizes recorded sessions as step responses.
//
//   - [StepResponse]: rise time, overshoot, settling time and steady-state
//     error of one control channel
//   - [DominantFrequency]: strongest oscillation in an error signal
//   - [ErrorPortrait]: error against error rate, the PID's phase plane
//
// # Oscillation
//
// A session that exhausts its iterations without settling usually rings:
//
//	f := analysis.DominantFrequency(analysis.Errors(samples, analysis.Heading), dt)
package analysis
