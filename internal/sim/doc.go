// Package sim runs the closed setpoint-tracking loop for one vehicle.
//
// A [Simulator] owns exactly one [models.Vehicle] and one [control.Engine]
// and runs exactly one [Session]:
//
//   - measure the heading and speed
//   - feed both errors to the PID engine
//   - actuate the vehicle with the two outputs
//   - stop on convergence or when the iteration cap is hit
//
// A negative target heading or velocity ends the session as
// [PhaseRejected] without iterating.
//
// # Example
//
//	s, _ := sim.New(models.DefaultGeometry(), gains, 0.1, gains)
//	sess := sim.DefaultSession()
//	sess.TargetHeading, sess.TargetVelocity = 0.2, 2.0
//	res, _ := s.Run(sess)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe and cannot be reused. Use
// [Batch] to run many sessions concurrently from a [Factory].
package sim
