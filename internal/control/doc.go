// Package control provides the dual-channel PID engine that steers the
// vehicle toward a velocity and heading setpoint.
//
// One [Engine] runs two independent loops over a shared fixed time step:
//
//   - velocity: error = target velocity - current velocity
//   - heading:  error = target heading - current heading
//
// # Usage
//
//	pid := control.NewEngine(1.0, 0.1, 0.01, 0.1, 1.0, 0.1, 0.01)
//	pid.ComputeErrors(2.0, v, 0.2, theta)
//	if u := pid.ComputePID(); len(u) == 2 {
//		velocityOut, headingOut := u[0], u[1]
//	}
//
// An Engine accumulates its full error history. Build a fresh one per
// control session.
package control
