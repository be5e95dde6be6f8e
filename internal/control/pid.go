package control

import (
	"errors"
	"math"
)

// ErrInvalidTimeStep is returned when the fixed step is not a positive finite number.
var ErrInvalidTimeStep = errors.New("control: time step must be positive and finite")

// Gains holds one channel's PID constants.
type Gains struct {
	Kp float64 `yaml:"kp" json:"kp"`
	Ki float64 `yaml:"ki" json:"ki"`
	Kd float64 `yaml:"kd" json:"kd"`
}

// channel is one PID loop. The error history is append-only and sum is kept
// alongside it so the integral term stays O(1) per step.
type channel struct {
	gains  Gains
	errors []float64
	sum    float64
}

func (c *channel) record(e float64) {
	c.errors = append(c.errors, e)
	c.sum += e
}

func (c *channel) output(dt float64) float64 {
	n := len(c.errors)
	last := c.errors[n-1]

	p := c.gains.Kp * last
	i := c.gains.Ki * c.sum
	d := 0.0
	if n >= 2 {
		d = c.gains.Kd * (last - c.errors[n-2]) / dt
	}
	return p + i + d
}

func (c *channel) history() []float64 {
	out := make([]float64, len(c.errors))
	copy(out, c.errors)
	return out
}

// Engine is a dual-channel PID controller. Velocity and heading loops share
// one fixed time step and always hold the same number of samples.
//
// The integral term is the sum of every error recorded since construction.
// There is no windowing and no anti-windup; a new session needs a new Engine.
type Engine struct {
	velocity channel
	heading  channel
	dt       float64
}

// NewEngine assigns the seven constants as given.
func NewEngine(velP, velI, velD, dt, headP, headI, headD float64) *Engine {
	return &Engine{
		velocity: channel{gains: Gains{Kp: velP, Ki: velI, Kd: velD}},
		heading:  channel{gains: Gains{Kp: headP, Ki: headI, Kd: headD}},
		dt:       dt,
	}
}

// NewEngineFromGains is NewEngine with the time step checked, since the
// derivative term divides by it.
func NewEngineFromGains(vel Gains, dt float64, head Gains) (*Engine, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, ErrInvalidTimeStep
	}
	return NewEngine(vel.Kp, vel.Ki, vel.Kd, dt, head.Kp, head.Ki, head.Kd), nil
}

// ComputeErrors appends the velocity and heading errors for this step and
// returns them.
func (e *Engine) ComputeErrors(targetVelocity, currentVelocity, targetHeading, currentHeading float64) (velErr, headErr float64) {
	velErr = targetVelocity - currentVelocity
	headErr = targetHeading - currentHeading
	e.velocity.record(velErr)
	e.heading.record(headErr)
	return velErr, headErr
}

// ComputePID returns [velocityOutput, headingOutput]. It returns nil until at
// least one error pair has been recorded, so callers must check the length.
func (e *Engine) ComputePID() []float64 {
	if len(e.velocity.errors) == 0 || len(e.heading.errors) == 0 {
		return nil
	}
	return []float64{e.velocity.output(e.dt), e.heading.output(e.dt)}
}

func (e *Engine) VelocityProportional() float64 { return e.velocity.gains.Kp }
func (e *Engine) VelocityIntegral() float64     { return e.velocity.gains.Ki }
func (e *Engine) VelocityDerivative() float64   { return e.velocity.gains.Kd }
func (e *Engine) HeadingProportional() float64  { return e.heading.gains.Kp }
func (e *Engine) HeadingIntegral() float64      { return e.heading.gains.Ki }
func (e *Engine) HeadingDerivative() float64    { return e.heading.gains.Kd }
func (e *Engine) DeltaTime() float64            { return e.dt }

// VelocityErrors returns a copy of the velocity error history, oldest first.
func (e *Engine) VelocityErrors() []float64 { return e.velocity.history() }

// HeadingErrors returns a copy of the heading error history, oldest first.
func (e *Engine) HeadingErrors() []float64 { return e.heading.history() }

// Samples is the number of error pairs recorded so far.
func (e *Engine) Samples() int { return len(e.velocity.errors) }

// GetParams returns the constants for display.
func (e *Engine) GetParams() map[string]float64 {
	return map[string]float64{
		"vel_kp":  e.velocity.gains.Kp,
		"vel_ki":  e.velocity.gains.Ki,
		"vel_kd":  e.velocity.gains.Kd,
		"head_kp": e.heading.gains.Kp,
		"head_ki": e.heading.gains.Ki,
		"head_kd": e.heading.gains.Kd,
		"dt":      e.dt,
	}
}
