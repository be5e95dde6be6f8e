package models

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultWheelbase        = 0.5
	DefaultTrackWidth       = 1.0
	DefaultWheelRadius      = 0.1
	DefaultMaxSteeringAngle = math.Pi / 4

	// maxTurnSteer bounds the turn integrator when no maximum is configured,
	// keeping tan(angle) positive and finite.
	maxTurnSteer = math.Pi/2 - 1e-3
)

var (
	ErrInvalidGeometry = errors.New("models: invalid vehicle geometry")
	ErrInvalidRadius   = errors.New("models: turning radius must be non-zero")
	ErrNoWheelRadius   = errors.New("models: wheel radius must be positive for the turn integrator")
	ErrInvalidStep     = errors.New("models: time step must be positive")
)

// Geometry is fixed at construction. A zero MaxSteeringAngle means the
// steering angle is unconstrained.
type Geometry struct {
	Wheelbase        float64 `yaml:"wheelbase" json:"wheelbase"`
	TrackWidth       float64 `yaml:"track_width" json:"track_width"`
	WheelRadius      float64 `yaml:"wheel_radius" json:"wheel_radius"`
	MaxSteeringAngle float64 `yaml:"max_steering_angle" json:"max_steering_angle"`
}

func DefaultGeometry() Geometry {
	return Geometry{
		Wheelbase:        DefaultWheelbase,
		TrackWidth:       DefaultTrackWidth,
		WheelRadius:      DefaultWheelRadius,
		MaxSteeringAngle: DefaultMaxSteeringAngle,
	}
}

func (g Geometry) Validate() error {
	switch {
	case !(g.Wheelbase > 0) || math.IsInf(g.Wheelbase, 0):
		return fmt.Errorf("%w: wheelbase %v", ErrInvalidGeometry, g.Wheelbase)
	case !(g.TrackWidth > 0) || math.IsInf(g.TrackWidth, 0):
		return fmt.Errorf("%w: track width %v", ErrInvalidGeometry, g.TrackWidth)
	case !(g.WheelRadius >= 0) || math.IsInf(g.WheelRadius, 0):
		return fmt.Errorf("%w: wheel radius %v", ErrInvalidGeometry, g.WheelRadius)
	case !(g.MaxSteeringAngle >= 0) || math.IsInf(g.MaxSteeringAngle, 0):
		return fmt.Errorf("%w: max steering angle %v", ErrInvalidGeometry, g.MaxSteeringAngle)
	}
	return nil
}

// Turn is the turn integrator's direction state.
type Turn int

const (
	TurnStraight Turn = iota
	TurnLeft
	TurnRight
)

func (t Turn) String() string {
	switch t {
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	default:
		return "straight"
	}
}

// State is the single backing store for both update paths. Theta and
// Velocity double as the turn integrator's accumulated heading and speed.
type State struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Theta    float64 `json:"theta"`
	Velocity float64 `json:"velocity"`

	LeftSteer  float64 `json:"left_steer"`
	RightSteer float64 `json:"right_steer"`
	LeftOmega  float64 `json:"left_omega"`
	RightOmega float64 `json:"right_omega"`
	LeftSpeed  float64 `json:"left_speed"`
	RightSpeed float64 `json:"right_speed"`
	Turn       Turn    `json:"turn"`
}

func (s State) values() []float64 {
	return []float64{
		s.X, s.Y, s.Theta, s.Velocity,
		s.LeftSteer, s.RightSteer, s.LeftOmega, s.RightOmega, s.LeftSpeed, s.RightSpeed,
	}
}

// IsValid reports whether every field is finite.
func (s State) IsValid() bool {
	for _, v := range s.values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Vehicle is an Ackermann-steered car-like robot.
type Vehicle struct {
	geom  Geometry
	state State
}

// NewVehicle starts at the origin, facing +x, at rest.
func NewVehicle(g Geometry) *Vehicle {
	return &Vehicle{geom: g}
}

// NewVehicleChecked is NewVehicle with the geometry validated.
func NewVehicleChecked(g Geometry) (*Vehicle, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return NewVehicle(g), nil
}

func (v *Vehicle) Geometry() Geometry { return v.geom }

func (v *Vehicle) SetInitialState(x, y, theta, velocity float64) {
	v.state.X = x
	v.state.Y = y
	v.state.Theta = theta
	v.state.Velocity = velocity
}

// SetVelocity assigns the scalar speed used by the pose integrator.
func (v *Vehicle) SetVelocity(velocity float64) {
	v.state.Velocity = velocity
}

func (v *Vehicle) GetState() (x, y, theta, velocity float64) {
	return v.state.X, v.state.Y, v.state.Theta, v.state.Velocity
}

// Snapshot returns a copy of the full state.
func (v *Vehicle) Snapshot() State {
	return v.state
}

func (v *Vehicle) HeadingAccumulated() float64 { return v.state.Theta }
func (v *Vehicle) SpeedAccumulated() float64   { return v.state.Velocity }

// ClampSteering limits the magnitude of angle to the configured maximum,
// keeping its sign.
func (v *Vehicle) ClampSteering(angle float64) float64 {
	return clampAbs(angle, v.geom.MaxSteeringAngle)
}

func (v *Vehicle) clampTurn(angle float64) float64 {
	limit := v.geom.MaxSteeringAngle
	if limit <= 0 || limit > maxTurnSteer {
		limit = maxTurnSteer
	}
	return clampAbs(angle, limit)
}

func clampAbs(x, limit float64) float64 {
	if limit <= 0 {
		return x
	}
	if x > limit {
		return limit
	}
	if x < -limit {
		return -limit
	}
	return x
}

// turnRadius returns L/tan(angle) for a non-negative angle, and false when the
// angle is too small for the radius to be finite.
func (v *Vehicle) turnRadius(angle float64) (float64, bool) {
	tan := math.Tan(angle)
	if tan == 0 {
		return 0, false
	}
	r := v.geom.Wheelbase / tan
	if math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// UpdateState integrates the pose for one step at the current velocity.
// Positive steering turns counter-clockwise. Velocity is left untouched.
func (v *Vehicle) UpdateState(steeringAngle, dt float64) {
	s := &v.state
	steer := v.ClampSteering(steeringAngle)
	halfW := v.geom.TrackWidth / 2

	vLeft, vRight := s.Velocity, s.Velocity
	if r, ok := v.turnRadius(steer); ok {
		vLeft = s.Velocity * (r - halfW) / r
		vRight = s.Velocity * (r + halfW) / r
	}
	s.LeftSpeed, s.RightSpeed = vLeft, vRight

	mean := 0.5 * (vLeft + vRight)
	// right minus left, not left minus right: positive steering turns CCW
	dTheta := (vRight - vLeft) / v.geom.TrackWidth * dt
	s.X += mean * math.Cos(s.Theta) * dt
	s.Y += mean * math.Sin(s.Theta) * dt
	s.Theta += dTheta
}

// SimulateModel drives the wheel-speed integrator straight from the PID
// outputs. velocityOutput is an increment to the driven wheel's angular
// velocity. Heading accumulates without normalization.
func (v *Vehicle) SimulateModel(headingOutput, velocityOutput, dt float64) error {
	wr := v.geom.WheelRadius
	if !(wr > 0) {
		return ErrNoWheelRadius
	}
	if !(dt > 0) {
		return ErrInvalidStep
	}

	s := &v.state
	h := v.clampTurn(headingOutput)
	L := v.geom.Wheelbase
	halfW := v.geom.TrackWidth / 2

	r, curved := v.turnRadius(math.Abs(h))
	dTheta := 0.0

	switch {
	case curved && h > 0:
		s.Turn = TurnLeft
		s.LeftSteer = math.Atan(L / (r - halfW))
		s.RightSteer = math.Atan(L / (r + halfW))
		s.RightOmega += velocityOutput
		dTheta = s.RightOmega * wr * dt / (r + halfW)
		s.LeftOmega = dTheta * (r - halfW) / (wr * dt)
		s.Velocity = math.Abs(r * dTheta / dt)
	case curved && h < 0:
		s.Turn = TurnRight
		s.RightSteer = -math.Atan(L / (r - halfW))
		s.LeftSteer = -math.Atan(L / (r + halfW))
		s.LeftOmega += velocityOutput
		dTheta = -s.LeftOmega * wr * dt / (r + halfW)
		s.RightOmega = -dTheta * (r - halfW) / (wr * dt)
		s.Velocity = math.Abs(r * dTheta / dt)
	default:
		s.Turn = TurnStraight
		s.LeftSteer, s.RightSteer = 0, 0
		if s.LeftOmega <= s.RightOmega {
			s.LeftOmega += velocityOutput
			s.RightOmega = s.LeftOmega
		} else {
			s.RightOmega += velocityOutput
			s.LeftOmega = s.RightOmega
		}
		s.Velocity = s.LeftOmega * wr
	}

	s.LeftSpeed = s.LeftOmega * wr
	s.RightSpeed = s.RightOmega * wr
	s.Theta += dTheta
	s.X += s.Velocity * math.Cos(s.Theta) * dt
	s.Y += s.Velocity * math.Sin(s.Theta) * dt
	return nil
}

// Steering is the Ackermann solution for one turning radius.
type Steering struct {
	Angle      float64 `json:"angle"`
	Inner      float64 `json:"inner"`
	Outer      float64 `json:"outer"`
	Radius     float64 `json:"radius"`
	LeftSpeed  float64 `json:"left_speed"`
	RightSpeed float64 `json:"right_speed"`
}

// SteerForRadius solves the steering angles and wheel speeds that follow a
// circle of the given radius at the current velocity. Positive radius turns
// left. An infinite radius is straight travel. The bicycle angle is clamped
// to the configured maximum, and the radius is recomputed when it is.
func (v *Vehicle) SteerForRadius(radius float64) (Steering, error) {
	if radius == 0 || math.IsNaN(radius) {
		return Steering{}, fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}
	speed := v.state.Velocity
	if math.IsInf(radius, 0) {
		return Steering{Radius: radius, LeftSpeed: speed, RightSpeed: speed}, nil
	}

	sign := 1.0
	if radius < 0 {
		sign = -1
	}
	L := v.geom.Wheelbase
	halfW := v.geom.TrackWidth / 2

	angle := v.ClampSteering(math.Atan(L / math.Abs(radius)))
	r, ok := v.turnRadius(angle)
	if !ok {
		return Steering{Radius: math.Inf(int(sign)), LeftSpeed: speed, RightSpeed: speed}, nil
	}

	st := Steering{
		Angle:  sign * angle,
		Inner:  sign * math.Atan(L/(r-halfW)),
		Outer:  sign * math.Atan(L/(r+halfW)),
		Radius: sign * r,
	}
	inner := speed * (r - halfW) / r
	outer := speed * (r + halfW) / r
	if sign > 0 {
		st.LeftSpeed, st.RightSpeed = inner, outer
	} else {
		st.LeftSpeed, st.RightSpeed = outer, inner
	}
	return st, nil
}
