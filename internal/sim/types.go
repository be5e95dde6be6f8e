package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/ackersim/internal/models"
)

// Mode selects which vehicle update path a session drives.
type Mode string

const (
	// ModeTurn feeds the PID outputs to the wheel-speed turn integrator. The
	// velocity output is an increment to the driven wheel's angular velocity.
	ModeTurn Mode = "turn"
	// ModePose feeds the heading output as a steering angle to the pose
	// integrator. The velocity output is the absolute commanded speed, so the
	// speed only settles while Kp·(1 + Kd/dt) of the velocity gains is below 1.
	ModePose Mode = "pose"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTurn, "":
		return ModeTurn, nil
	case ModePose:
		return ModePose, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidSession, s)
}

// Phase is the session state machine:
// Initialized -> Iterating -> Converged | Exhausted, or Initialized -> Rejected.
type Phase int

const (
	PhaseInitialized Phase = iota
	PhaseIterating
	PhaseConverged
	PhaseExhausted
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialized:
		return "initialized"
	case PhaseIterating:
		return "iterating"
	case PhaseConverged:
		return "converged"
	case PhaseExhausted:
		return "exhausted"
	case PhaseRejected:
		return "rejected"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) Terminal() bool {
	return p == PhaseConverged || p == PhaseExhausted || p == PhaseRejected
}

const (
	DefaultMaxIterations = 1000
	DefaultThreshold     = 0.01
)

// Session is one setpoint request plus the convergence policy.
type Session struct {
	TargetHeading  float64
	TargetVelocity float64
	MaxIterations  int
	Threshold      float64
	Mode           Mode
}

func DefaultSession() Session {
	return Session{
		MaxIterations: DefaultMaxIterations,
		Threshold:     DefaultThreshold,
		Mode:          ModeTurn,
	}
}

func (s Session) validate() error {
	if s.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidSession, s.MaxIterations)
	}
	if !(s.Threshold > 0) || math.IsInf(s.Threshold, 0) {
		return fmt.Errorf("%w: threshold must be positive, got %f", ErrInvalidSession, s.Threshold)
	}
	if math.IsNaN(s.TargetHeading) || math.IsNaN(s.TargetVelocity) {
		return fmt.Errorf("%w: target is NaN", ErrInvalidSession)
	}
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	return nil
}

// Pose is the vehicle's position, heading and scalar speed.
type Pose struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Theta    float64 `json:"theta"`
	Velocity float64 `json:"velocity"`
}

// Sample is the telemetry of one loop iteration.
type Sample struct {
	Iteration      int          `json:"iteration"`
	Time           float64      `json:"time"`
	VelocityError  float64      `json:"velocity_error"`
	HeadingError   float64      `json:"heading_error"`
	VelocityOutput float64      `json:"velocity_output"`
	HeadingOutput  float64      `json:"heading_output"`
	State          models.State `json:"state"`
}

type Observer interface {
	OnIteration(s Sample)
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Result struct {
	Phase      Phase              `json:"-"`
	Iterations int                `json:"iterations"`
	Final      Pose               `json:"final"`
	Samples    []Sample           `json:"samples"`
	Metrics    map[string]float64 `json:"metrics"`
}

func (r *Result) Converged() bool { return r.Phase == PhaseConverged }
