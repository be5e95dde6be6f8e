package sim

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/san-kum/ackersim/internal/control"
	"github.com/san-kum/ackersim/internal/models"
)

// Simulator owns one vehicle and one PID engine for exactly one session.
type Simulator struct {
	vehicle *models.Vehicle
	pid     *control.Engine

	session Session
	phase   Phase
	iter    int
	err     error
	final   Pose
	samples []Sample

	metrics   []Metric
	observers []Observer
	logger    *log.Logger
}

// New builds the vehicle and the engine the simulator will own.
func New(g models.Geometry, vel control.Gains, dt float64, head control.Gains) (*Simulator, error) {
	vehicle, err := models.NewVehicleChecked(g)
	if err != nil {
		return nil, err
	}
	pid, err := control.NewEngineFromGains(vel, dt, head)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		vehicle:   vehicle,
		pid:       pid,
		phase:     PhaseInitialized,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    log.New(io.Discard),
	}, nil
}

func (s *Simulator) AddMetric(m Metric)         { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)     { s.observers = append(s.observers, o) }
func (s *Simulator) SetLogger(l *log.Logger)    { s.logger = l }
func (s *Simulator) Phase() Phase               { return s.phase }
func (s *Simulator) Iterations() int            { return s.iter }
func (s *Simulator) Session() Session           { return s.session }
func (s *Simulator) State() models.State        { return s.vehicle.Snapshot() }
func (s *Simulator) Geometry() models.Geometry  { return s.vehicle.Geometry() }
func (s *Simulator) Params() map[string]float64 { return s.pid.GetParams() }
func (s *Simulator) DeltaTime() float64         { return s.pid.DeltaTime() }
func (s *Simulator) Final() Pose                { return s.final }
func (s *Simulator) FinalX() float64            { return s.final.X }
func (s *Simulator) FinalY() float64            { return s.final.Y }
func (s *Simulator) FinalTheta() float64        { return s.final.Theta }
func (s *Simulator) FinalVelocity() float64     { return s.final.Velocity }

// SetInitialState places the vehicle before the session starts.
func (s *Simulator) SetInitialState(x, y, theta, velocity float64) error {
	if s.phase != PhaseInitialized {
		return ErrSessionReused
	}
	s.vehicle.SetInitialState(x, y, theta, velocity)
	return nil
}

// Start validates the session and enters the loop. A negative target
// heading or velocity ends the session as Rejected without iterating.
func (s *Simulator) Start(sess Session) error {
	if s.phase != PhaseInitialized {
		return ErrSessionReused
	}
	if sess.Mode == "" {
		sess.Mode = ModeTurn
	}
	if err := sess.validate(); err != nil {
		return err
	}

	s.session = sess
	s.samples = make([]Sample, 0, min(sess.MaxIterations, 4096))
	for _, m := range s.metrics {
		m.Reset()
	}

	if sess.TargetHeading < 0 || sess.TargetVelocity < 0 {
		s.phase = PhaseRejected
		s.capture()
		s.logger.Info("setpoint rejected", "heading", sess.TargetHeading, "velocity", sess.TargetVelocity)
		return nil
	}

	if sess.Mode == ModeTurn && !(s.vehicle.Geometry().WheelRadius > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSession, models.ErrNoWheelRadius)
	}
	if sess.Mode == ModePose {
		if g := s.PoseLoopGain(); g >= 1 {
			s.logger.Warn("pose mode velocity loop gain >= 1, speed will diverge", "gain", g)
		}
	}

	s.phase = PhaseIterating
	s.logger.Debug("session started",
		"heading", sess.TargetHeading, "velocity", sess.TargetVelocity,
		"mode", sess.Mode, "max_iterations", sess.MaxIterations, "threshold", sess.Threshold)
	return nil
}

// Step runs one iteration: measure, error, PID, actuate, convergence test.
// It is a no-op once the session is terminal.
func (s *Simulator) Step() (Phase, error) {
	if s.err != nil {
		return s.phase, s.err
	}
	switch {
	case s.phase == PhaseInitialized:
		return s.phase, ErrNotStarted
	case s.phase.Terminal():
		return s.phase, nil
	}

	sess := s.session
	dt := s.pid.DeltaTime()
	_, _, theta, velocity := s.vehicle.GetState()

	velErr, headErr := s.pid.ComputeErrors(sess.TargetVelocity, velocity, sess.TargetHeading, theta)
	u := s.pid.ComputePID()
	if len(u) != 2 {
		return s.fail(ErrNotReady)
	}
	velOut, headOut := u[0], u[1]

	switch sess.Mode {
	case ModePose:
		s.vehicle.SetVelocity(velOut)
		s.vehicle.UpdateState(headOut, dt)
	default:
		if err := s.vehicle.SimulateModel(headOut, velOut, dt); err != nil {
			return s.fail(err)
		}
	}

	state := s.vehicle.Snapshot()
	if !state.IsValid() {
		return s.fail(ErrInvalidState)
	}
	s.iter++

	sample := Sample{
		Iteration:      s.iter,
		Time:           float64(s.iter) * dt,
		VelocityError:  velErr,
		HeadingError:   headErr,
		VelocityOutput: velOut,
		HeadingOutput:  headOut,
		State:          state,
	}
	s.samples = append(s.samples, sample)
	for _, m := range s.metrics {
		m.Observe(sample)
	}
	for _, obs := range s.observers {
		obs.OnIteration(sample)
	}

	if math.Abs(sess.TargetVelocity-state.Velocity) < sess.Threshold &&
		math.Abs(sess.TargetHeading-state.Theta) < sess.Threshold {
		s.phase = PhaseConverged
		s.capture()
		s.logger.Info("converged", "iterations", s.iter, "theta", state.Theta, "velocity", state.Velocity)
	} else if s.iter >= sess.MaxIterations {
		s.phase = PhaseExhausted
		s.capture()
		s.logger.Info("iteration cap reached", "iterations", s.iter, "theta", state.Theta, "velocity", state.Velocity)
	}
	return s.phase, nil
}

func (s *Simulator) fail(err error) (Phase, error) {
	s.err = &SimError{
		Iteration: s.iter + 1,
		Time:      float64(s.iter+1) * s.pid.DeltaTime(),
		Wrapped:   err,
	}
	s.capture()
	s.logger.Error("session failed", "err", s.err)
	return s.phase, s.err
}

func (s *Simulator) capture() {
	x, y, theta, velocity := s.vehicle.GetState()
	s.final = Pose{X: x, Y: y, Theta: theta, Velocity: velocity}
}

// PoseLoopGain is the velocity feedback gain per step in pose mode, where
// the PID output replaces the speed: Kp·(1 + Kd/dt). The speed diverges
// once it reaches 1.
func (s *Simulator) PoseLoopGain() float64 {
	return s.pid.VelocityProportional() * (1 + s.pid.VelocityDerivative()/s.pid.DeltaTime())
}

// Run starts the session and steps it to a terminal phase.
func (s *Simulator) Run(sess Session) (*Result, error) {
	if err := s.Start(sess); err != nil {
		return nil, err
	}
	for !s.phase.Terminal() {
		if _, err := s.Step(); err != nil {
			return s.Result(), err
		}
	}
	return s.Result(), nil
}

// Result reports the session so far. Final is only meaningful once the
// phase is terminal.
func (s *Simulator) Result() *Result {
	samples := make([]Sample, len(s.samples))
	copy(samples, s.samples)

	metrics := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		metrics[m.Name()] = m.Value()
	}
	return &Result{
		Phase:      s.phase,
		Iterations: s.iter,
		Final:      s.final,
		Samples:    samples,
		Metrics:    metrics,
	}
}
