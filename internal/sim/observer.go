package sim

import "github.com/charmbracelet/log"

// LogObserver writes every iteration at debug level.
type LogObserver struct {
	Logger *log.Logger
}

func (o LogObserver) OnIteration(s Sample) {
	o.Logger.Debug("iteration",
		"i", s.Iteration,
		"vel_err", s.VelocityError,
		"head_err", s.HeadingError,
		"vel_out", s.VelocityOutput,
		"head_out", s.HeadingOutput,
		"x", s.State.X,
		"y", s.State.Y,
		"theta", s.State.Theta,
		"v", s.State.Velocity,
	)
}

// Recorder keeps every sample it sees.
type Recorder struct {
	Samples []Sample
}

func (r *Recorder) OnIteration(s Sample) { r.Samples = append(r.Samples, s) }
