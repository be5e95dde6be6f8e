package metrics

import (
	"math"

	"github.com/san-kum/ackersim/internal/sim"
)

// TrackingError is the RMS of one error channel over the session.
type TrackingError struct {
	name    string
	pick    func(sim.Sample) float64
	sumSq   float64
	samples int
}

func NewVelocityTracking() *TrackingError {
	return &TrackingError{
		name: "velocity_rms",
		pick: func(s sim.Sample) float64 { return s.VelocityError },
	}
}

func NewHeadingTracking() *TrackingError {
	return &TrackingError{
		name: "heading_rms",
		pick: func(s sim.Sample) float64 { return s.HeadingError },
	}
}

func (t *TrackingError) Name() string { return t.name }

func (t *TrackingError) Observe(s sim.Sample) {
	e := t.pick(s)
	t.sumSq += e * e
	t.samples++
}

func (t *TrackingError) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return math.Sqrt(t.sumSq / float64(t.samples))
}

func (t *TrackingError) Reset() {
	t.sumSq = 0
	t.samples = 0
}

// PathLength sums the distance between consecutive samples. The leg from the
// start pose to the first sample is not counted.
type PathLength struct {
	name    string
	started bool
	x, y    float64
	total   float64
}

func NewPathLength() *PathLength {
	return &PathLength{name: "path_length"}
}

func (p *PathLength) Name() string { return p.name }

func (p *PathLength) Observe(s sim.Sample) {
	if p.started {
		p.total += math.Hypot(s.State.X-p.x, s.State.Y-p.y)
	}
	p.started = true
	p.x, p.y = s.State.X, s.State.Y
}

func (p *PathLength) Value() float64 { return p.total }

func (p *PathLength) Reset() {
	p.started = false
	p.x, p.y = 0, 0
	p.total = 0
}

// Default is the metric set the CLI attaches to every run.
func Default(threshold float64) []sim.Metric {
	return []sim.Metric{
		NewControlEffort(),
		NewVelocityTracking(),
		NewHeadingTracking(),
		NewPathLength(),
		NewStability(threshold),
	}
}
