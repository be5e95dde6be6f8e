package analysis

import (
	"math"

	"github.com/san-kum/ackersim/internal/sim"
)

// Channel selects one of the two controlled quantities.
type Channel int

const (
	Velocity Channel = iota
	Heading
)

func (c Channel) String() string {
	if c == Heading {
		return "heading"
	}
	return "velocity"
}

func ParseChannel(s string) (Channel, bool) {
	switch s {
	case "velocity", "v":
		return Velocity, true
	case "heading", "theta", "h":
		return Heading, true
	}
	return Velocity, false
}

func (c Channel) measured(s sim.Sample) float64 {
	if c == Heading {
		return s.State.Theta
	}
	return s.State.Velocity
}

func (c Channel) err(s sim.Sample) float64 {
	if c == Heading {
		return s.HeadingError
	}
	return s.VelocityError
}

// Errors extracts the error the controller saw on each iteration.
func Errors(samples []sim.Sample, c Channel) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = c.err(s)
	}
	return out
}

// Response summarises one channel. Times are NaN when the event never
// happened within the recording.
type Response struct {
	Channel          Channel
	Initial          float64
	Target           float64
	Final            float64
	RiseTime         float64
	PeakTime         float64
	Overshoot        float64 // fraction of the step
	SettlingTime     float64
	SteadyStateError float64
}

// StepResponse measures the channel against target. The initial value is
// recovered from the first sample's error, which was computed before the
// first actuation. band is the settling tolerance as a fraction of the step.
func StepResponse(samples []sim.Sample, c Channel, target, band float64) Response {
	r := Response{
		Channel:      c,
		Target:       target,
		RiseTime:     math.NaN(),
		PeakTime:     math.NaN(),
		SettlingTime: math.NaN(),
	}
	if len(samples) == 0 {
		return r
	}

	r.Initial = target - c.err(samples[0])
	last := samples[len(samples)-1]
	r.Final = c.measured(last)
	r.SteadyStateError = target - r.Final

	step := target - r.Initial
	if step == 0 {
		r.RiseTime, r.PeakTime, r.SettlingTime = 0, 0, 0
		return r
	}

	t10, t90 := math.NaN(), math.NaN()
	peak := math.Inf(-1)
	lastOutside := -1
	for i, s := range samples {
		y := c.measured(s)
		p := (y - r.Initial) / step
		if math.IsNaN(t10) && p >= 0.1 {
			t10 = s.Time
		}
		if math.IsNaN(t90) && p >= 0.9 {
			t90 = s.Time
		}
		if p > peak {
			peak = p
			r.PeakTime = s.Time
		}
		if math.Abs(y-target) > band*math.Abs(step) {
			lastOutside = i
		}
	}

	if !math.IsNaN(t90) {
		r.RiseTime = t90 - t10
	}
	r.Overshoot = math.Max(0, peak-1)
	switch {
	case lastOutside < 0:
		r.SettlingTime = samples[0].Time
	case lastOutside < len(samples)-1:
		r.SettlingTime = samples[lastOutside+1].Time
	}
	return r
}
