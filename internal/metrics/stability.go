package metrics

import (
	"math"

	"github.com/san-kum/ackersim/internal/sim"
)

// Stability is the fraction of iterations whose errors both sit inside a band.
type Stability struct {
	name      string
	threshold float64
	inside    int
	samples   int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x sim.Sample) {
	s.samples++
	if math.Abs(x.VelocityError) < s.threshold && math.Abs(x.HeadingError) < s.threshold {
		s.inside++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.inside) / float64(s.samples)
}

func (s *Stability) Reset() {
	s.inside = 0
	s.samples = 0
}
