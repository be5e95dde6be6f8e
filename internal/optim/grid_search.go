package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/metrics"
	"github.com/san-kum/ackersim/internal/sim"
)

var ErrNoCandidates = errors.New("optim: no candidate produced the metric")

// GridSearch tries every combination of the named config parameters and
// keeps the one minimising a metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d params but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Candidate is one evaluated grid point.
type Candidate struct {
	Params map[string]float64
	Value  float64
	Phase  sim.Phase
}

// Combinations expands the grid in row-major order.
func (g *GridSearch) Combinations() []map[string]float64 {
	combos := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(combos)*len(g.ranges[depth]))
		for _, current := range combos {
			for _, val := range g.ranges[depth] {
				newParams := make(map[string]float64, len(current)+1)
				for k, v := range current {
					newParams[k] = v
				}
				newParams[name] = val
				next = append(next, newParams)
			}
		}
		combos = next
	}
	return combos
}

// Search evaluates every combination on a fresh simulator built from base.
// Candidates whose metric is missing or not finite are skipped. Sessions that
// end rejected are skipped as well.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (Candidate, []Candidate, error) {
	combos := g.Combinations()
	jobs := make([]sim.Job, 0, len(combos))
	kept := make([]map[string]float64, 0, len(combos))
	for _, params := range combos {
		cfg := base.Clone()
		for k, v := range params {
			if err := cfg.SetParam(k, v); err != nil {
				return Candidate{}, nil, err
			}
		}
		if cfg.Validate() != nil {
			continue
		}
		jobs = append(jobs, sim.Job{Build: cfg.Factory(), Session: cfg.SimSession()})
		kept = append(kept, params)
	}

	batch := sim.NewBatch(nil).WithMetrics(func() []sim.Metric {
		return metrics.Default(base.Session.Threshold)
	})
	runs, err := batch.RunJobs(ctx, jobs)
	if err != nil {
		return Candidate{}, nil, err
	}

	best := Candidate{Value: math.Inf(1)}
	all := make([]Candidate, 0, len(runs))
	for i, res := range runs {
		val, ok := res.Metrics[metricName]
		if !ok || math.IsNaN(val) || math.IsInf(val, 0) || res.Phase == sim.PhaseRejected {
			continue
		}
		c := Candidate{Params: kept[i], Value: val, Phase: res.Phase}
		all = append(all, c)
		if c.Value < best.Value {
			best = c
		}
	}
	if best.Params == nil {
		return Candidate{}, all, ErrNoCandidates
	}
	return best, all, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
