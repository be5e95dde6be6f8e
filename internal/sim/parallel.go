package sim

import (
	"context"
	"sync"
)

// Factory builds a fresh simulator. A simulator runs exactly one session,
// so every run in a batch needs its own.
type Factory func() (*Simulator, error)

// Job is one session and the simulator it runs on.
type Job struct {
	Build   Factory
	Session Session
}

// Batch runs independent sessions concurrently.
type Batch struct {
	build   Factory
	metrics func() []Metric
}

func NewBatch(build Factory) *Batch {
	return &Batch{build: build}
}

// WithMetrics attaches a fresh metric set to every run.
func (b *Batch) WithMetrics(fn func() []Metric) *Batch {
	b.metrics = fn
	return b
}

// Run runs every session on the batch factory.
func (b *Batch) Run(ctx context.Context, sessions []Session) ([]*Result, error) {
	jobs := make([]Job, len(sessions))
	for i, sess := range sessions {
		jobs[i] = Job{Build: b.build, Session: sess}
	}
	return b.RunJobs(ctx, jobs)
}

// RunJobs returns one result per job, in order. The first error wins. A nil
// job factory falls back to the batch factory.
func (b *Batch) RunJobs(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = b.runOne(ctx, jobs[idx])
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (b *Batch) runOne(ctx context.Context, job Job) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	build := job.Build
	if build == nil {
		build = b.build
	}
	if build == nil {
		return nil, ErrNoFactory
	}
	s, err := build()
	if err != nil {
		return nil, err
	}
	if b.metrics != nil {
		for _, m := range b.metrics() {
			s.AddMetric(m)
		}
	}
	return s.Run(job.Session)
}
