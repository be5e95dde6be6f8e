package sim_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ackersim/internal/control"
	"github.com/san-kum/ackersim/internal/sim"
)

var _ = Describe("Batch", func() {
	factory := func() (*sim.Simulator, error) {
		return sim.New(refGeometry, refGains, refDt, refGains)
	}

	It("runs each session on its own simulator, in order", func() {
		sessions := []sim.Session{
			session(0, 0, 10, 0.01),
			session(0.2, 2.0, 1, 0.01),
			session(-1, 2.0, 10, 0.01),
		}
		metrics := func() []sim.Metric { return []sim.Metric{&countingMetric{}} }

		results, err := sim.NewBatch(factory).WithMetrics(metrics).Run(context.Background(), sessions)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		Expect(results[0].Phase).To(Equal(sim.PhaseConverged))
		Expect(results[1].Phase).To(Equal(sim.PhaseExhausted))
		Expect(results[2].Phase).To(Equal(sim.PhaseRejected))
		Expect(results[1].Metrics).To(HaveKeyWithValue("count", 1.0))
	})

	It("surfaces session errors", func() {
		_, err := sim.NewBatch(factory).Run(context.Background(), []sim.Session{session(0.2, 2, 0, 0.01)})
		Expect(err).To(MatchError(sim.ErrInvalidSession))
	})

	It("stops on a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := sim.NewBatch(factory).Run(ctx, []sim.Session{session(0.2, 2, 10, 0.01)})
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Batch jobs", func() {
	It("runs each job on its own factory", func() {
		slow := control.Gains{Kp: 0.5, Ki: 0.1, Kd: 0.01}
		jobs := []sim.Job{
			{Session: session(0.2, 2.0, 1, 0.01)},
			{
				Build: func() (*sim.Simulator, error) {
					return sim.New(refGeometry, slow, refDt, refGains)
				},
				Session: session(0.2, 2.0, 1, 0.01),
			},
		}
		factory := func() (*sim.Simulator, error) {
			return sim.New(refGeometry, refGains, refDt, refGains)
		}

		results, err := sim.NewBatch(factory).RunJobs(context.Background(), jobs)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Samples[0].VelocityOutput).To(BeNumerically("~", 2.2, 1e-12))
		Expect(results[1].Samples[0].VelocityOutput).To(BeNumerically("~", 1.2, 1e-12))
	})

	It("fails when no factory is available", func() {
		_, err := sim.NewBatch(nil).RunJobs(context.Background(), []sim.Job{{Session: session(0.2, 2, 1, 0.01)}})
		Expect(err).To(MatchError(sim.ErrNoFactory))
	})
})
