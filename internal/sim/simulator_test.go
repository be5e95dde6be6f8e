package sim_test

import (
	"bytes"
	"math"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ackersim/internal/control"
	"github.com/san-kum/ackersim/internal/models"
	"github.com/san-kum/ackersim/internal/sim"
)

var (
	refGeometry = models.Geometry{Wheelbase: 0.5, TrackWidth: 1.0, WheelRadius: 0.1, MaxSteeringAngle: math.Pi / 4}
	refGains    = control.Gains{Kp: 1.0, Ki: 0.1, Kd: 0.01}
)

const refDt = 0.1

func newReference() *sim.Simulator {
	s, err := sim.New(refGeometry, refGains, refDt, refGains)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func session(heading, velocity float64, maxIter int, threshold float64) sim.Session {
	return sim.Session{
		TargetHeading:  heading,
		TargetVelocity: velocity,
		MaxIterations:  maxIter,
		Threshold:      threshold,
		Mode:           sim.ModeTurn,
	}
}

type countingMetric struct {
	observed int
	resets   int
}

func (c *countingMetric) Name() string       { return "count" }
func (c *countingMetric) Observe(sim.Sample) { c.observed++ }
func (c *countingMetric) Value() float64     { return float64(c.observed) }
func (c *countingMetric) Reset()             { c.observed = 0; c.resets++ }

var _ = Describe("Simulator", func() {
	Describe("construction", func() {
		It("rejects invalid geometry", func() {
			_, err := sim.New(models.Geometry{TrackWidth: 1}, refGains, refDt, refGains)
			Expect(err).To(MatchError(models.ErrInvalidGeometry))
		})

		It("rejects a non-positive time step", func() {
			_, err := sim.New(refGeometry, refGains, 0, refGains)
			Expect(err).To(MatchError(control.ErrInvalidTimeStep))
		})

		It("starts in the initialized phase at the origin", func() {
			s := newReference()
			Expect(s.Phase()).To(Equal(sim.PhaseInitialized))
			Expect(s.State().IsValid()).To(BeTrue())
			Expect(s.DeltaTime()).To(Equal(refDt))
		})
	})

	Describe("setpoint guard", func() {
		DescribeTable("negative targets end the session without iterating",
			func(heading, velocity float64) {
				s := newReference()
				Expect(s.SetInitialState(1, 2, 0.3, 0.4)).To(Succeed())

				res, err := s.Run(session(heading, velocity, 30, 0.01))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Phase).To(Equal(sim.PhaseRejected))
				Expect(res.Iterations).To(BeZero())
				Expect(res.Samples).To(BeEmpty())
				Expect(res.Final).To(Equal(sim.Pose{X: 1, Y: 2, Theta: 0.3, Velocity: 0.4}))
			},
			Entry("negative heading", -0.1, 2.0),
			Entry("negative velocity", 0.2, -1.0),
			Entry("both negative", -1.0, -1.0),
		)
	})

	Describe("session policy", func() {
		DescribeTable("invalid policies fail Start",
			func(sess sim.Session) {
				_, err := newReference().Run(sess)
				Expect(err).To(MatchError(sim.ErrInvalidSession))
			},
			Entry("zero iterations", session(0.2, 2, 0, 0.01)),
			Entry("zero threshold", session(0.2, 2, 10, 0)),
			Entry("NaN target", session(math.NaN(), 2, 10, 0.01)),
			Entry("unknown mode", sim.Session{TargetHeading: 0.2, TargetVelocity: 2, MaxIterations: 10, Threshold: 0.01, Mode: "drift"}),
		)

		It("requires a wheel radius for the turn integrator", func() {
			g := refGeometry
			g.WheelRadius = 0
			s, err := sim.New(g, refGains, refDt, refGains)
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Run(session(0.2, 2, 10, 0.01))
			Expect(err).To(MatchError(sim.ErrInvalidSession))
		})

		It("rejects a negative setpoint before checking the wheel radius", func() {
			g := refGeometry
			g.WheelRadius = 0
			s, err := sim.New(g, refGains, refDt, refGains)
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(session(-0.1, 2, 10, 0.01))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Phase).To(Equal(sim.PhaseRejected))
			Expect(res.Iterations).To(BeZero())
		})

		DescribeTable("warns when the pose velocity loop cannot settle",
			func(velKp float64, warned bool) {
				var buf bytes.Buffer
				s, err := sim.New(refGeometry, control.Gains{Kp: velKp, Ki: 0.1, Kd: 0.01}, refDt, refGains)
				Expect(err).NotTo(HaveOccurred())
				s.SetLogger(log.New(&buf))
				Expect(s.PoseLoopGain()).To(BeNumerically("~", velKp*1.1, 1e-12))

				sess := session(0.2, 2, 1, 0.01)
				sess.Mode = sim.ModePose
				_, err = s.Run(sess)
				Expect(err).NotTo(HaveOccurred())
				if warned {
					Expect(buf.String()).To(ContainSubstring("speed will diverge"))
				} else {
					Expect(buf.String()).NotTo(ContainSubstring("speed will diverge"))
				}
			},
			Entry("reference gains", 1.0, true),
			Entry("pose preset gains", 0.5, false),
		)

		It("defaults an empty mode to the turn integrator", func() {
			s := newReference()
			sess := session(0.2, 2, 1, 0.01)
			sess.Mode = ""
			_, err := s.Run(sess)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Session().Mode).To(Equal(sim.ModeTurn))
		})
	})

	Describe("terminal phases", func() {
		It("converges on the first iteration when already on target", func() {
			res, err := newReference().Run(session(0, 0, 30, 0.01))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Phase).To(Equal(sim.PhaseConverged))
			Expect(res.Converged()).To(BeTrue())
			Expect(res.Iterations).To(Equal(1))
		})

		It("converges immediately under a coarse threshold", func() {
			res, err := newReference().Run(session(0.2, 2.0, 30, 3))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Phase).To(Equal(sim.PhaseConverged))
			Expect(res.Iterations).To(Equal(1))
		})

		It("reports exhaustion as a phase, not an error", func() {
			res, err := newReference().Run(session(0.2, 2.0, 1, 0.01))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Phase).To(Equal(sim.PhaseExhausted))
			Expect(res.Converged()).To(BeFalse())
			Expect(res.Iterations).To(Equal(1))
		})

		It("runs the reference setpoint to a terminal phase within the cap", func() {
			s := newReference()
			res, err := s.Run(session(0.2, 2.0, sim.DefaultMaxIterations, sim.DefaultThreshold))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Phase).To(BeElementOf(sim.PhaseConverged, sim.PhaseExhausted))
			Expect(res.Iterations).To(BeNumerically("<=", sim.DefaultMaxIterations))
			Expect(res.Samples).To(HaveLen(res.Iterations))
			Expect(s.State().IsValid()).To(BeTrue())

			Expect(s.FinalX()).To(Equal(res.Final.X))
			Expect(s.FinalY()).To(Equal(res.Final.Y))
			Expect(s.FinalTheta()).To(Equal(res.Final.Theta))
			Expect(s.FinalVelocity()).To(Equal(res.Final.Velocity))
		})

		It("is bounded in pose mode too", func() {
			sess := session(0.2, 2.0, 30, 0.01)
			sess.Mode = sim.ModePose
			s := newReference()
			res, err := s.Run(sess)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Phase.Terminal()).To(BeTrue())
			Expect(s.State().IsValid()).To(BeTrue())
		})
	})

	Describe("one iteration", func() {
		It("adds the velocity output to the outer wheel in turn mode", func() {
			s := newReference()
			_, err := s.Run(session(0.2, 2.0, 1, 0.01))
			Expect(err).NotTo(HaveOccurred())

			st := s.State()
			Expect(st.Turn).To(Equal(models.TurnLeft))
			Expect(st.RightOmega).To(BeNumerically("~", 2.2, 1e-12))
			Expect(st.Theta).To(BeNumerically(">", 0))
		})

		It("takes the velocity output as the absolute speed in pose mode", func() {
			sess := session(0.2, 2.0, 1, 0.01)
			sess.Mode = sim.ModePose
			s := newReference()
			res, err := s.Run(sess)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Final.Velocity).To(BeNumerically("~", 2.2, 1e-12))
			Expect(res.Final.X).To(BeNumerically("~", 0.22, 1e-12))
			Expect(res.Final.Theta).To(BeNumerically(">", 0))
		})

		It("records the errors it fed the controller", func() {
			rec := &sim.Recorder{}
			s := newReference()
			s.AddObserver(rec)
			_, err := s.Run(session(0.2, 2.0, 3, 0.01))
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.Samples).To(HaveLen(3))
			Expect(rec.Samples[0].Iteration).To(Equal(1))
			Expect(rec.Samples[0].VelocityError).To(Equal(2.0))
			Expect(rec.Samples[0].HeadingError).To(Equal(0.2))
			Expect(rec.Samples[2].Time).To(BeNumerically("~", 0.3, 1e-12))
		})
	})

	Describe("stepping", func() {
		It("refuses to step before Start", func() {
			_, err := newReference().Step()
			Expect(err).To(MatchError(sim.ErrNotStarted))
		})

		It("steps one iteration at a time and then holds the terminal phase", func() {
			s := newReference()
			Expect(s.Start(session(0.2, 2.0, 2, 0.01))).To(Succeed())
			Expect(s.Phase()).To(Equal(sim.PhaseIterating))

			phase, err := s.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(phase).To(Equal(sim.PhaseIterating))

			phase, err = s.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(phase).To(Equal(sim.PhaseExhausted))

			phase, err = s.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(phase).To(Equal(sim.PhaseExhausted))
			Expect(s.Iterations()).To(Equal(2))
		})

		It("refuses a second session", func() {
			s := newReference()
			_, err := s.Run(session(0.2, 2.0, 5, 0.01))
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Run(session(0.2, 2.0, 5, 0.01))
			Expect(err).To(MatchError(sim.ErrSessionReused))
			Expect(s.SetInitialState(0, 0, 0, 0)).To(MatchError(sim.ErrSessionReused))
		})
	})

	Describe("metrics", func() {
		It("resets on start and observes every iteration", func() {
			m := &countingMetric{observed: 99}
			s := newReference()
			s.AddMetric(m)

			res, err := s.Run(session(0.2, 2.0, 4, 0.01))
			Expect(err).NotTo(HaveOccurred())
			Expect(m.resets).To(Equal(1))
			Expect(res.Metrics).To(HaveKeyWithValue("count", 4.0))
		})
	})
})
