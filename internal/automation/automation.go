package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/metrics"
	"github.com/san-kum/ackersim/internal/sim"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario is a scripted sequence of setpoints. Every step runs on a fresh
// simulator built from the base config plus the step's overrides.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Preset      string         `yaml:"preset"`
	Steps       []ScenarioStep `yaml:"steps"`
}

type ScenarioStep struct {
	Name           string             `yaml:"name"`
	TargetHeading  float64            `yaml:"heading"`
	TargetVelocity float64            `yaml:"velocity"`
	Mode           string             `yaml:"mode"`
	MaxIterations  int                `yaml:"max_iterations"`
	Threshold      float64            `yaml:"threshold"`
	Params         map[string]float64 `yaml:"params"`
	// ContinueFrom starts this step at the previous step's final pose.
	ContinueFrom bool `yaml:"continue"`
}

type StepResult struct {
	Name   string
	Config *config.Config
	Result *sim.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	return &scenario, nil
}

// BaseConfig resolves the scenario's preset, or returns fallback.
func (s *Scenario) BaseConfig(fallback *config.Config) (*config.Config, error) {
	if s.Preset == "" {
		return fallback.Clone(), nil
	}
	cfg := config.GetPreset(s.Preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset %q", s.Preset)
	}
	return cfg, nil
}

// StepConfig applies a step's overrides to a copy of base.
func StepConfig(base *config.Config, step ScenarioStep) (*config.Config, error) {
	cfg := base.Clone()
	cfg.Session.TargetHeading = step.TargetHeading
	cfg.Session.TargetVelocity = step.TargetVelocity
	if step.Mode != "" {
		cfg.Mode = step.Mode
	}
	if step.MaxIterations > 0 {
		cfg.Session.MaxIterations = step.MaxIterations
	}
	if step.Threshold > 0 {
		cfg.Session.Threshold = step.Threshold
	}
	for k, v := range step.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

// RunScenario executes the steps in order. A rejected setpoint ends its
// step without error and the scenario moves on.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, logger *log.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	var prev *sim.Pose
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		logger.Info("running step", "step", i+1, "of", len(scenario.Steps), "name", name,
			"heading", step.TargetHeading, "velocity", step.TargetVelocity)

		cfg, err := StepConfig(base, step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.ContinueFrom && prev != nil {
			cfg.Initial = config.InitStateConfig{X: prev.X, Y: prev.Y, Theta: prev.Theta, Velocity: prev.Velocity}
		}

		s, err := cfg.NewSimulator()
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		s.SetLogger(logger)
		for _, m := range metrics.Default(cfg.Session.Threshold) {
			s.AddMetric(m)
		}

		res, err := s.Run(cfg.SimSession())
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		final := res.Final
		prev = &final

		results = append(results, StepResult{Name: name, Config: cfg, Result: res})
	}

	return results, nil
}

// ParameterSweep runs one session per value of a single named parameter.
type ParameterSweep struct {
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

type SweepResult struct {
	ParamValue float64
	Phase      sim.Phase
	Iterations int
	Final      sim.Pose
	Metrics    map[string]float64
}

// RunSweep runs the sweep points concurrently on fresh simulators.
func RunSweep(ctx context.Context, sweep *ParameterSweep, base *config.Config) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	values := make([]float64, sweep.NumSteps)
	jobs := make([]sim.Job, sweep.NumSteps)
	for i := range jobs {
		values[i] = sweep.ParamMin + float64(i)*paramStep
		cfg := base.Clone()
		if err := cfg.SetParam(sweep.ParamName, values[i]); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%.4f: %w", sweep.ParamName, values[i], err)
		}
		jobs[i] = sim.Job{Build: cfg.Factory(), Session: cfg.SimSession()}
	}

	batch := sim.NewBatch(nil).WithMetrics(func() []sim.Metric {
		return metrics.Default(base.Session.Threshold)
	})
	runs, err := batch.RunJobs(ctx, jobs)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(runs))
	for i, res := range runs {
		results[i] = SweepResult{
			ParamValue: values[i],
			Phase:      res.Phase,
			Iterations: res.Iterations,
			Final:      res.Final,
			Metrics:    res.Metrics,
		}
	}
	return results, nil
}

// MonteCarloConfig perturbs the start pose around the base config's.
type MonteCarloConfig struct {
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID   int
	Initial   config.InitStateConfig
	Final     sim.Pose
	Phase     sim.Phase
	Converged bool
}

// RunMonteCarlo runs trials from randomly perturbed start poses.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, base *config.Config) ([]MonteCarloResult, error) {
	rng := rand.New(rand.NewSource(mc.Seed))
	if mc.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	perturb := func(v float64) float64 { return v + (rng.Float64()-0.5)*2*mc.Perturbation }

	initial := make([]config.InitStateConfig, mc.NumTrials)
	jobs := make([]sim.Job, mc.NumTrials)
	for i := range jobs {
		cfg := base.Clone()
		cfg.Initial = config.InitStateConfig{
			X:        perturb(base.Initial.X),
			Y:        perturb(base.Initial.Y),
			Theta:    perturb(base.Initial.Theta),
			Velocity: base.Initial.Velocity,
		}
		initial[i] = cfg.Initial
		jobs[i] = sim.Job{Build: cfg.Factory(), Session: cfg.SimSession()}
	}

	runs, err := sim.NewBatch(nil).RunJobs(ctx, jobs)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, res := range runs {
		results[i] = MonteCarloResult{
			TrialID:   i,
			Initial:   initial[i],
			Final:     res.Final,
			Phase:     res.Phase,
			Converged: res.Converged(),
		}
	}
	return results, nil
}

// MonteCarloStats counts converged and unconverged trials.
func MonteCarloStats(results []MonteCarloResult) (converged int, unconverged int) {
	for _, r := range results {
		if r.Converged {
			converged++
		} else {
			unconverged++
		}
	}
	return
}
