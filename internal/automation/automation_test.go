package automation

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/sim"
)

const scenarioYAML = `
name: square-ish
description: three setpoints on the coarse policy
preset: coarse
steps:
  - name: warmup
    heading: 0.2
    velocity: 2.0
  - name: reverse
    heading: 0.2
    velocity: -1.0
  - name: onward
    heading: 0.4
    velocity: 1.0
    continue: true
    max_iterations: 5
    params:
      head_kp: 2.0
`

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.Name != "square-ish" || sc.Preset != "coarse" {
		t.Errorf("unexpected header %+v", sc)
	}
	if len(sc.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(sc.Steps))
	}
	if !sc.Steps[2].ContinueFrom || sc.Steps[2].Params["head_kp"] != 2.0 {
		t.Errorf("unexpected last step %+v", sc.Steps[2])
	}

	if _, err := ParseScenario([]byte("name: empty\n")); !errors.Is(err, ErrEmptyScenario) {
		t.Errorf("expected ErrEmptyScenario, got %v", err)
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err != nil {
		t.Errorf("load: %v", err)
	}
}

func TestStepConfig(t *testing.T) {
	base := config.DefaultConfig()
	cfg, err := StepConfig(base, ScenarioStep{
		TargetHeading:  0.3,
		TargetVelocity: 1.5,
		Mode:           "pose",
		MaxIterations:  7,
		Params:         map[string]float64{"vel_kp": 0.7},
	})
	if err != nil {
		t.Fatalf("step config: %v", err)
	}
	if cfg.Session.TargetHeading != 0.3 || cfg.Session.MaxIterations != 7 || cfg.Mode != "pose" {
		t.Errorf("overrides not applied: %+v", cfg.Session)
	}
	if cfg.Velocity.Kp != 0.7 {
		t.Errorf("expected vel_kp 0.7, got %f", cfg.Velocity.Kp)
	}
	if base.Velocity.Kp != 1.0 || base.Mode != "turn" {
		t.Error("base config must not change")
	}

	if _, err := StepConfig(base, ScenarioStep{Params: map[string]float64{"nope": 1}}); err == nil {
		t.Error("expected error for unknown param")
	}
}

func TestRunScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	base, err := sc.BaseConfig(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	results, err := RunScenario(context.Background(), sc, base, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if results[0].Result.Phase != sim.PhaseConverged {
		t.Errorf("warmup under the coarse policy should converge, got %s", results[0].Result.Phase)
	}
	if results[1].Result.Phase != sim.PhaseRejected {
		t.Errorf("negative velocity should be rejected, got %s", results[1].Result.Phase)
	}

	last := results[2]
	if last.Config.Initial.X != results[1].Result.Final.X {
		t.Error("continue should start from the previous final pose")
	}
	if last.Config.Heading.Kp != 2.0 || last.Result.Iterations > 5 {
		t.Errorf("unexpected last step: kp=%f iterations=%d", last.Config.Heading.Kp, last.Result.Iterations)
	}
	if _, ok := last.Result.Metrics["control_effort"]; !ok {
		t.Error("expected metrics on scenario steps")
	}
}

func TestRunScenarioCancelled(t *testing.T) {
	sc, _ := ParseScenario([]byte(scenarioYAML))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := RunScenario(ctx, sc, config.DefaultConfig(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestUnknownPreset(t *testing.T) {
	sc := &Scenario{Preset: "nope", Steps: []ScenarioStep{{}}}
	if _, err := sc.BaseConfig(config.DefaultConfig()); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestRunSweep(t *testing.T) {
	base := config.GetPreset("coarse")
	results, err := RunSweep(context.Background(), &ParameterSweep{
		ParamName: "vel_kp",
		ParamMin:  0.5,
		ParamMax:  1.5,
		NumSteps:  3,
	}, base)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []float64{0.5, 1.0, 1.5} {
		if math.Abs(results[i].ParamValue-want) > 1e-12 {
			t.Errorf("point %d: value %f, want %f", i, results[i].ParamValue, want)
		}
		if !results[i].Phase.Terminal() {
			t.Errorf("point %d did not finish", i)
		}
	}

	if _, err := RunSweep(context.Background(), &ParameterSweep{ParamName: "bogus", NumSteps: 2}, base); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, err := RunSweep(context.Background(), &ParameterSweep{ParamName: "vel_kp"}, base); err == nil {
		t.Error("expected error for zero steps")
	}
}

func TestRunMonteCarlo(t *testing.T) {
	base := config.GetPreset("coarse")
	mc := &MonteCarloConfig{Perturbation: 0.5, NumTrials: 8, Seed: 7}

	first, err := RunMonteCarlo(context.Background(), mc, base)
	if err != nil {
		t.Fatalf("monte carlo: %v", err)
	}
	second, err := RunMonteCarlo(context.Background(), mc, base)
	if err != nil {
		t.Fatalf("monte carlo: %v", err)
	}
	if len(first) != 8 {
		t.Fatalf("expected 8 trials, got %d", len(first))
	}
	for i := range first {
		if first[i].Initial != second[i].Initial {
			t.Errorf("trial %d: same seed should give the same start pose", i)
		}
		if math.Abs(first[i].Initial.X) > 0.5 {
			t.Errorf("trial %d: perturbation out of range: %f", i, first[i].Initial.X)
		}
	}

	converged, unconverged := MonteCarloStats(first)
	if converged+unconverged != 8 {
		t.Errorf("stats should cover every trial, got %d+%d", converged, unconverged)
	}
}
