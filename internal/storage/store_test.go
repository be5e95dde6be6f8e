package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/metrics"
	"github.com/san-kum/ackersim/internal/sim"
)

func runReference(t *testing.T, iterations int) (*config.Config, *sim.Result) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Session.MaxIterations = iterations

	s, err := cfg.NewSimulator()
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	for _, m := range metrics.Default(cfg.Session.Threshold) {
		s.AddMetric(m)
	}
	res, err := s.Run(cfg.SimSession())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return cfg, res
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg, res := runReference(t, 5)
	runID, err := st.Save(cfg, res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Mode != "turn" {
		t.Errorf("expected mode 'turn', got '%s'", meta.Mode)
	}
	if meta.Phase != res.Phase.String() {
		t.Errorf("expected phase %s, got %s", res.Phase, meta.Phase)
	}
	if meta.Iterations != 5 {
		t.Errorf("expected 5 iterations, got %d", meta.Iterations)
	}
	if meta.Final != res.Final {
		t.Errorf("final pose mismatch: %+v vs %+v", meta.Final, res.Final)
	}
	if meta.Config == nil || meta.Config.Session.MaxIterations != 5 {
		t.Error("expected the config to round-trip")
	}
	if _, ok := meta.Metrics["control_effort"]; !ok {
		t.Error("expected control_effort metric")
	}

	samples, err := st.LoadTrace(runID)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}
	if len(samples) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(samples))
	}
	if samples[0].Iteration != 1 || samples[0].VelocityError != 2.0 {
		t.Errorf("unexpected first sample %+v", samples[0])
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
	if _, err := st.Latest(); !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}

	cfg, res := runReference(t, 2)
	first, err := st.Save(cfg, res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, err := st.Save(cfg, res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if first == second {
		t.Fatal("run ids should be unique")
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}

	latest, err := st.Latest()
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest != second {
		t.Errorf("expected latest %s, got %s", second, latest)
	}
}

func TestListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg, res := runReference(t, 1)
	runID, err := st.Save(cfg, res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "trace.csv")); os.IsNotExist(err) {
		t.Error("trace.csv not created")
	}
}
