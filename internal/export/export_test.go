package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/sim"
	"github.com/san-kum/ackersim/internal/viz"
)

func runSession(t *testing.T, iterations int) (*config.Config, *sim.Result) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Session.MaxIterations = iterations
	s, err := cfg.NewSimulator()
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(cfg.SimSession())
	if err != nil {
		t.Fatal(err)
	}
	return cfg, res
}

func TestWriteJSON(t *testing.T) {
	cfg, res := runSession(t, 6)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, FromResult(cfg, res)); err != nil {
		t.Fatalf("write json: %v", err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Phase != "exhausted" || got.Iterations != 6 {
		t.Errorf("unexpected session %s/%d", got.Phase, got.Iterations)
	}
	if len(got.Samples) != 6 {
		t.Errorf("expected 6 samples, got %d", len(got.Samples))
	}
	if got.Target.Velocity != 2.0 || got.Vehicle.Wheelbase != 0.5 {
		t.Errorf("config not carried: %+v", got)
	}
}

func TestExportJSONFile(t *testing.T) {
	cfg, res := runSession(t, 2)
	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSON(path, FromResult(cfg, res)); err != nil {
		t.Fatalf("export: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Error("expected a non-empty json file")
	}
}

func TestWriteCSV(t *testing.T) {
	_, res := runSession(t, 3)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, res.Samples); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}
	if records[0][0] != "iteration" || records[1][0] != "1" {
		t.Errorf("unexpected layout %v", records[:2])
	}
}

func TestTrajectoryToSVG(t *testing.T) {
	if TrajectoryToSVG([]viz.Point{{X: 0, Y: 0}}, 100, 100, "#fff") != "" {
		t.Error("a single point should not produce a path")
	}

	_, res := runSession(t, 10)
	svg := TrajectoryToSVG(Path(res.Samples), 200, 100, "#ff00ff")
	for _, want := range []string{"<svg", "stroke=\"#ff00ff\"", "<circle", "</svg>"} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	if strings.Count(svg, " L") != 9 {
		t.Errorf("expected 9 line segments, got %d", strings.Count(svg, " L"))
	}
}

func TestCanvasToSVG(t *testing.T) {
	if CanvasToSVG(nil, 2) != "" {
		t.Error("nil canvas should produce nothing")
	}
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	svg := CanvasToSVG(c, 2)
	if strings.Count(svg, "<circle") != 2 {
		t.Errorf("expected 2 dots, got %d", strings.Count(svg, "<circle"))
	}
}

func TestPNG(t *testing.T) {
	_, res := runSession(t, 20)
	dir := t.TempDir()
	traj := filepath.Join(dir, "traj.png")
	errs := filepath.Join(dir, "err.png")

	if err := ExportPNG(traj, errs, res.Samples); err != nil {
		t.Fatalf("export png: %v", err)
	}
	for _, p := range []string{traj, errs} {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !bytes.HasPrefix(data, []byte("\x89PNG")) {
			t.Errorf("%s is not a png", p)
		}
	}
}

func TestPNGNoSamples(t *testing.T) {
	err := ExportPNG(filepath.Join(t.TempDir(), "x.png"), "", nil)
	if !errors.Is(err, ErrNoSamples) {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
}
