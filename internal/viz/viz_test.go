package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/sim"
)

func TestCanvasSetAndClear(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(1, 3)
	c.Set(-1, 0)
	c.Set(100, 100)

	if got := c.Grid[0][0]; got != brailleBase|0x1|0x80 {
		t.Errorf("unexpected cell %U", got)
	}
	if len(c.Dots(0, 0)) != 2 {
		t.Errorf("expected 2 lit dots, got %d", len(c.Dots(0, 0)))
	}

	c.Clear()
	if c.Grid[0][0] != brailleBase {
		t.Error("expected empty cell after clear")
	}
	if lines := strings.Count(c.String(), "\n"); lines != 2 {
		t.Errorf("expected 2 rows, got %d", lines)
	}
}

func TestBoundsOf(t *testing.T) {
	b := BoundsOf(nil)
	if b.MaxX <= b.MinX || b.MaxY <= b.MinY {
		t.Errorf("empty bounds should not be degenerate: %+v", b)
	}

	b = BoundsOf([]Point{{0, 0}, {4, 1}})
	if b.MinX > 0 || b.MaxX < 4 || b.MinY > 0 || b.MaxY < 1 {
		t.Errorf("bounds %+v do not contain the path", b)
	}
	if w, h := b.MaxX-b.MinX, b.MaxY-b.MinY; w != h {
		t.Errorf("bounds should be square, got %f x %f", w, h)
	}
}

func TestDrawPathStaysOnCanvas(t *testing.T) {
	c := NewCanvas(10, 5)
	path := []Point{{0, 0}, {1, 0.5}, {2, 2}, {-1, 3}}
	c.DrawPath(path, BoundsOf(path))

	lit := 0
	for row := range c.Grid {
		for col := range c.Grid[row] {
			lit += len(c.Dots(row, col))
		}
	}
	if lit < len(path) {
		t.Errorf("expected at least %d lit dots, got %d", len(path), lit)
	}
}

func liveConfig(maxIter int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Session.MaxIterations = maxIter
	return cfg
}

func TestLiveModelSteps(t *testing.T) {
	m, err := NewModel(liveConfig(3))
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if m.Phase() != sim.PhaseIterating {
		t.Fatalf("expected iterating, got %s", m.Phase())
	}

	for i := 0; i < 5; i++ {
		next, cmd := m.Update(TickMsg{})
		m = next.(Model)
		if cmd == nil {
			t.Fatal("expected the tick to be rescheduled")
		}
	}
	if m.Iterations() != 3 {
		t.Errorf("expected 3 iterations, got %d", m.Iterations())
	}
	if m.Phase() != sim.PhaseExhausted {
		t.Errorf("expected exhausted, got %s", m.Phase())
	}
	if m.Err() != nil {
		t.Errorf("unexpected error %v", m.Err())
	}
	if !strings.Contains(m.View(), "EXHAUSTED") {
		t.Error("view should show the terminal phase")
	}
}

func TestLiveModelPauseAndRestart(t *testing.T) {
	m, err := NewModel(liveConfig(10))
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	key := func(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

	next, _ := m.Update(key(" "))
	m = next.(Model)
	next, _ = m.Update(TickMsg{})
	m = next.(Model)
	if m.Iterations() != 0 {
		t.Errorf("paused model should not step, got %d iterations", m.Iterations())
	}

	next, _ = m.Update(key("n"))
	m = next.(Model)
	if m.Iterations() != 1 {
		t.Errorf("expected a single step, got %d", m.Iterations())
	}

	next, _ = m.Update(key("r"))
	m = next.(Model)
	if m.Iterations() != 0 || m.Phase() != sim.PhaseIterating {
		t.Errorf("restart should begin a fresh session, got %d in %s", m.Iterations(), m.Phase())
	}

	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Error("expected quit command")
	}
}

func TestLiveModelRejected(t *testing.T) {
	cfg := liveConfig(10)
	cfg.Session.TargetVelocity = -1
	m, err := NewModel(cfg)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	next, _ := m.Update(TickMsg{})
	m = next.(Model)
	if m.Phase() != sim.PhaseRejected || m.Iterations() != 0 {
		t.Errorf("expected rejected with no iterations, got %s after %d", m.Phase(), m.Iterations())
	}
}

func TestSetpointFormStarts(t *testing.T) {
	f := NewSetpointForm(liveConfig(5))
	next, _ := f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	next, cmd := next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if cmd == nil {
		t.Fatal("expected the live view to start ticking")
	}
	started := next.(form)
	if started.state != stateSim {
		t.Fatal("expected the form to hand over to the live view")
	}
	if got := started.live.sess.TargetHeading; got <= 0.2 {
		t.Errorf("expected the adjusted heading, got %f", got)
	}
}

func TestSummary(t *testing.T) {
	cfg := liveConfig(4)
	s, err := cfg.NewSimulator()
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(cfg.SimSession())
	if err != nil {
		t.Fatal(err)
	}
	out := Summary(s.Session(), res)
	for _, want := range []string{"exhausted", "4 / 4", "Final"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("nope").Name != ThemeCyberpunk.Name {
		t.Error("unknown theme should fall back")
	}
	seen := map[string]bool{}
	th := Themes[0]
	for range Themes {
		seen[th.Name] = true
		th = NextTheme(th)
	}
	if len(seen) != len(ThemeNames()) {
		t.Error("NextTheme should visit every theme")
	}
}
