package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/sim"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 600
	maxStepsPerTick = 64
	tickInterval    = time.Second / 30
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(48)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps one control session per tick and draws the path driven so far.
type Model struct {
	cfg          *config.Config
	sim          *sim.Simulator
	rec          *sim.Recorder
	sess         sim.Session
	path         []Point
	velErr       []float64
	headErr      []float64
	last         sim.Sample
	canvas       *Canvas
	theme        Theme
	running      bool
	stepsPerTick int
	showHelp     bool
	err          error
}

// NewModel starts the session cfg describes on a fresh simulator.
func NewModel(cfg *config.Config) (Model, error) {
	m := Model{
		cfg:          cfg,
		canvas:       NewCanvas(width, height),
		theme:        ThemeCyberpunk,
		running:      true,
		stepsPerTick: 1,
	}
	if err := m.restart(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) restart() error {
	s, err := m.cfg.NewSimulator()
	if err != nil {
		return err
	}
	rec := &sim.Recorder{}
	s.AddObserver(rec)
	if err := s.Start(m.cfg.SimSession()); err != nil {
		return err
	}

	st := s.State()
	m.sim, m.rec, m.sess, m.err = s, rec, s.Session(), nil
	m.path = append(make([]Point, 0, historyCapacity), Point{st.X, st.Y})
	m.velErr = make([]float64, 0, historyCapacity)
	m.headErr = make([]float64, 0, historyCapacity)
	m.last = sim.Sample{State: st}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running {
				m.step()
			}
		case "r":
			if err := m.restart(); err != nil {
				m.err = err
			}
		case "+", "=":
			m.stepsPerTick = min(m.stepsPerTick*2, maxStepsPerTick)
		case "-", "_":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		case "t":
			m.theme = NextTheme(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			for i := 0; i < m.stepsPerTick; i++ {
				if !m.step() {
					break
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

// step advances one iteration and reports whether another may follow.
func (m *Model) step() bool {
	if m.err != nil || m.sim.Phase().Terminal() {
		return false
	}
	if _, err := m.sim.Step(); err != nil {
		m.err = err
		return false
	}

	n := len(m.rec.Samples)
	if n == 0 {
		return false
	}
	m.last = m.rec.Samples[n-1]
	m.path = appendCapped(m.path, Point{m.last.State.X, m.last.State.Y})
	m.velErr = appendCapped(m.velErr, m.last.VelocityError)
	m.headErr = appendCapped(m.headErr, m.last.HeadingError)
	return !m.sim.Phase().Terminal()
}

func appendCapped[T any](s []T, v T) []T {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

// Phase is the session phase shown in the view.
func (m Model) Phase() sim.Phase { return m.sim.Phase() }

// Iterations is how many loop iterations have run.
func (m Model) Iterations() int { return m.sim.Iterations() }

func (m Model) Err() error { return m.err }

func (m *Model) draw() {
	m.canvas.Clear()
	b := BoundsOf(m.path)
	m.canvas.DrawPath(m.path, b)
	if n := len(m.path); n > 0 {
		m.canvas.DrawHeading(m.path[n-1], m.last.State.Theta, b)
	}
}

func (m Model) status() string {
	phase := m.sim.Phase()
	switch {
	case m.err != nil:
		return StatusFailed.Render("FAILED")
	case phase.Terminal():
		return PhaseStyle(phase).Render(strings.ToUpper(phase.String()))
	case !m.running:
		return StatusPaused.Render("PAUSED")
	}
	return StatusRunning.Render("RUNNING")
}

func (m Model) graph(values []float64, caption string) string {
	if len(values) < 2 {
		return ""
	}
	chart := asciigraph.Plot(values, asciigraph.Height(4), asciigraph.Width(36), asciigraph.Caption(caption))
	return lipgloss.NewStyle().Foreground(m.theme.Graph).Render(chart) + "\n\n"
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Foreground(m.theme.Path).Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(m.theme.Header).Render("ACKERMANN SESSION") + "\n")
	s.WriteString(m.status() + "\n\n")
	s.WriteString(m.graph(m.velErr, "velocity error"))
	s.WriteString(m.graph(m.headErr, "heading error"))

	st := m.last.State
	line := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	line("Target", fmt.Sprintf("θ=%.3f v=%.3f", m.sess.TargetHeading, m.sess.TargetVelocity))
	line("Iteration", fmt.Sprintf("%d / %d", m.sim.Iterations(), m.sess.MaxIterations))
	line("Progress", ProgressBar(float64(m.sim.Iterations())/float64(max(m.sess.MaxIterations, 1)), 20))
	line("Time", fmt.Sprintf("%.2fs", m.last.Time))
	line("Pose", fmt.Sprintf("(%.3f, %.3f)", st.X, st.Y))
	line("Heading", fmt.Sprintf("%.4f rad (%.1f°)", st.Theta, st.Theta*180/math.Pi))
	line("Speed", fmt.Sprintf("%.4f", st.Velocity))
	line("Turn", st.Turn.String())
	line("Steer L/R", fmt.Sprintf("%.3f / %.3f", st.LeftSteer, st.RightSteer))
	line("Outputs", fmt.Sprintf("u_v=%.3f u_θ=%.3f", m.last.VelocityOutput, m.last.HeadingOutput))
	line("Speed x", fmt.Sprintf("%d", m.stepsPerTick))
	if m.err != nil {
		s.WriteString("\n" + StatusFailed.Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("─────────────────────\nSP:Pause N:Step R:Restart Q:Quit\n+/-:Speed T:Theme ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume session     ║
║  N        - Single step when paused  ║
║  R        - Restart on a fresh car   ║
║  +/-      - Iterations per frame     ║
║  T        - Cycle themes             ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n" + mainView
	}
	return mainView
}

// Run shows the live view until the user quits.
func Run(cfg *config.Config) error {
	m, err := NewModel(cfg)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
