package viz

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/ackersim/internal/config"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Bold(true)
	keyCap  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

const (
	stateForm = iota
	stateSim
)

type field struct {
	name string
	step float64
	get  func(c *config.Config) float64
	set  func(c *config.Config, v float64)
}

var fields = []field{
	{"heading", 0.05,
		func(c *config.Config) float64 { return c.Session.TargetHeading },
		func(c *config.Config, v float64) { c.Session.TargetHeading = v }},
	{"velocity", 0.1,
		func(c *config.Config) float64 { return c.Session.TargetVelocity },
		func(c *config.Config, v float64) { c.Session.TargetVelocity = v }},
	{"threshold", 0.01,
		func(c *config.Config) float64 { return c.Session.Threshold },
		func(c *config.Config, v float64) { c.Session.Threshold = v }},
	{"max_iter", 10,
		func(c *config.Config) float64 { return float64(c.Session.MaxIterations) },
		func(c *config.Config, v float64) { c.Session.MaxIterations = int(v) }},
	{"vel_kp", 0.1,
		func(c *config.Config) float64 { return c.Velocity.Kp },
		func(c *config.Config, v float64) { c.Velocity.Kp = v }},
	{"head_kp", 0.1,
		func(c *config.Config) float64 { return c.Heading.Kp },
		func(c *config.Config, v float64) { c.Heading.Kp = v }},
}

// form edits a setpoint before handing it to the live view. Every start
// uses a copy of the edited config, so restarts never share state.
type form struct {
	state   int
	cursor  int
	cfg     *config.Config
	editing bool
	editBuf string
	err     error
	live    Model
}

func NewSetpointForm(cfg *config.Config) *form {
	return &form{state: stateForm, cfg: cfg.Clone()}
}

func (m form) Init() tea.Cmd { return nil }

func (m form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
			m.state = stateForm
			return m, nil
		}
		newLive, cmd := m.live.Update(msg)
		m.live = newLive.(Model)
		return m, cmd
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		return m.formKey(key)
	}
	return m, nil
}

func (m form) formKey(msg tea.KeyMsg) (form, tea.Cmd) {
	f := fields[m.cursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				f.set(m.cfg, v)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(fields)-1 {
			m.cursor++
		}
	case "left", "h":
		f.set(m.cfg, f.get(m.cfg)-f.step)
	case "right", "l":
		f.set(m.cfg, f.get(m.cfg)+f.step)
	case "enter", " ":
		m.editing, m.editBuf = true, strconv.FormatFloat(f.get(m.cfg), 'f', -1, 64)
	case "s":
		return m.start()
	}
	return m, nil
}

func (m form) start() (form, tea.Cmd) {
	cfg := m.cfg.Clone()
	if err := cfg.Validate(); err != nil {
		m.err = err
		return m, nil
	}
	live, err := NewModel(cfg)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.live, m.err, m.state = live, nil, stateSim
	return m, live.Init()
}

func (m form) View() string {
	if m.state == stateSim {
		return m.live.View()
	}

	var b strings.Builder
	b.WriteString("\n\n    " + cyan.Render("ACKERSIM") + "\n    " + dim.Render("setpoint") + "\n    " + dim.Render("─────────────────────────") + "\n\n")
	for i, f := range fields {
		valStr := fmt.Sprintf("%8.3f", f.get(m.cfg))
		if m.editing && i == m.cursor {
			valStr = fmt.Sprintf("%8s", m.editBuf+"_")
		}
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", cyan.Render("▸"), white.Render(fmt.Sprintf("%-10s", f.name)), magenta.Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", dim.Render(fmt.Sprintf("  %-10s", f.name)), dim.Render(valStr)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + StatusFailed.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + keyCap.Render("j/k") + dim.Render(" select  ") + keyCap.Render("h/l") + dim.Render(" adjust  ") +
		keyCap.Render("enter") + dim.Render(" edit  ") + keyCap.Render("s") + dim.Render(" start  ") +
		keyCap.Render("esc") + dim.Render(" back  ") + keyCap.Render("q") + dim.Render(" quit") + "\n")
	return b.String()
}

// RunInteractive opens the setpoint form, then the live view.
func RunInteractive(cfg *config.Config) error {
	_, err := tea.NewProgram(NewSetpointForm(cfg), tea.WithAltScreen()).Run()
	return err
}
