package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/ackersim/internal/sim"
)

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(1, 2)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	StatusRunning = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	StatusPaused = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	StatusFailed = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899")).
			Width(14)

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688")).
		Italic(true)

	SparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	SparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	SparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// PhaseStyle colours a session phase.
func PhaseStyle(p sim.Phase) lipgloss.Style {
	switch p {
	case sim.PhaseConverged:
		return StatusRunning
	case sim.PhaseIterating, sim.PhaseInitialized:
		return StatusPaused
	default:
		return StatusFailed
	}
}

// ProgressBar fills width cells by percent, coloured by how far along it is.
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	if percent > 0.8 {
		return SparkLow.Render(bar)
	} else if percent > 0.4 {
		return SparkMid.Render(bar)
	}
	return SparkHigh.Render(bar)
}

// SparklineChart renders a mini sparkline from values
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		result.WriteRune(chars[idx])
	}
	return result.String()
}

func row(label, value string) string {
	return MetricLabel.Render(label) + MetricValue.Render(value) + "\n"
}

// Summary renders the outcome of a finished session as a panel.
func Summary(sess sim.Session, res *sim.Result) string {
	var s strings.Builder
	s.WriteString(Title.Render("SESSION") + "\n\n")
	s.WriteString(row("Phase", PhaseStyle(res.Phase).Render(res.Phase.String())))
	s.WriteString(row("Mode", string(sess.Mode)))
	s.WriteString(row("Target", fmt.Sprintf("θ=%.4f  v=%.4f", sess.TargetHeading, sess.TargetVelocity)))
	s.WriteString(row("Iterations", fmt.Sprintf("%d / %d", res.Iterations, sess.MaxIterations)))
	s.WriteString(row("Final pose", fmt.Sprintf("(%.4f, %.4f)", res.Final.X, res.Final.Y)))
	s.WriteString(row("Final θ", fmt.Sprintf("%.6f", res.Final.Theta)))
	s.WriteString(row("Final v", fmt.Sprintf("%.6f", res.Final.Velocity)))

	if len(res.Metrics) > 0 {
		s.WriteString("\n" + Subtle.Render("metrics") + "\n")
		names := make([]string, 0, len(res.Metrics))
		for name := range res.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s.WriteString(row(name, fmt.Sprintf("%.6f", res.Metrics[name])))
		}
	}

	if len(res.Samples) > 1 {
		vel := make([]float64, len(res.Samples))
		for i, x := range res.Samples {
			vel[i] = x.VelocityError
		}
		s.WriteString("\n" + Subtle.Render("velocity error ") + SparklineChart(vel, 40) + "\n")
	}
	return Panel.Render(s.String())
}
