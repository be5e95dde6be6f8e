package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/ackersim/internal/sim"
	"github.com/san-kum/ackersim/internal/viz"
)

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2   // 2 sub-pixels per char
	height := float64(canvas.Height) * scale * 4 // 4 sub-pixels per char

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height))

	dotRadius := scale * 0.4
	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for _, d := range canvas.Dots(row, col) {
				cx := baseX + float64(d[1])*scale + scale/2
				cy := baseY + float64(d[0])*scale + scale/2
				sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, cx, cy, dotRadius))
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Path extracts the driven positions from samples.
func Path(samples []sim.Sample) []viz.Point {
	points := make([]viz.Point, len(samples))
	for i, s := range samples {
		points[i] = viz.Point{X: s.State.X, Y: s.State.Y}
	}
	return points
}

// TrajectoryToSVG draws the path as one polyline, equal scale on both axes,
// with a marker at the end pose.
func TrajectoryToSVG(points []viz.Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	b := viz.BoundsOf(points)
	scale := min(float64(width)/(b.MaxX-b.MinX), float64(height)/(b.MaxY-b.MinY))
	project := func(p viz.Point) (float64, float64) {
		return (p.X - b.MinX) * scale, float64(height) - (p.Y-b.MinY)*scale
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x, y := project(p)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString(`"/>
`)

	ex, ey := project(points[len(points)-1])
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>
</svg>`, ex, ey, strokeColor))
	return sb.String()
}
