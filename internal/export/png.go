package export

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/ackersim/internal/sim"
)

var ErrNoSamples = errors.New("export: no samples to plot")

const pngDPI = 150

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Padding = vg.Points(8)
	p.Y.Padding = vg.Points(8)
	p.Add(plotter.NewGrid())
}

func writePNG(w io.Writer, p *plot.Plot, widthIn, heightIn float64) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(pngDPI),
	)
	p.Draw(draw.New(c))

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

func line(pts plotter.XYs, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.LineStyle.Width = vg.Points(1.5)
	l.LineStyle.Color = c
	return l, nil
}

// TrajectoryPlot is the x-y path of the session.
func TrajectoryPlot(samples []sim.Sample) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	p := plot.New()
	p.Title.Text = "Trajectory"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	stylePlot(p)

	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i].X, pts[i].Y = s.State.X, s.State.Y
	}
	l, err := line(pts, color.RGBA{R: 0xcc, G: 0x00, B: 0xcc, A: 0xff})
	if err != nil {
		return nil, err
	}
	p.Add(l)
	return p, nil
}

// ErrorPlot is both tracking errors against time.
func ErrorPlot(samples []sim.Sample) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	p := plot.New()
	p.Title.Text = "Tracking error"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "error"
	stylePlot(p)

	vel := make(plotter.XYs, len(samples))
	head := make(plotter.XYs, len(samples))
	for i, s := range samples {
		vel[i].X, vel[i].Y = s.Time, s.VelocityError
		head[i].X, head[i].Y = s.Time, s.HeadingError
	}
	velLine, err := line(vel, color.RGBA{R: 0x00, G: 0x88, B: 0xff, A: 0xff})
	if err != nil {
		return nil, err
	}
	headLine, err := line(head, color.RGBA{R: 0xff, G: 0x66, B: 0x00, A: 0xff})
	if err != nil {
		return nil, err
	}
	p.Add(velLine, headLine)
	p.Legend.Add("velocity", velLine)
	p.Legend.Add("heading", headLine)
	p.Legend.Top = true
	return p, nil
}

// WritePNG renders one of the plots above.
func WritePNG(w io.Writer, p *plot.Plot) error {
	return writePNG(w, p, 6, 6)
}

// ExportPNG writes the trajectory to path and the error plot to errPath.
// An empty errPath skips the error plot.
func ExportPNG(path, errPath string, samples []sim.Sample) error {
	traj, err := TrajectoryPlot(samples)
	if err != nil {
		return err
	}
	if err := savePNG(path, traj); err != nil {
		return err
	}
	if errPath == "" {
		return nil
	}
	errs, err := ErrorPlot(samples)
	if err != nil {
		return err
	}
	return savePNG(errPath, errs)
}

func savePNG(path string, p *plot.Plot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()
	return WritePNG(f, p)
}
