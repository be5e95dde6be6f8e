package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/ackersim/internal/analysis"
	"github.com/san-kum/ackersim/internal/automation"
	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/export"
	"github.com/san-kum/ackersim/internal/metrics"
	"github.com/san-kum/ackersim/internal/models"
	"github.com/san-kum/ackersim/internal/optim"
	"github.com/san-kum/ackersim/internal/sim"
	"github.com/san-kum/ackersim/internal/storage"
	"github.com/san-kum/ackersim/internal/viz"
)

// runOnce builds a fresh simulator from cfg, attaches the default metrics
// and runs the configured session to a terminal phase.
func runOnce(cfg *config.Config, obs sim.Observer) (*sim.Result, error) {
	s, err := cfg.NewSimulator()
	if err != nil {
		return nil, err
	}
	for _, m := range metrics.Default(cfg.Session.Threshold) {
		s.AddMetric(m)
	}
	if obs != nil {
		s.AddObserver(obs)
	}
	return s.Run(cfg.SimSession())
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger()

	s, err := cfg.NewSimulator()
	if err != nil {
		return err
	}
	s.SetLogger(logger)
	s.AddObserver(sim.LogObserver{Logger: logger})
	for _, m := range metrics.Default(cfg.Session.Threshold) {
		s.AddMetric(m)
	}

	start := time.Now()
	result, err := s.Run(cfg.SimSession())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Fprintln(cmd.OutOrStdout(), viz.Summary(s.Session(), result))
	logger.Info("session finished", "phase", result.Phase, "iterations", result.Iterations, "elapsed", elapsed)

	if noSave || result.Phase == sim.PhaseRejected {
		return nil
	}
	runID, err := storage.New(dataDir).Save(cfg, result)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved run: %s\n", runID)
	return nil
}

// runPrompt asks for target heading and velocity until either is negative.
// Every setpoint gets a fresh simulator.
func runPrompt(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	return promptLoop(cmd.InOrStdin(), cmd.OutOrStdout(), cfg)
}

func promptLoop(in io.Reader, out io.Writer, cfg *config.Config) error {
	scanner := bufio.NewScanner(in)
	read := func(label string) (float64, bool, error) {
		fmt.Fprintf(out, "%s: ", label)
		if !scanner.Scan() {
			return 0, false, scanner.Err()
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(scanner.Text()), 64)
		if err != nil {
			return 0, false, fmt.Errorf("%s: %w", label, err)
		}
		return v, true, nil
	}

	for {
		h, ok, err := read("target heading (rad, negative to quit)")
		if err != nil || !ok {
			return err
		}
		v, ok, err := read("target velocity (negative to quit)")
		if err != nil || !ok {
			return err
		}

		step := cfg.Clone()
		step.Session.TargetHeading = h
		step.Session.TargetVelocity = v
		result, err := runOnce(step, nil)
		if err != nil {
			return err
		}
		if result.Phase == sim.PhaseRejected {
			fmt.Fprintln(out, "negative setpoint, exiting")
			return nil
		}
		fmt.Fprintf(out, "%s after %d iterations: x=%.4f y=%.4f theta=%.4f v=%.4f\n",
			result.Phase, result.Iterations,
			result.Final.X, result.Final.Y, result.Final.Theta, result.Final.Velocity)
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if editFirst {
		return viz.RunInteractive(cfg)
	}
	return viz.Run(cfg)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tTIMESTAMP\tPHASE\tITER\tTHETA\tVELOCITY")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4f\t%.4f\n",
			r.ID, r.Mode, r.Timestamp.Format("2006-01-02 15:04:05"), r.Phase,
			r.Iterations, r.Final.Theta, r.Final.Velocity)
	}
	return w.Flush()
}

// resolveRun returns the run named in args, or the latest stored run.
func resolveRun(st *storage.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return st.Latest()
}

func loadRun(args []string) (*storage.RunMetadata, []sim.Sample, error) {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return nil, nil, err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadTrace(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, samples, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return export.ErrNoSamples
	}

	series := []struct {
		caption string
		value   func(sim.Sample) float64
	}{
		{"velocity error", func(s sim.Sample) float64 { return s.VelocityError }},
		{"heading error", func(s sim.Sample) float64 { return s.HeadingError }},
		{"velocity", func(s sim.Sample) float64 { return s.State.Velocity }},
		{"theta", func(s sim.Sample) float64 { return s.State.Theta }},
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s, %s after %d iterations)\n\n", meta.ID, meta.Mode, meta.Phase, meta.Iterations)
	for _, sr := range series {
		data := make([]float64, len(samples))
		for i, s := range samples {
			data[i] = sr.value(s)
		}
		graph := asciigraph.Plot(data, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption(sr.caption))
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return export.ErrNoSamples
	}
	if meta.Config == nil {
		return fmt.Errorf("run %s has no stored config", meta.ID)
	}
	sess := meta.Config.Session
	dt := meta.Config.Dt

	fmtTime := func(t float64) string {
		if math.IsNaN(t) {
			return "-"
		}
		return strconv.FormatFloat(t, 'f', 3, 64)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s, %s after %d iterations)\n\n", meta.ID, meta.Mode, meta.Phase, meta.Iterations)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tINITIAL\tTARGET\tFINAL\tRISE\tPEAK\tOVERSHOOT\tSETTLING\tSS_ERROR\tOSC_HZ")
	channels := []struct {
		c      analysis.Channel
		target float64
	}{
		{analysis.Velocity, sess.TargetVelocity},
		{analysis.Heading, sess.TargetHeading},
	}
	for _, ch := range channels {
		r := analysis.StepResponse(samples, ch.c, ch.target, settleBand)
		osc := analysis.DominantFrequency(analysis.Errors(samples, ch.c), dt)
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%s\t%s\t%.1f%%\t%s\t%.6f\t%.3f\n",
			r.Channel, r.Initial, r.Target, r.Final,
			fmtTime(r.RiseTime), fmtTime(r.PeakTime), 100*r.Overshoot, fmtTime(r.SettlingTime),
			r.SteadyStateError, osc)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(meta.Metrics) > 0 {
		fmt.Fprintln(out)
		names := make([]string, 0, len(meta.Metrics))
		for name := range meta.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "%-16s %.6f\n", name, meta.Metrics[name])
		}
	}

	if portrait != "" {
		c, ok := analysis.ParseChannel(portrait)
		if !ok {
			return fmt.Errorf("unknown channel %q", portrait)
		}
		fmt.Fprintf(out, "\n%s error (x) vs error rate (y)\n", c)
		fmt.Fprint(out, analysis.PortraitToASCII(analysis.ErrorPortrait(samples, c, dt), 80, 24))
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, samples, err := loadRun(args)
	if err != nil {
		return err
	}
	if outFile == "" {
		return export.WriteCSV(cmd.OutOrStdout(), samples)
	}
	if err := export.ExportCSV(outFile, samples); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d samples to %s\n", len(samples), outFile)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args)
	if err != nil {
		return err
	}
	data := export.NewExportData(meta.Config, meta.Phase, meta.Iterations, meta.Final, samples, meta.Metrics)
	if outFile == "" {
		return export.WriteJSON(cmd.OutOrStdout(), data)
	}
	if err := export.ExportJSON(outFile, data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported run %s to %s\n", meta.ID, outFile)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return export.ErrNoSamples
	}

	path := outFile
	if path == "" {
		path = meta.ID + ".svg"
	}

	points := export.Path(samples)
	var svg string
	if svgCanvas {
		canvas := viz.NewCanvas(80, 40)
		canvas.DrawPath(points, viz.BoundsOf(points))
		svg = export.CanvasToSVG(canvas, 4)
	} else {
		svg = export.TrajectoryToSVG(points, 800, 800, viz.GetTheme("").PathHex)
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported trajectory to %s\n", path)
	return nil
}

func exportPNG(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args)
	if err != nil {
		return err
	}
	path := outFile
	if path == "" {
		path = meta.ID + ".png"
	}
	if err := export.ExportPNG(path, errFile, samples); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported trajectory to %s\n", path)
	if errFile != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "exported errors to %s\n", errFile)
	}
	return nil
}

// parseRange reads name=lo:hi:n.
func parseRange(arg string) (string, []float64, error) {
	name, rng, ok := strings.Cut(arg, "=")
	if !ok {
		return "", nil, fmt.Errorf("bad param %q, want name=lo:hi:n", arg)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("bad range %q, want lo:hi:n", rng)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, err
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, err
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", nil, err
	}
	if n < 1 {
		return "", nil, fmt.Errorf("bad range %q: need at least one point", rng)
	}
	return strings.TrimSpace(name), optim.Linspace(lo, hi, n), nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(tuneParams))
	ranges := make([][]float64, 0, len(tuneParams))
	for _, p := range tuneParams {
		name, values, err := parseRange(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	grid, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	logger := newLogger()
	logger.Info("grid search", "points", len(grid.Combinations()), "metric", tuneMetric)

	best, all, err := grid.Search(context.Background(), cfg, tuneMetric)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	header := append(append([]string{}, names...), "PHASE", strings.ToUpper(tuneMetric))
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, c := range all {
		row := make([]string, 0, len(names)+2)
		for _, n := range names {
			row = append(row, strconv.FormatFloat(c.Params[n], 'f', 4, 64))
		}
		row = append(row, c.Phase.String(), strconv.FormatFloat(c.Value, 'f', 6, 64))
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nbest %s=%.6f (%s):", tuneMetric, best.Value, best.Phase)
	for _, n := range names {
		fmt.Fprintf(cmd.OutOrStdout(), " %s=%.4f", n, best.Params[n])
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fallback, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	base, err := scenario.BaseConfig(fallback)
	if err != nil {
		return err
	}

	logger := newLogger()
	steps, err := automation.RunScenario(context.Background(), scenario, base, logger)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPHASE\tITER\tX\tY\tTHETA\tVELOCITY\tRUN")
	for _, step := range steps {
		res := step.Result
		runID := "-"
		if !noSave && res.Phase != sim.PhaseRejected {
			if runID, err = st.Save(step.Config, res); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%s\n",
			step.Name, res.Phase, res.Iterations,
			res.Final.X, res.Final.Y, res.Final.Theta, res.Final.Velocity, runID)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sweep := &automation.ParameterSweep{
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	}
	results, err := automation.RunSweep(context.Background(), sweep, cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tPHASE\tITER\tTHETA\tVELOCITY\tVELOCITY_RMS\tHEADING_RMS\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%s\t%d\t%.4f\t%.4f\t%.6f\t%.6f\n",
			r.ParamValue, r.Phase, r.Iterations, r.Final.Theta, r.Final.Velocity,
			r.Metrics["velocity_rms"], r.Metrics["heading_rms"])
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	mc := &automation.MonteCarloConfig{
		Perturbation: mcPerturb,
		NumTrials:    mcTrials,
		Seed:         mcSeed,
	}
	results, err := automation.RunMonteCarlo(context.Background(), mc, cfg)
	if err != nil {
		return err
	}

	converged, unconverged := automation.MonteCarloStats(results)
	fmt.Fprintf(cmd.OutOrStdout(), "trials: %d  converged: %d  unconverged: %d\n", len(results), converged, unconverged)
	if len(results) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "convergence rate: %.1f%%\n", 100*float64(converged)/float64(len(results)))
	}
	return nil
}

func runSteer(cmd *cobra.Command, args []string) error {
	radius, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("radius: %w", err)
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	v, err := models.NewVehicleChecked(cfg.Vehicle)
	if err != nil {
		return err
	}
	v.SetVelocity(steerSpeed)
	st, err := v.SteerForRadius(radius)
	if err != nil {
		return err
	}

	deg := func(rad float64) float64 { return rad * 180 / math.Pi }
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "radius:      %.4f\n", st.Radius)
	fmt.Fprintf(out, "steering:    %.4f rad (%.2f deg)\n", st.Angle, deg(st.Angle))
	fmt.Fprintf(out, "inner wheel: %.4f rad (%.2f deg)\n", st.Inner, deg(st.Inner))
	fmt.Fprintf(out, "outer wheel: %.4f rad (%.2f deg)\n", st.Outer, deg(st.Outer))
	fmt.Fprintf(out, "left speed:  %.4f\n", st.LeftSpeed)
	fmt.Fprintf(out, "right speed: %.4f\n", st.RightSpeed)
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	const sessions = 100

	start := time.Now()
	total := 0
	for i := 0; i < sessions; i++ {
		res, err := runOnce(cfg, nil)
		if err != nil {
			return err
		}
		total += res.Iterations
	}
	elapsed := time.Since(start)

	fmt.Fprintf(cmd.OutOrStdout(), "sessions:   %d\n", sessions)
	fmt.Fprintf(cmd.OutOrStdout(), "iterations: %d\n", total)
	fmt.Fprintf(cmd.OutOrStdout(), "elapsed:    %v\n", elapsed)
	fmt.Fprintf(cmd.OutOrStdout(), "iter/sec:   %.0f\n", float64(total)/elapsed.Seconds())
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODE\tHEADING\tVELOCITY\tDT\tMAX_ITER\tTHRESHOLD")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.3f\t%.3f\t%d\t%.3f\n",
			name, p.Mode, p.Session.TargetHeading, p.Session.TargetVelocity,
			p.Dt, p.Session.MaxIterations, p.Session.Threshold)
	}
	return w.Flush()
}
