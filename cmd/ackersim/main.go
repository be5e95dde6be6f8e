package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/viz"
)

var (
	dataDir  string
	logLevel string

	// Session
	heading   float64
	velocity  float64
	mode      string
	maxIter   int
	threshold float64
	dt        float64
	// Gains
	velKp, velKi, velKd    float64
	headKp, headKi, headKd float64
	// Geometry
	wheelbase   float64
	trackWidth  float64
	wheelRadius float64
	maxSteer    float64
	// Start pose
	startX, startY, startTheta, startV float64

	configFile string
	preset     string
	noSave     bool
	editFirst  bool
	outFile    string
	errFile    string
	svgCanvas  bool
	steerSpeed float64

	tuneParams []string
	tuneMetric string

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	mcTrials  int
	mcPerturb float64
	mcSeed    int64

	settleBand float64
	portrait   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ackersim",
		Short:         "ackermann vehicle setpoint tracking lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return viz.RunInteractive(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ackersim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one setpoint session",
		Args:  cobra.NoArgs,
		RunE:  runSession,
	}
	addSessionFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	promptCmd := &cobra.Command{
		Use:   "prompt",
		Short: "read setpoints from stdin until a negative value",
		Args:  cobra.NoArgs,
		RunE:  runPrompt,
	}
	addSessionFlags(promptCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a session with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSessionFlags(liveCmd)
	liveCmd.Flags().BoolVar(&editFirst, "edit", false, "edit the setpoint before starting")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results (latest run by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response analysis of a run (latest run by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&settleBand, "band", 0.02, "settling band as a fraction of the step")
	analyzeCmd.Flags().StringVar(&portrait, "portrait", "", "draw the error phase portrait of a channel (velocity, heading)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trace to CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (stdout if empty)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (stdout if empty)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export the trajectory as SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (<run_id>.svg if empty)")
	exportSVGCmd.Flags().BoolVar(&svgCanvas, "canvas", false, "render the braille canvas instead of a polyline")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "export trajectory and error plots as PNG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().StringVarP(&outFile, "output", "o", "", "trajectory file (<run_id>.png if empty)")
	exportPNGCmd.Flags().StringVar(&errFile, "errors", "", "error plot file (skipped if empty)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search over config parameters",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	addSessionFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", []string{"vel_kp=0.5:2:4", "head_kp=0.5:2:4"}, "name=lo:hi:n, repeatable")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "velocity_rms", "metric to minimise")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario of setpoints",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addSessionFlags(scenarioCmd)
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter across a range",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSessionFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "vel_kp", "parameter name")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.5, "range start")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 2.0, "range end")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of points")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run trials from perturbed start poses",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addSessionFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&mcTrials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&mcPerturb, "perturb", 0.5, "start pose perturbation")
	monteCarloCmd.Flags().Int64Var(&mcSeed, "seed", 0, "random seed (0 = time based)")

	steerCmd := &cobra.Command{
		Use:   "steer [radius]",
		Short: "solve Ackermann steering for a turning radius",
		Args:  cobra.ExactArgs(1),
		RunE:  runSteer,
	}
	addSessionFlags(steerCmd)
	steerCmd.Flags().Float64Var(&steerSpeed, "speed", 1.0, "vehicle speed")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the control loop",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, promptCmd, liveCmd, listCmd, plotCmd, analyzeCmd,
		exportCSVCmd, exportJSONCmd, exportSVGCmd, exportPNGCmd,
		tuneCmd, scenarioCmd, sweepCmd, monteCarloCmd, steerCmd, benchCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func addSessionFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")

	f.Float64Var(&heading, "heading", def.Session.TargetHeading, "target heading (rad)")
	f.Float64Var(&velocity, "velocity", def.Session.TargetVelocity, "target velocity")
	f.StringVar(&mode, "mode", def.Mode, "update path (turn, pose)")
	f.IntVar(&maxIter, "max-iter", def.Session.MaxIterations, "iteration cap")
	f.Float64Var(&threshold, "threshold", def.Session.Threshold, "convergence threshold")
	f.Float64Var(&dt, "dt", def.Dt, "timestep")

	f.Float64Var(&velKp, "vel-kp", def.Velocity.Kp, "velocity kp")
	f.Float64Var(&velKi, "vel-ki", def.Velocity.Ki, "velocity ki")
	f.Float64Var(&velKd, "vel-kd", def.Velocity.Kd, "velocity kd")
	f.Float64Var(&headKp, "head-kp", def.Heading.Kp, "heading kp")
	f.Float64Var(&headKi, "head-ki", def.Heading.Ki, "heading ki")
	f.Float64Var(&headKd, "head-kd", def.Heading.Kd, "heading kd")

	f.Float64Var(&wheelbase, "wheelbase", def.Vehicle.Wheelbase, "wheelbase")
	f.Float64Var(&trackWidth, "track", def.Vehicle.TrackWidth, "track width")
	f.Float64Var(&wheelRadius, "wheel-radius", def.Vehicle.WheelRadius, "wheel radius")
	f.Float64Var(&maxSteer, "max-steer", def.Vehicle.MaxSteeringAngle, "max steering angle (0 = unconstrained)")

	f.Float64Var(&startX, "x0", 0, "initial x")
	f.Float64Var(&startY, "y0", 0, "initial y")
	f.Float64Var(&startTheta, "theta0", 0, "initial heading")
	f.Float64Var(&startV, "v0", 0, "initial velocity")
}

// resolveConfig layers defaults, preset, config file and set flags, in that
// order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
		cfg = p
	}

	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, err
		}
	}

	overrides := []struct {
		flag string
		dst  *float64
		src  float64
	}{
		{"heading", &cfg.Session.TargetHeading, heading},
		{"velocity", &cfg.Session.TargetVelocity, velocity},
		{"threshold", &cfg.Session.Threshold, threshold},
		{"dt", &cfg.Dt, dt},
		{"vel-kp", &cfg.Velocity.Kp, velKp},
		{"vel-ki", &cfg.Velocity.Ki, velKi},
		{"vel-kd", &cfg.Velocity.Kd, velKd},
		{"head-kp", &cfg.Heading.Kp, headKp},
		{"head-ki", &cfg.Heading.Ki, headKi},
		{"head-kd", &cfg.Heading.Kd, headKd},
		{"wheelbase", &cfg.Vehicle.Wheelbase, wheelbase},
		{"track", &cfg.Vehicle.TrackWidth, trackWidth},
		{"wheel-radius", &cfg.Vehicle.WheelRadius, wheelRadius},
		{"max-steer", &cfg.Vehicle.MaxSteeringAngle, maxSteer},
		{"x0", &cfg.Initial.X, startX},
		{"y0", &cfg.Initial.Y, startY},
		{"theta0", &cfg.Initial.Theta, startTheta},
		{"v0", &cfg.Initial.Velocity, startV},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.dst = o.src
		}
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = mode
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.Session.MaxIterations = maxIter
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ackersim",
	})
	if lvl, err := log.ParseLevel(logLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("unknown log level, using info", "level", logLevel)
	}
	return logger
}
