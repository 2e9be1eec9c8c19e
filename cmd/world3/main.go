package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openw3/world3/internal/analysis"
	"github.com/openw3/world3/internal/config"
	"github.com/openw3/world3/internal/lookup"
	"github.com/openw3/world3/internal/model"
	"github.com/openw3/world3/internal/output"
	"github.com/openw3/world3/internal/server"
	"github.com/openw3/world3/internal/sim"
	"github.com/openw3/world3/internal/store"
	"github.com/openw3/world3/internal/sweep"
	"github.com/openw3/world3/internal/tui"
)

var (
	presetName string
	startYear  float64
	endYear    float64
	timeStep   float64
	csvPath    string
	jsonPath   string
	svgPath    string
	showChart  bool
	showReport bool
	configFile string
	addr       string
	dbPath     string
	logLevel   string

	sweepField string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	sweepJobs  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "world3",
		Short: "World3 system dynamics simulator",
		Long:  "Simulate the World3 model of population, capital, agriculture, resources, and pollution from 1900 to 2100.",
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "run a scenario and print or export the trajectory",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().StringVar(&presetName, "preset", "bau", "scenario preset (bau, technology, stabilized)")
	simulateCmd.Flags().Float64Var(&startYear, "start", 1900, "start year")
	simulateCmd.Flags().Float64Var(&endYear, "end", 2100, "end year")
	simulateCmd.Flags().Float64Var(&timeStep, "dt", 1.0, "integration step in years")
	simulateCmd.Flags().StringVar(&csvPath, "output", "", "write trajectory CSV to path")
	simulateCmd.Flags().StringVar(&jsonPath, "json", "", "write full output JSON to path")
	simulateCmd.Flags().StringVar(&svgPath, "svg", "", "write overview chart SVG to path")
	simulateCmd.Flags().BoolVar(&showChart, "chart", false, "render normalized terminal charts")
	simulateCmd.Flags().BoolVar(&showReport, "report", false, "print trajectory analysis after the summary")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "check the standard run against historical reference dynamics",
		RunE:  runValidate,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenario presets",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available presets:")
			fmt.Println("  bau          Business as Usual (standard run)")
			fmt.Println("  technology   Comprehensive Technology scenario")
			fmt.Println("  stabilized   Stabilized World scenario")
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the REST and WebSocket API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "sqlite scenario db path (overrides config)")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "interactive terminal mode with live re-simulation",
		RunE:  runWatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "vary one policy lever across a range and compare outcomes",
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&presetName, "preset", "bau", "scenario preset (bau, technology, stabilized)")
	sweepCmd.Flags().StringVar(&sweepField, "param", "", "parameter field to vary (see 'params')")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "lowest lever value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0, "highest lever value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of grid points")
	sweepCmd.Flags().IntVar(&sweepJobs, "jobs", 0, "concurrent runs (0 = all cores)")
	sweepCmd.MarkFlagRequired("param")

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "list tunable scenario parameters",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%-30s %-10s %10s %10s %10s\n", "Field", "Unit", "Min", "Max", "Default")
			for _, d := range model.ParameterDescriptors() {
				fmt.Printf("%-30s %-10s %10g %10g %10g\n", d.Field, d.Unit, d.Min, d.Max, d.Default)
			}
		},
	}

	rootCmd.AddCommand(simulateCmd, validateCmd, presetsCmd, paramsCmd, serveCmd, watchCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(format string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

func presetParams(name string) (model.ScenarioParams, error) {
	switch name {
	case "bau":
		return model.BAU(), nil
	case "technology":
		return model.ComprehensiveTechnology(), nil
	case "stabilized":
		return model.StabilizedWorld(), nil
	default:
		return model.ScenarioParams{}, fmt.Errorf("unknown preset %q (use: bau, technology, stabilized)", name)
	}
}

func newRunner() (*sim.Runner, error) {
	tables, err := lookup.Load()
	if err != nil {
		return nil, err
	}
	return sim.NewRunner(tables), nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	setupLogging("text")

	params, err := presetParams(presetName)
	if err != nil {
		return err
	}
	params.StartYear = startYear
	params.EndYear = endYear
	params.TimeStep = timeStep

	runner, err := newRunner()
	if err != nil {
		return err
	}
	out, err := runner.Run(cmd.Context(), params)
	if err != nil {
		return err
	}

	switch {
	case csvPath != "":
		if err := output.WriteCSVFile(csvPath, out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", csvPath)
	case jsonPath != "":
		if err := output.ExportJSON(jsonPath, out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", jsonPath)
	default:
		fmt.Print(output.Summary(out))
	}

	if svgPath != "" {
		if err := output.WriteSVGFile(out, svgPath, 900, 500); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", svgPath)
	}
	if showChart {
		fmt.Print(output.Chart(out, 90, 10))
	}
	if showReport {
		fmt.Println()
		fmt.Print(analysis.Analyze(out).String())
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	setupLogging("text")

	params, err := presetParams(presetName)
	if err != nil {
		return err
	}
	runner, err := newRunner()
	if err != nil {
		return err
	}

	res, err := sweep.Run(cmd.Context(), runner, params, sweep.Spec{
		Field: sweepField,
		Min:   sweepMin,
		Max:   sweepMax,
		Steps: sweepSteps,
	}, sweepJobs)
	if err != nil {
		return err
	}

	fmt.Printf("Sweep of %s over %s preset:\n\n", sweepField, presetName)
	fmt.Print(res.Table())
	return nil
}

// runValidate executes the standard run and checks qualitative dynamics
// against the historical record: growth through the twentieth century, a
// peak-and-decline trajectory, resource depletion, and a pollution surge.
func runValidate(cmd *cobra.Command, args []string) error {
	setupLogging("text")
	fmt.Fprintln(os.Stderr, "Running standard-run validation against reference dynamics...")

	runner, err := newRunner()
	if err != nil {
		return err
	}
	out, err := runner.Run(cmd.Context(), model.BAU())
	if err != nil {
		return err
	}

	var failures []string
	pass := func(format string, a ...any) {
		fmt.Fprintf(os.Stderr, "  PASS  "+format+"\n", a...)
	}
	fail := func(format string, a ...any) {
		failures = append(failures, fmt.Sprintf(format, a...))
	}

	if s := out.StateAtYear(1900); s != nil {
		pop := s.Population.Population
		if pop < 1.0e9 || pop > 2.5e9 {
			fail("1900 population %.2e outside [1B, 2.5B]", pop)
		} else {
			pass("1900 population: %.2e", pop)
		}
	}

	if s := out.StateAtYear(1970); s != nil {
		pop := s.Population.Population
		if pop < 2.5e9 || pop > 5.0e9 {
			fail("1970 population %.2e outside [2.5B, 5B]", pop)
		} else {
			pass("1970 population: %.2e", pop)
		}
	}

	peakPop, peakYear := 0.0, 0.0
	for _, s := range out.States {
		if s.Population.Population > peakPop {
			peakPop, peakYear = s.Population.Population, s.Time
		}
	}
	if peakPop < 6.0e9 || peakPop > 12.0e9 || peakYear < 2000 || peakYear > 2070 {
		fail("population peak %.2e at %.0f outside expected [6B-12B, 2000-2070]", peakPop, peakYear)
	} else {
		pass("population peak: %.2e at year %.0f", peakPop, peakYear)
	}

	if s := out.StateAtYear(2100); s != nil {
		nnr := s.Resources.FractionRemaining
		if nnr >= 0.7 {
			fail("2100 NNR fraction %.3f unexpectedly high (>= 0.7)", nnr)
		} else {
			pass("2100 NNR fraction: %.3f", nnr)
		}
	}

	maxPollution := 0.0
	for _, s := range out.States {
		if s.Pollution.PollutionIndex > maxPollution {
			maxPollution = s.Pollution.PollutionIndex
		}
	}
	if maxPollution < 0.5 {
		fail("max pollution index %.3f never rises above 0.5", maxPollution)
	} else {
		pass("peak pollution index: %.3f", maxPollution)
	}

	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "\nValidation FAILED:")
		for _, f := range failures {
			fmt.Fprintf(os.Stderr, "  FAIL  %s\n", f)
		}
		return fmt.Errorf("validation failed with %d issue(s)", len(failures))
	}
	fmt.Fprintln(os.Stderr, "\nValidation PASSED.")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return err
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if dbPath != "" {
		cfg.Server.DBPath = dbPath
	}
	if logLevel != "info" {
		cfg.Log.Level = logLevel
	}
	logrus.SetLevel(parseLevel(cfg.Log.Level))
	if cfg.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	log := logrus.WithField("component", "server")

	runner, err := newRunner()
	if err != nil {
		return err
	}

	var st store.Store
	if cfg.Server.DBPath != "" {
		sqlStore, err := store.OpenSQLite(cfg.Server.DBPath)
		if err != nil {
			return fmt.Errorf("open scenario db: %w", err)
		}
		defer sqlStore.Close()
		st = sqlStore
		log.WithField("path", cfg.Server.DBPath).Info("scenario store opened")
	} else {
		st = store.NewMemStore()
		log.Info("using in-memory scenario store")
	}

	var metrics *server.Metrics
	if cfg.Server.Metrics {
		metrics = server.NewMetrics(nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(runner, st, metrics, log)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Logging would corrupt the alternate screen.
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.ErrorLevel)

	runner, err := newRunner()
	if err != nil {
		return err
	}
	// Local session, no persistence.
	_, err = tea.NewProgram(tui.NewWatch(runner), tea.WithAltScreen()).Run()
	return err
}

func parseLevel(s string) logrus.Level {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
