package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fdtdsim/internal/analysis"
	"github.com/san-kum/fdtdsim/internal/automation"
	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/config"
	"github.com/san-kum/fdtdsim/internal/experiment"
	"github.com/san-kum/fdtdsim/internal/export"
	"github.com/san-kum/fdtdsim/internal/fdtd"
	"github.com/san-kum/fdtdsim/internal/logging"
	"github.com/san-kum/fdtdsim/internal/optim"
	"github.com/san-kum/fdtdsim/internal/sim"
	"github.com/san-kum/fdtdsim/internal/storage"
	"github.com/san-kum/fdtdsim/internal/tui"
	"github.com/san-kum/fdtdsim/internal/viz"
)

var (
	dataDir   string
	logLevel  string
	logJSON   bool
	log       *slog.Logger
	sceneFile string
	backendID string
	steps     int
	watch     bool
	noSave    bool
	frameRate int
	perFrame  int
	detector  string
	component string
	outPath   string
	threshold float64
	format    string
	param     string
	params    []string
	metric    string
	pmin      float64
	pmax      float64
	points    int
	maximize  bool
	trials    int
	spread    float64
	seed      int64
	jsonOut   string
	profile   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fdtdsim",
		Short:         "finite-difference time-domain electromagnetics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logJSON {
				log = logging.NewJSONLogger(logLevel, os.Stderr)
			} else {
				log = logging.NewLogger(logLevel, os.Stderr)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fdtdsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON lines")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scene and store its detector data",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScene,
	}
	sceneFlags(runCmd)
	runCmd.Flags().BoolVar(&watch, "watch", false, "print a field profile while running")
	runCmd.Flags().IntVar(&frameRate, "fps", 10, "frame rate for --watch")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "also write the recorded data as JSON to this file")
	runCmd.Flags().StringVar(&profile, "profile", "", "plot the final field along x to this image file")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scene in the interactive terminal viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	sceneFlags(liveCmd)
	liveCmd.Flags().IntVar(&perFrame, "steps-per-frame", 2, "grid steps per frame")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot detector traces in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	traceFlags(plotCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectrum, arrival and transmission of detector traces",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	traceFlags(analyzeCmd)
	analyzeCmd.Flags().Float64Var(&threshold, "threshold", 1e-3, "arrival threshold in V/m")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and traces as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportPlotCmd := &cobra.Command{
		Use:   "export-plot [run_id]",
		Short: "render detector traces and spectra to image files",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPlots,
	}
	exportPlotCmd.Flags().StringVarP(&outPath, "out", "o", "", "output directory (default the run directory)")
	exportPlotCmd.Flags().StringVar(&format, "format", "png", "image format: png, svg or pdf")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenes",
		RunE:  listPresets,
	}

	sceneCmd := &cobra.Command{
		Use:   "scene [preset]",
		Short: "print a preset as YAML, as a starting point for a scene file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := config.GetPreset(args[0])
			if s == nil {
				return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(s)
		},
	}

	backendsCmd := &cobra.Command{
		Use:   "backends",
		Short: "list numeric backends",
		RunE:  listBackends,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "time a scene on every available backend",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	sceneFlags(benchCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [preset]",
		Short: "run a scene on all available backends concurrently and compare fields",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareBackends,
	}
	sceneFlags(compareCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run a scene across a linear range of one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepScene,
	}
	sceneFlags(sweepCmd)
	sweepCmd.Flags().StringVarP(&param, "param", "p", "", "scene parameter path, e.g. objects.core.permittivity")
	sweepCmd.Flags().Float64Var(&pmin, "min", 1, "first value")
	sweepCmd.Flags().Float64Var(&pmax, "max", 2, "last value")
	sweepCmd.Flags().IntVarP(&points, "points", "n", 5, "number of points")
	sweepCmd.Flags().StringVarP(&metric, "metric", "m", "peak_field", "metric to plot")
	sweepCmd.MarkFlagRequired("param")

	searchCmd := &cobra.Command{
		Use:   "search [preset]",
		Short: "grid search scene parameters for the best metric value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  searchScene,
	}
	sceneFlags(searchCmd)
	searchCmd.Flags().StringArrayVarP(&params, "param", "p", nil, "path=v1,v2,... (repeatable)")
	searchCmd.Flags().StringVarP(&metric, "metric", "m", "peak_field", "objective metric")
	searchCmd.Flags().BoolVar(&maximize, "maximize", false, "maximize instead of minimize")
	searchCmd.MarkFlagRequired("param")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run and store every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "perturb object permittivities and check stability",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	sceneFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 10, "number of trials")
	monteCarloCmd.Flags().Float64Var(&spread, "spread", 0.05, "relative permittivity spread")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 1, "random seed; equal seeds reproduce the trials")
	monteCarloCmd.Flags().StringVarP(&metric, "metric", "m", "peak_field", "metric to report")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, analyzeCmd, exportJSONCmd, exportPlotCmd,
		presetsCmd, sceneCmd, backendsCmd, benchCmd, compareCmd, sweepCmd, searchCmd, batchCmd, monteCarloCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&sceneFile, "config", "c", "", "scene file (yaml)")
	cmd.Flags().StringVar(&backendID, "backend", "", "override the scene backend")
	cmd.Flags().IntVar(&steps, "steps", 0, "override the number of steps")
}

func traceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&detector, "detector", "d", "", "detector name (default all)")
	cmd.Flags().StringVar(&component, "component", "Ez", "component column, e.g. Ez or Hy")
}

// loadScene resolves the scene from --config, a preset argument or the
// default scene, then applies the command-line overrides.
func loadScene(args []string) (*config.Scene, error) {
	var scene *config.Scene
	switch {
	case sceneFile != "":
		s, err := config.Load(sceneFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load scene: %w", err)
		}
		scene = s
	case len(args) > 0:
		scene = config.GetPreset(args[0])
		if scene == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	default:
		scene = config.DefaultScene()
	}
	if backendID != "" {
		scene.Backend = backendID
	}
	if steps > 0 {
		scene.Run.Steps = steps
		scene.Run.Duration = 0
	}
	return scene, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runScene(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(scene, log)
	if err != nil {
		return err
	}
	runner := exp.Runner()
	runner.AddObserver(logging.StepTracer{Log: log})
	pol := fdtd.Z
	if srcs := exp.Grid().Sources(); len(srcs) > 0 {
		pol = srcs[0].Polarization()
	}
	if watch {
		r := tui.NewLiveRenderer(os.Stdout, scene.Name, pol, frameRate)
		r.Start()
		defer r.Stop()
		runner.AddObserver(r)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s on %s...\n", scene.Name, exp.Grid().Backend().Name())
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		fmt.Printf("run stopped after %d steps: %v\n", result.Steps, runErr)
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(scene, exp.Grid(), result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	if jsonOut != "" {
		if err := export.ExportJSON(jsonOut, export.Collect(scene.Name, exp.Grid(), result)); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", jsonOut)
	}
	if profile != "" {
		if err := export.PlotGridProfile(profile, exp.Grid(), pol); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", profile)
	}

	fmt.Printf("completed %d steps in %v (%.0f steps/s)\n", result.Steps, result.Elapsed.Round(time.Millisecond), result.StepsPerSecond)
	fmt.Printf("simulated time: %.4g s\n", result.Time)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-14s %.6g\n", name, result.Metrics[name])
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(scene, logging.Discard())
	if err != nil {
		return err
	}
	return viz.Run(exp.Grid(), scene.Name, perFrame, exp.RunConfig().Steps)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tBACKEND\tSHAPE\tSTEPS\tDETECTORS")
	for _, run := range runs {
		names := make([]string, len(run.Detectors))
		for i, d := range run.Detectors {
			names[i] = d.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dx%dx%d\t%d\t%s\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Backend,
			run.Shape[0], run.Shape[1], run.Shape[2],
			run.Steps,
			strings.Join(names, ","),
		)
	}
	return w.Flush()
}

// detectorNames is the --detector selection, or every detector of the run.
func detectorNames(meta *storage.RunMetadata) []string {
	if detector != "" {
		return []string{detector}
	}
	names := make([]string, len(meta.Detectors))
	for i, d := range meta.Detectors {
		names[i] = d.Name
	}
	return names
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("steps: %d\n\n", meta.Steps)

	for _, name := range detectorNames(meta) {
		trace, err := st.LoadTrace(meta.ID, name)
		if err != nil {
			return err
		}
		data := trace.Column(component)
		if data == nil {
			fmt.Printf("%s: no %s column (have %v)\n\n", name, component, trace.Columns)
			continue
		}
		if len(data) == 0 {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s %s vs step", name, component)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	be := backend.NewCPUBackend()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DETECTOR\tPEAK FREQ (THz)\tWAVELENGTH (nm)\tARRIVAL STEP\tMAX |"+component+"|")
	var first []float64
	var last []float64
	for _, name := range detectorNames(meta) {
		trace, err := st.LoadTrace(meta.ID, name)
		if err != nil {
			return err
		}
		data := trace.Column(component)
		if data == nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\n", name)
			continue
		}
		if first == nil {
			first = data
		}
		last = data

		spec := analysis.PowerSpectrum(be, data, meta.Dt)
		f, _ := spec.Peak()
		peak := 0.0
		for _, v := range data {
			peak = max(peak, math.Abs(v))
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.1f\t%d\t%.4g\n", name, f/1e12, analysis.Wavelength(f)*1e9,
			analysis.ArrivalStep(data, threshold), peak)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if first != nil && len(detectorNames(meta)) > 1 {
		fmt.Printf("\ntransmission last/first: %.4g\n", analysis.Transmission(first, last))
	}
	return nil
}

// runExportData rebuilds the export document of a stored run.
func runExportData(st *storage.Store, runID string) (export.ExportData, error) {
	meta, err := st.Load(runID)
	if err != nil {
		return export.ExportData{}, err
	}
	data := export.ExportData{
		Scene:     meta.Scene,
		Backend:   meta.Backend,
		Shape:     meta.Shape,
		Spacing:   meta.Spacing,
		Dt:        meta.Dt,
		Steps:     meta.Steps,
		Time:      meta.Time,
		Metrics:   meta.Metrics,
		Detectors: make([]export.DetectorData, 0, len(meta.Detectors)),
	}
	for _, d := range meta.Detectors {
		trace, err := st.LoadTrace(runID, d.Name)
		if err != nil {
			return export.ExportData{}, err
		}
		dd := export.DetectorData{
			Name:       d.Name,
			Kind:       d.Kind,
			Mode:       d.Mode,
			Times:      trace.Times,
			Components: make(map[string][]float64, len(trace.Columns)),
		}
		for _, col := range trace.Columns {
			dd.Components[col] = trace.Column(col)
		}
		data.Detectors = append(data.Detectors, dd)
	}
	return data, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	data, err := runExportData(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	if outPath == "" {
		return export.ExportJSONStdout(data)
	}
	if err := export.ExportJSON(outPath, data); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

func exportPlots(cmd *cobra.Command, args []string) error {
	runID := args[0]
	data, err := runExportData(storage.New(dataDir), runID)
	if err != nil {
		return err
	}
	dir := outPath
	if dir == "" {
		dir = filepath.Join(dataDir, runID)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	ext := strings.TrimPrefix(format, ".")
	be := backend.NewCPUBackend()
	for _, d := range data.Detectors {
		path := filepath.Join(dir, fmt.Sprintf("%s.%s", d.Name, ext))
		if err := export.PlotDetector(path, d); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)

		cols := make([]string, 0, len(d.Components))
		for col := range d.Components {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			spec := analysis.PowerSpectrum(be, d.Components[col], data.Dt)
			if _, amp := spec.Peak(); amp == 0 {
				continue
			}
			path := filepath.Join(dir, fmt.Sprintf("%s_%s_spectrum.%s", d.Name, col, ext))
			if err := export.PlotSpectrum(path, d.Name+" "+col, spec); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
		}
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSHAPE\tSPACING (nm)\tOBJECTS\tSOURCES\tDETECTORS\tSTEPS")
	for _, name := range config.ListPresets() {
		s := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%dx%dx%d\t%.0f\t%d\t%d\t%d\t%d\n", name,
			s.Grid.Shape[0], s.Grid.Shape[1], s.Grid.Shape[2], s.Grid.Spacing*1e9,
			len(s.Objects), len(s.Sources), len(s.Detectors), s.Run.Steps)
	}
	return w.Flush()
}

func listBackends(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDTYPE\tSTATUS")
	for _, name := range backend.Names() {
		be, err := backend.New(name)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\tunavailable\n", name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\tavailable\n", name, be.DType())
		be.Cleanup()
	}
	return w.Flush()
}

// availableBackends instantiates every backend that can run here.
func availableBackends() []backend.Backend {
	var out []backend.Backend
	for _, name := range backend.Names() {
		if be, err := backend.New(name); err == nil {
			out = append(out, be)
		}
	}
	return out
}

func benchScene(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tSTEPS\tELAPSED\tSTEPS/S\tCELLS/S")
	cells := scene.Grid.Shape[0] * scene.Grid.Shape[1] * scene.Grid.Shape[2]
	for _, be := range availableBackends() {
		exp, err := experiment.NewOn(scene, be, log)
		if err != nil {
			return err
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\t%.3g\n", be.Name(), result.Steps,
			result.Elapsed.Round(time.Millisecond), result.StepsPerSecond, result.StepsPerSecond*float64(cells))
	}
	return w.Flush()
}

func compareBackends(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}
	bes := availableBackends()
	runners := make([]*sim.Runner, len(bes))
	var cfg sim.Config
	for i, be := range bes {
		exp, err := experiment.NewOn(scene.Clone(), be, log)
		if err != nil {
			return err
		}
		runners[i] = exp.Runner()
		cfg = exp.RunConfig()
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := sim.RunAll(ctx, runners, cfg)
	if err != nil {
		return err
	}

	ref := runners[0].Grid().E()
	scale := ref.MaxAbs()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tSTEPS\tSTEPS/S\tMAX |E| (V/m)\tMAX DIFF VS "+strings.ToUpper(bes[0].Name()))
	for i, r := range runners {
		e := r.Grid().E()
		diff := 0.0
		for k := range ref.Data {
			diff = max(diff, math.Abs(e.Data[k]-ref.Data[k]))
		}
		rel := "-"
		if scale > 0 {
			rel = fmt.Sprintf("%.3g (rel %.2g)", diff, diff/scale)
		}
		fmt.Fprintf(w, "%s\t%d\t%.0f\t%.4g\t%s\n", bes[i].Name(), results[i].Steps, results[i].StepsPerSecond, e.MaxAbs(), rel)
	}
	return w.Flush()
}

func sweepScene(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	sweep := &automation.ParameterSweep{Base: scene, Param: param, Min: pmin, Max: pmax, NumSteps: points}
	results, err := automation.RunSweep(ctx, sweep, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(param), strings.ToUpper(metric))
	values := make([]float64, len(results))
	for i, r := range results {
		values[i] = r.Metrics[metric]
		fmt.Fprintf(w, "%.4g\t%.6g\n", r.ParamValue, values[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(values) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(values,
			asciigraph.Height(10),
			asciigraph.Caption(fmt.Sprintf("%s vs %s", metric, param)),
		))
	}
	return nil
}

// parseParam splits "path=v1,v2,..." into its path and values.
func parseParam(s string) (string, []float64, error) {
	path, list, ok := strings.Cut(s, "=")
	if !ok || path == "" || list == "" {
		return "", nil, fmt.Errorf("parameter %q: want path=v1,v2,...", s)
	}
	var values []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("parameter %q: %w", s, err)
		}
		values = append(values, v)
	}
	return path, values, nil
}

func searchScene(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(params))
	ranges := make([][]float64, 0, len(params))
	for _, p := range params {
		name, values, err := parseParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	gs := optim.NewGridSearch(names, ranges)
	if maximize {
		gs.Maximize()
	}
	ctx, cancel := signalContext()
	defer cancel()
	best, value, err := gs.Search(ctx, optim.SceneBuilder(scene, log), metric)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated %d points\n", len(gs.Evaluations()))
	fmt.Printf("best %s: %.6g\n", metric, value)
	for _, name := range names {
		fmt.Printf("  %s = %.4g\n", name, best[name])
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario: %s (%d steps)\n", sc.Name, len(sc.Steps))
	results, err := automation.RunScenario(ctx, sc, st, log)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSCENE\tSTEPS\tSTEPS/S")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\n", r.RunID, r.Scene.Name, r.Result.Steps, r.Result.StepsPerSecond)
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	scene, err := loadScene(args)
	if err != nil {
		return err
	}
	if len(scene.Objects) == 0 {
		return fmt.Errorf("scene %s has no objects to perturb", scene.Name)
	}
	ctx, cancel := signalContext()
	defer cancel()

	cfg := &automation.MonteCarloConfig{Base: scene, Perturbation: spread, NumTrials: trials, Seed: seed}
	results, err := automation.RunMonteCarlo(ctx, cfg, log)
	if err != nil {
		return err
	}

	var values []float64
	for _, r := range results {
		if r.Stable {
			values = append(values, r.Metrics[metric])
		}
	}
	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d stable, %d unstable\n", stable, unstable)
	if len(values) > 0 {
		mean, std := stat.MeanStdDev(values, nil)
		fmt.Printf("%s: mean %.6g, std %.3g (%.2f%%)\n", metric, mean, std, 100*std/max(math.Abs(mean), 1e-300))
	}
	return nil
}
