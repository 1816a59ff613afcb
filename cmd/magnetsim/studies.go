package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/magnetsim/internal/analysis"
	"github.com/san-kum/magnetsim/internal/automation"
	"github.com/san-kum/magnetsim/internal/experiment"
	"github.com/san-kum/magnetsim/internal/optim"
	"github.com/san-kum/magnetsim/internal/storage"
)

var (
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	trials     int
	stableTol  float64
	grid       []string
	metricName string
	saveRun    bool
)

func benchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "measure frame throughput for growing clusters",
		Args:  cobra.NoArgs,
		RunE:  benchCluster,
	}
	sceneFlags(cmd)
	return cmd
}

func benchCluster(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	counts := []int{6, 18, 50, 100, 200}
	fmt.Printf("benchmarking %s, %.1fs at %.0f fps\n\n", base.Preset, base.Duration, base.FPS)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITEMS\tINTEG\tFRAMES\tTIME\tFRAMES/SEC\tREALTIME")

	for _, n := range counts {
		for _, mode := range registry.ListIntegrations() {
			cfg := *base
			cfg.Cluster.Count = n
			cfg.Cluster.RestSpacing = 0
			if cfg.Cluster.Integration, err = registry.GetIntegration(mode); err != nil {
				return err
			}

			start := time.Now()
			result, err := runQuiet(cmd.Context(), &cfg)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			perSec := float64(result.StepsTaken) / elapsed.Seconds()
			fmt.Fprintf(w, "%d\t%s\t%d\t%v\t%.0f\t%.1fx\n",
				n, mode, result.StepsTaken, elapsed.Round(time.Microsecond), perSec, perSec/cfg.FPS)
		}
	}
	return w.Flush()
}

func compareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [fps] [fps] ...",
		Short: "compare integration modes across frame rates",
		Long: "Runs the same scene at each frame rate in every integration mode. " +
			"Frame-locked motion speeds up with the frame rate; scaled motion should not.",
		Args: cobra.MinimumNArgs(1),
		RunE: compareModes,
	}
	sceneFlags(cmd)
	cmd.Flags().Float64Var(&tolerance, "tol", 1e-3, "settling speed tolerance per reference frame")
	return cmd
}

func compareModes(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	rates := make([]float64, len(args))
	for i, a := range args {
		if rates[i], err = strconv.ParseFloat(a, 64); err != nil || rates[i] <= 0 {
			return fmt.Errorf("invalid frame rate %q", a)
		}
	}

	fmt.Printf("comparing integration modes for %s (%s, %.1fs)\n\n", base.Preset, base.Gesture, base.Duration)
	fmt.Printf("%-8s  %-8s  %12s  %12s  %12s\n", "mode", "fps", "peak_speed", "rest_dev", "settle_s")
	fmt.Println(strings.Repeat("-", 60))

	for _, mode := range registry.ListIntegrations() {
		for _, rate := range rates {
			cfg := *base
			cfg.FPS = rate
			cfg.Cluster.Integration, _ = registry.GetIntegration(mode)

			result, err := runQuiet(cmd.Context(), &cfg)
			if err != nil {
				fmt.Printf("%-8s  %-8.0f  error: %v\n", mode, rate, err)
				continue
			}

			// Per-frame displacement is compared per reference frame.
			speeds := automation.MaxSpeeds(result)
			for i := range speeds {
				speeds[i] *= rate / cfg.Cluster.ReferenceRate
			}
			settle := "never"
			if f := analysis.SettlingFrame(speeds, tolerance); f >= 0 {
				settle = fmt.Sprintf("%.2f", float64(f)/rate)
			}

			fmt.Printf("%-8s  %-8.0f  %12.6f  %12.6f  %12s\n",
				mode, rate, result.Metrics["peak_speed"], result.Metrics["rest_deviation"], settle)
		}
	}
	return nil
}

func sweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one tunable and report settling behavior",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sceneFlags(cmd)
	cmd.Flags().StringVar(&sweepParam, "param", "linear_damping", "tunable to sweep")
	cmd.Flags().Float64Var(&sweepMin, "min", 0.8, "first value")
	cmd.Flags().Float64Var(&sweepMax, "max", 0.98, "last value")
	cmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")
	cmd.Flags().Float64Var(&tolerance, "tol", 1e-3, "settling speed tolerance per frame")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunSweep(cmd.Context(), &automation.ParameterSweep{
		Base:      base,
		Param:     sweepParam,
		Min:       sweepMin,
		Max:       sweepMax,
		NumSteps:  sweepSteps,
		Tolerance: tolerance,
	}, registry, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tPEAK_SPEED\tKINETIC\tMIN_SEP\tSETTLE_FRAME\n", strings.ToUpper(sweepParam))
	settle := make([]float64, len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%.4f\t%.6f\t%.6f\t%.4f\t%d\n",
			r.ParamValue, r.PeakSpeed, r.KineticEnergy, r.MinSeparation, r.SettlingFrame)
		settle[i] = float64(r.SettlingFrame)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(settle) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(settle,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("settling frame vs "+sweepParam),
		))
	}
	return nil
}

func monteCarloCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "mount the scene with many seeds and check stability",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	sceneFlags(cmd)
	cmd.Flags().IntVar(&trials, "trials", 20, "number of seeds")
	cmd.Flags().Float64Var(&stableTol, "tol", 0.1, "largest final rest deviation of a stable trial")
	return cmd
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
		Base:      base,
		NumTrials: trials,
		SeedStart: base.Seed,
		Tolerance: stableTol,
	}, registry, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSEED\tPEAK_SPEED\tREST_DEV\tMIN_SEP\tSTABLE")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%.6f\t%.6f\t%.4f\t%v\n",
			r.TrialID, r.Seed, r.Metrics["peak_speed"], r.Metrics["rest_deviation"], r.Metrics["min_separation"], r.Stable)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("\nstable: %d, unstable: %d\n", stable, unstable)
	return nil
}

func scenarioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "play a scripted sequence of pointer phases",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	cmd.Flags().BoolVar(&saveRun, "save", false, "store the recorded frames as a run")
	return cmd
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	out, err := automation.RunScenario(cmd.Context(), sc, registry, log)
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", out.Name)
	if sc.Description != "" {
		fmt.Printf("%s\n", sc.Description)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tSTART\tFRAMES\tPEAK_SPEED\tKINETIC\tREST_DEV")
	for _, p := range out.Phases {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.6f\t%.6f\t%.6f\n",
			p.Name, p.StartFrame, p.Frames, p.Metrics["peak_speed"], p.Metrics["kinetic_energy"], p.Metrics["rest_deviation"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !saveRun {
		return nil
	}
	cfg, err := sc.Config()
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	if last := out.Phases[len(out.Phases)-1]; len(last.Metrics) > 0 {
		out.Result.Metrics = last.Metrics
	}
	runID, err := st.Save(storage.Run{
		Preset:  cfg.Preset,
		Gesture: "scenario:" + sc.Name,
		Seed:    cfg.Seed,
		FPS:     cfg.FPS,
		Cluster: cfg.Cluster,
	}, out.Result)
	if err != nil {
		return err
	}
	fmt.Printf("\nrun id: %s\n", runID)
	return nil
}

func tuneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search tunables minimising a metric",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	sceneFlags(cmd)
	cmd.Flags().StringArrayVar(&grid, "grid", nil, "name=lo:hi:n (repeatable)")
	cmd.Flags().StringVar(&metricName, "metric", "rest_deviation", "metric to minimise: "+strings.Join(registry.ListMetrics(), ", "))
	return cmd
}

func parseGrid(specs []string) ([]string, [][]float64, error) {
	if len(specs) == 0 {
		return nil, nil, fmt.Errorf("at least one --grid is required")
	}
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, rest, ok := strings.Cut(spec, "=")
		parts := strings.Split(rest, ":")
		if !ok || len(parts) != 3 {
			return nil, nil, fmt.Errorf("--grid %q: expected name=lo:hi:n", spec)
		}
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return nil, nil, fmt.Errorf("--grid %q: expected name=lo:hi:n", spec)
		}
		names = append(names, name)
		ranges = append(ranges, optim.Linspace(lo, hi, n))
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}

	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := *base
		for name, v := range params {
			if err := cfg.Cluster.SetParam(name, v); err != nil {
				return nil, err
			}
		}
		exp := experiment.New(&cfg, registry, nil)
		if err := exp.Setup(registry.DefaultMetrics()); err != nil {
			return nil, err
		}
		return exp, nil
	}

	best, value, evals, err := optim.NewGridSearch(names, ranges).Search(cmd.Context(), build, metricName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(metricName))
	for _, ev := range evals {
		cols := make([]string, len(names))
		for i, name := range names {
			cols[i] = strconv.FormatFloat(ev.Params[name], 'f', 4, 64)
		}
		val := strconv.FormatFloat(ev.Value, 'f', 6, 64)
		if ev.Err != nil {
			val = "error: " + ev.Err.Error()
		} else if math.IsNaN(ev.Value) {
			val = "n/a"
		}
		fmt.Fprintf(w, "%s\t%s\n", strings.Join(cols, "\t"), val)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nbest %s = %.6f with", metricName, value)
	for _, name := range names {
		fmt.Printf(" %s=%.4f", name, best[name])
	}
	fmt.Println()
	return nil
}
