package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/magnetsim/internal/analysis"
	"github.com/san-kum/magnetsim/internal/automation"
	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/config"
	"github.com/san-kum/magnetsim/internal/experiment"
	"github.com/san-kum/magnetsim/internal/export"
	"github.com/san-kum/magnetsim/internal/sim"
	"github.com/san-kum/magnetsim/internal/storage"
)

var (
	item      int
	phaseAxis int
	specAxis  int
	svgAxis   int
	tolerance float64
	outFile   string
	svgKind   string
	svgFrame  int
	svgSize   int
)

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	sceneFlags(cmd)
	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, registry, log)
	if err := exp.Setup(registry.DefaultMetrics()); err != nil {
		return err
	}

	fmt.Printf("running %s with %d items (%s)...\n", cfg.Preset, cfg.Cluster.Count, cfg.Gesture)
	start := time.Now()
	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(storage.Run{
		Preset:  cfg.Preset,
		Gesture: cfg.Gesture,
		Seed:    cfg.Seed,
		FPS:     cfg.FPS,
		Cluster: cfg.Cluster,
	}, result)
	if err != nil {
		return err
	}
	log.Info("run stored", zap.String("id", runID), zap.Duration("elapsed", elapsed))

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("frames: %d\n", result.StepsTaken)
	printMetrics(result.Metrics)
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tGESTURE\tTIME\tFRAMES\tITEMS\tFPS\tINTEG")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.0f\t%s\n",
			run.ID,
			run.Preset,
			run.Gesture,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Items,
			run.FPS,
			run.Integration,
		)
	}
	return w.Flush()
}

// loadRun returns a stored run's metadata and frames.
func loadRun(runID string) (*storage.RunMetadata, *sim.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	result, err := st.LoadResult(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(result.Frames) == 0 {
		return nil, nil, fmt.Errorf("run %s has no frames", runID)
	}
	return meta, result, nil
}

// clusterConfig rebuilds the tuning a run was recorded with.
func clusterConfig(meta *storage.RunMetadata) (cluster.Config, error) {
	cfg := cluster.DefaultConfig()
	cfg.Count = meta.Items
	cfg.Integration = cluster.IntegrationMode(meta.Integration)
	cfg.RotationMode = cluster.RotationMode(meta.Rotation)
	if preset, err := config.GetPreset(meta.Preset); err == nil {
		cfg.Bounds = preset.Cluster.Bounds
		cfg.IconCount = preset.Cluster.IconCount
		cfg.FlyIn = preset.Cluster.FlyIn
	}
	for name, v := range meta.Params {
		if err := cfg.SetParam(name, v); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

func checkItem(result *sim.Result) error {
	if item < 0 || item >= len(result.Frames[0]) {
		return fmt.Errorf("item %d out of range (run has %d items)", item, len(result.Frames[0]))
	}
	return nil
}

func plotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot an item's trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	cmd.Flags().IntVar(&item, "item", 0, "item index")
	cmd.Flags().IntVar(&phaseAxis, "phase", -1, "also draw the phase portrait of this axis (0 x, 1 y, 2 z)")
	return cmd
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if err := checkItem(result); err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s, gesture: %s\n", meta.Preset, meta.Gesture)
	fmt.Printf("frames: %d\n\n", len(result.Frames))

	track := result.Track(item)
	for i, name := range []string{"x", "y", "z"} {
		graph := asciigraph.Plot(analysis.Axis(track, i),
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("item %d %s", item, name)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	graph := asciigraph.Plot(automation.MaxSpeeds(result),
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("fastest item speed per frame"),
	)
	fmt.Println(graph)

	if phaseAxis >= 0 {
		portrait := analysis.NewPhasePortrait(track, phaseAxis)
		if portrait == nil {
			return fmt.Errorf("no phase portrait for axis %d", phaseAxis)
		}
		fmt.Printf("\nphase portrait, axis %d:\n", phaseAxis)
		fmt.Println(analysis.PhasePortraitToASCII(portrait, 70, 20))
	}
	return nil
}

func analyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency, settling and divergence analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	cmd.Flags().IntVar(&item, "item", 0, "item index")
	cmd.Flags().IntVar(&specAxis, "axis", 2, "axis for the spectrum (0 x, 1 y, 2 z)")
	cmd.Flags().Float64Var(&tolerance, "tol", 1e-3, "settling speed tolerance per frame")
	return cmd
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if err := checkItem(result); err != nil {
		return err
	}
	if specAxis < 0 || specAxis > 2 {
		return fmt.Errorf("axis must be 0, 1 or 2")
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("preset: %s, %d items at %.0f fps\n\n", meta.Preset, meta.Items, meta.FPS)

	series := analysis.Axis(result.Track(item), specAxis)
	ps := analysis.PowerSpectrum(series)
	if len(ps) >= 8 {
		graph := asciigraph.Plot(ps[1:len(ps)/4],
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum (item %d, axis %d)", item, specAxis)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	freq := analysis.DominantFrequency(series, 1/meta.FPS)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1/freq)
	}

	settle := analysis.SettlingFrame(automation.MaxSpeeds(result), tolerance)
	if settle < 0 {
		fmt.Println("settling: never")
	} else {
		fmt.Printf("settling: frame %d (%.2f s)\n", settle, float64(settle)/meta.FPS)
	}

	cfg, err := clusterConfig(meta)
	if err != nil {
		return err
	}
	driver, err := registry.GetGesture(meta.Gesture, meta.Frames)
	if err != nil {
		return err
	}
	st, err := cluster.Initialize(cfg.Count, cfg, rand.New(rand.NewSource(meta.Seed)))
	if err != nil {
		return err
	}
	lambda, err := analysis.Divergence(st.Items(), cfg, meta.Seed, driver, 1e-6, meta.FPS, meta.Frames)
	if err != nil {
		return err
	}
	fmt.Printf("divergence rate: %.4f /s\n", lambda)
	if lambda < 0 {
		fmt.Println("perturbations decay")
	}
	return nil
}

func exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := storage.New(dataDir).Load(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}
}

func exportCSVCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export item positions per frame to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, result, err := loadRun(args[0])
			if err != nil {
				return err
			}
			return storage.WriteTrackCSV(os.Stdout, result)
		},
	}
}

func exportJSONCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, result, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if outFile == "" {
				return storage.WriteJSON(os.Stdout, *meta, result)
			}
			return storage.ExportJSON(outFile, *meta, result)
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	return cmd
}

func exportSVGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a run to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run_id>.svg)")
	cmd.Flags().StringVar(&svgKind, "kind", "tracks", "tracks, frame or phase")
	cmd.Flags().IntVar(&svgFrame, "frame", -1, "frame to draw for --kind frame (default last)")
	cmd.Flags().IntVar(&svgSize, "size", 600, "image size in pixels")
	cmd.Flags().IntVar(&item, "item", 0, "item for --kind phase")
	cmd.Flags().IntVar(&svgAxis, "axis", 0, "axis for --kind phase")
	return cmd
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	var svg string
	switch svgKind {
	case "tracks":
		svg = export.TracksToSVG(result, svgSize, svgSize)
	case "frame":
		n := svgFrame
		if n < 0 {
			n = len(result.Frames) - 1
		}
		if n >= len(result.Frames) || n >= len(result.Pointers) {
			return fmt.Errorf("frame %d out of range", n)
		}
		cfg, err := clusterConfig(meta)
		if err != nil {
			return err
		}
		svg = export.FrameToSVG(result.Frames[n], result.Pointers[n], cfg, svgSize)
	case "phase":
		if err := checkItem(result); err != nil {
			return err
		}
		portrait := analysis.NewPhasePortrait(result.Track(item), svgAxis)
		if portrait == nil {
			return fmt.Errorf("no phase portrait for axis %d", svgAxis)
		}
		svg = export.TrajectoryToSVG(portrait.Points, svgSize, svgSize, "#00ffff")
	default:
		return fmt.Errorf("unknown svg kind %q", svgKind)
	}
	if svg == "" {
		return fmt.Errorf("not enough frames to draw")
	}

	path := outFile
	if path == "" {
		path = meta.ID + ".svg"
	}
	if err := export.WriteFile(path, svg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tGESTURE\tITEMS\tSTIFFNESS\tDAMPING\tMAX_V\tFLY_IN")
			for _, name := range registry.ListPresets() {
				cfg, err := registry.GetPreset(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%.3f\t%.2f\t%.2f\t%v\n",
					name,
					cfg.Gesture,
					cfg.Cluster.Count,
					cfg.Cluster.SpringStiffness,
					cfg.Cluster.LinearDamping,
					cfg.Cluster.MaxVelocity,
					cfg.Cluster.FlyIn,
				)
			}
			return w.Flush()
		},
	}
}

// runQuiet runs cfg with the default metrics and no logging.
func runQuiet(ctx context.Context, cfg *config.Config) (*sim.Result, error) {
	exp := experiment.New(cfg, registry, nil)
	if err := exp.Setup(registry.DefaultMetrics()); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}
