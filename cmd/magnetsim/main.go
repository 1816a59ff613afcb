package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/config"
	"github.com/san-kum/magnetsim/internal/experiment"
	"github.com/san-kum/magnetsim/internal/logging"
	"github.com/san-kum/magnetsim/internal/scenegraph"
)

var (
	env      config.Env
	log      *zap.Logger
	registry = experiment.NewRegistry()

	dataDir    string
	logLevel   string
	devLog     bool
	configFile string
	preset     string
	seed       int64
	fps        float64
	duration   float64
	gestureArg string
	integArg   string
	rotation   string
	count      int
	overrides  []string
	assetsFile string
)

func main() {
	env = config.LoadEnv()

	rootCmd := &cobra.Command{
		Use:           "magnetsim",
		Short:         "spring-damped icon cluster simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("log-level") {
				logLevel = env.LogLevel
			}
			l, err := logging.New(logLevel, devLog)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev", false, "human readable logs")

	rootCmd.AddCommand(
		runCommand(),
		listCommand(),
		plotCommand(),
		analyzeCommand(),
		exportCommand(),
		exportCSVCommand(),
		exportJSONCommand(),
		exportSVGCommand(),
		liveCommand(),
		serveCommand(),
		presetsCommand(),
		benchCommand(),
		compareCommand(),
		sweepCommand(),
		monteCarloCommand(),
		scenarioCommand(),
		tuneCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// sceneFlags registers the flags every command that mounts a cluster
// shares.
func sceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "run file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "default", "preset: "+strings.Join(config.ListPresets(), ", "))
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().Float64Var(&fps, "fps", config.DefaultFPS, "frames per second")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration in seconds")
	cmd.Flags().StringVar(&gestureArg, "gesture", config.DefaultGesture, "pointer gesture: "+strings.Join(registry.ListGestures(), ", "))
	cmd.Flags().StringVar(&integArg, "integration", "", "integration mode: "+strings.Join(registry.ListIntegrations(), ", "))
	cmd.Flags().StringVar(&rotation, "rotation", "", "rotation mode: "+strings.Join(registry.ListRotations(), ", "))
	cmd.Flags().IntVar(&count, "count", env.Items, "number of items")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a tunable, name=value (repeatable)")
	cmd.Flags().StringVar(&assetsFile, "assets", "", "icon asset manifest; its icon count replaces icon_count")
}

// resolveConfig builds the run configuration: the preset, then the run
// file, then any flag the user set explicitly. An explicit --preset is the
// base under the run file; otherwise the file's own preset is.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	var (
		cfg *config.Config
		err error
	)
	if configFile == "" || flags.Changed("preset") {
		if cfg, err = config.GetPreset(preset); err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, config.ListPresets())
		}
	}
	if configFile != "" {
		if cfg, err = config.LoadOver(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("gesture") {
		cfg.Gesture = gestureArg
	}
	switch {
	case flags.Changed("count"):
		cfg.Cluster.Count = count
	case env.ItemsSet && configFile == "":
		cfg.Cluster.Count = env.Items
	}
	if integArg != "" {
		mode, err := registry.GetIntegration(integArg)
		if err != nil {
			return nil, err
		}
		cfg.Cluster.Integration = mode
	}
	if rotation != "" {
		mode, err := registry.GetRotation(rotation)
		if err != nil {
			return nil, err
		}
		cfg.Cluster.RotationMode = mode
	}
	if err := applyOverrides(&cfg.Cluster, overrides); err != nil {
		return nil, err
	}

	if assetsFile != "" {
		icons, err := scenegraph.IconCount(assetsFile)
		if err != nil {
			return nil, fmt.Errorf("assets: %w", err)
		}
		cfg.Cluster.IconCount = icons
		log.Debug("icon assets loaded", zap.String("manifest", assetsFile), zap.Int("icons", icons))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(c *cluster.Config, sets []string) error {
	for _, kv := range sets {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("--set %q: expected name=value", kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("--set %q: %w", kv, err)
		}
		if err := c.SetParam(strings.TrimSpace(name), v); err != nil {
			return err
		}
	}
	return nil
}
