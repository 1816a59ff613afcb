package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/magnetsim/internal/analysis"
	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/config"
	"github.com/san-kum/magnetsim/internal/experiment"
	"github.com/san-kum/magnetsim/internal/gesture"
	"github.com/san-kum/magnetsim/internal/logging"
	"github.com/san-kum/magnetsim/internal/sim"
)

var ErrInvalidScenario = errors.New("automation: invalid scenario")

// Scenario scripts one mounted cluster through a sequence of pointer
// phases. The cluster is never remounted between phases.
type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Preset      string             `yaml:"preset"`
	Seed        int64              `yaml:"seed"`
	FPS         float64            `yaml:"fps"`
	Params      map[string]float64 `yaml:"params"`
	Phases      []Phase            `yaml:"phases"`
}

// Phase drives the pointer for Duration seconds, either with a named
// gesture or with keyframes counted from the start of the phase.
type Phase struct {
	Name        string             `yaml:"name"`
	Gesture     string             `yaml:"gesture"`
	Keyframes   []gesture.Keyframe `yaml:"keyframes"`
	Duration    float64            `yaml:"duration"`
	Integration string             `yaml:"integration"`
}

type PhaseResult struct {
	Name       string
	StartFrame int
	Frames     int
	Metrics    map[string]float64
}

type ScenarioResult struct {
	Name   string
	Phases []PhaseResult
	Result *sim.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}

	return &scenario, nil
}

// Config resolves the scenario's preset, seed, frame rate and parameter
// overrides into a validated run configuration.
func (sc *Scenario) Config() (*config.Config, error) {
	preset := sc.Preset
	if preset == "" {
		preset = "default"
	}
	cfg, err := config.GetPreset(preset)
	if err != nil {
		return nil, err
	}
	cfg.Seed = sc.Seed
	if sc.FPS > 0 {
		cfg.FPS = sc.FPS
	}
	for k, v := range sc.Params {
		if err := cfg.Cluster.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// shifted restarts a driver's clock at the first frame of a phase.
type shifted struct {
	driver sim.PointerDriver
	frame  int
	t      float64
}

func (s shifted) Position(frame int, t float64) mgl64.Vec2 {
	return s.driver.Position(frame-s.frame, t-s.t)
}

func phaseDriver(p Phase, frames int, registry *experiment.Registry) (sim.PointerDriver, error) {
	if len(p.Keyframes) > 0 {
		return gesture.NewKeyframes(p.Keyframes...), nil
	}
	name := p.Gesture
	if name == "" {
		name = "still"
	}
	return registry.GetGesture(name, frames)
}

// RunScenario plays every phase in order on one cluster and records all
// frames. Metrics are reported per phase.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, log *zap.Logger) (*ScenarioResult, error) {
	log = logging.OrNop(log)
	if len(scenario.Phases) == 0 {
		return nil, fmt.Errorf("%w: %s has no phases", ErrInvalidScenario, scenario.Name)
	}

	cfg, err := scenario.Config()
	if err != nil {
		return nil, err
	}
	st, err := cluster.Initialize(cfg.Cluster.Count, cfg.Cluster, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return nil, err
	}
	s := sim.New(st, nil)
	s.SetLogger(log)

	dt := 1 / cfg.FPS
	out := &ScenarioResult{
		Name:   scenario.Name,
		Phases: make([]PhaseResult, 0, len(scenario.Phases)),
		Result: &sim.Result{
			Frames:   [][]cluster.Transform{st.Snapshot(nil)},
			Pointers: []mgl64.Vec2{s.Pointer().Position()},
			Times:    []float64{0},
			Metrics:  make(map[string]float64),
		},
	}

	frame := 0
	for i, phase := range scenario.Phases {
		if phase.Duration <= 0 || math.IsNaN(phase.Duration) {
			return out, fmt.Errorf("%w: phase %d duration must be positive", ErrInvalidScenario, i+1)
		}
		n := int(phase.Duration*cfg.FPS + 0.5)

		driver, err := phaseDriver(phase, n, registry)
		if err != nil {
			return out, fmt.Errorf("phase %d: %w", i+1, err)
		}
		if phase.Integration != "" {
			mode, err := registry.GetIntegration(phase.Integration)
			if err != nil {
				return out, fmt.Errorf("phase %d: %w", i+1, err)
			}
			st.SetIntegration(mode)
		}
		s.SetDriver(shifted{driver: driver, frame: frame, t: float64(frame) * dt})

		metrics := registry.DefaultMetrics()
		pr := PhaseResult{Name: phase.Name, StartFrame: frame, Frames: n, Metrics: make(map[string]float64)}
		log.Info("scenario phase",
			zap.String("scenario", scenario.Name),
			zap.Int("phase", i+1),
			zap.String("name", phase.Name),
			zap.Int("frames", n))

		for k := 0; k < n; k++ {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			frame++
			f := s.Advance(frame, dt, nil)
			for _, m := range metrics {
				m.Observe(st.Items(), st.Config(), f.Time)
			}
			out.Result.Frames = append(out.Result.Frames, f.Transforms)
			out.Result.Pointers = append(out.Result.Pointers, f.Pointer.Current)
			out.Result.Times = append(out.Result.Times, f.Time)
			out.Result.StepsTaken++
		}

		for _, m := range metrics {
			pr.Metrics[m.Name()] = m.Value()
		}
		out.Phases = append(out.Phases, pr)
	}

	return out, nil
}

// ParameterSweep runs the base configuration once per value of Param,
// evenly spaced over [Min, Max].
type ParameterSweep struct {
	Base      *config.Config
	Param     string
	Min, Max  float64
	NumSteps  int
	Tolerance float64
}

// SweepResult summarises one sweep point. SettlingFrame is the first frame
// after which no item moves faster than the sweep tolerance per frame, or
// -1 if the cluster never settles.
type SweepResult struct {
	ParamValue    float64
	PeakSpeed     float64
	KineticEnergy float64
	MinSeparation float64
	SettlingFrame int
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, log *zap.Logger) ([]SweepResult, error) {
	log = logging.OrNop(log)
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("%w: sweep needs at least 2 steps, got %d", ErrInvalidScenario, sweep.NumSteps)
	}
	tol := sweep.Tolerance
	if tol <= 0 {
		tol = 1e-3
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	paramStep := (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.Min + float64(i)*paramStep

		cfg := *sweep.Base
		if err := cfg.Cluster.SetParam(sweep.Param, paramVal); err != nil {
			return nil, err
		}

		exp := experiment.New(&cfg, registry, log)
		if err := exp.Setup(registry.DefaultMetrics()); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, paramVal, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		results = append(results, SweepResult{
			ParamValue:    paramVal,
			PeakSpeed:     result.Metrics["peak_speed"],
			KineticEnergy: result.Metrics["kinetic_energy"],
			MinSeparation: result.Metrics["min_separation"],
			SettlingFrame: analysis.SettlingFrame(MaxSpeeds(result), tol),
		})

		log.Info("sweep point",
			zap.Int("step", i+1),
			zap.Int("of", sweep.NumSteps),
			zap.String("param", sweep.Param),
			zap.Float64("value", paramVal))
	}

	return results, nil
}

// MaxSpeeds is the fastest item's per-frame displacement in every
// recorded frame.
func MaxSpeeds(result *sim.Result) []float64 {
	out := make([]float64, len(result.Frames))
	if len(result.Frames) == 0 {
		return out
	}
	for i := range result.Frames[0] {
		for k, v := range analysis.Speeds(result.Track(i)) {
			out[k] = math.Max(out[k], v)
		}
	}
	return out
}

// MonteCarloConfig mounts the base configuration with NumTrials
// consecutive seeds.
type MonteCarloConfig struct {
	Base      *config.Config
	NumTrials int
	SeedStart int64
	// Tolerance bounds the final rest deviation of a stable trial.
	Tolerance float64
}

type MonteCarloResult struct {
	TrialID int
	Seed    int64
	Metrics map[string]float64
	Stable  bool
}

// RunMonteCarlo runs the trials concurrently. A trial is stable when every
// metric is finite, no item exceeded the speed cap and the cluster ends
// within Tolerance of its idle targets.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry, log *zap.Logger) ([]MonteCarloResult, error) {
	log = logging.OrNop(log)
	if cfg.NumTrials <= 0 {
		return nil, fmt.Errorf("%w: need at least one trial", ErrInvalidScenario)
	}
	if err := cfg.Base.Validate(); err != nil {
		return nil, err
	}
	tol := cfg.Tolerance
	if tol <= 0 {
		tol = 0.1
	}

	exp := experiment.New(cfg.Base, registry, log)
	ens := sim.NewEnsemble(exp.Factory(), cfg.NumTrials, cfg.SeedStart)
	runs, err := ens.Run(ctx, exp.SimConfig(false))
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for trial, r := range runs {
		stable := r.Metrics["peak_speed"] <= cfg.Base.Cluster.MaxVelocity+1e-9 &&
			r.Metrics["rest_deviation"] <= tol
		for name, v := range r.Metrics {
			// min_separation stays +Inf for a single item.
			if math.IsNaN(v) || (math.IsInf(v, 0) && name != "min_separation") {
				stable = false
			}
		}
		results[trial] = MonteCarloResult{
			TrialID: trial,
			Seed:    cfg.SeedStart + int64(trial),
			Metrics: r.Metrics,
			Stable:  stable,
		}
	}

	stableCount, unstableCount := MonteCarloStats(results)
	log.Info("monte carlo finished",
		zap.Int("trials", cfg.NumTrials),
		zap.Int("stable", stableCount),
		zap.Int("unstable", unstableCount))

	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
