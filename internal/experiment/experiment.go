package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/config"
	"github.com/san-kum/magnetsim/internal/logging"
	"github.com/san-kum/magnetsim/internal/sim"
)

// Experiment is one configured run: a cluster mounted from a run file,
// driven by the file's gesture.
type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	simulator *sim.Simulator
	log       *zap.Logger
}

func New(cfg *config.Config, registry *Registry, log *zap.Logger) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: registry,
		log:      logging.OrNop(log),
	}
}

// Setup validates the configuration, mounts the cluster from the run seed
// and attaches the metrics.
func (e *Experiment) Setup(metrics []sim.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	s, err := e.build(e.cfg.Seed)
	if err != nil {
		return err
	}
	for _, m := range metrics {
		s.AddMetric(m)
	}
	e.simulator = s
	return nil
}

func (e *Experiment) build(seed int64) (*sim.Simulator, error) {
	driver, err := e.registry.GetGesture(e.cfg.Gesture, e.cfg.Frames())
	if err != nil {
		return nil, err
	}
	st, err := cluster.Initialize(e.cfg.Cluster.Count, e.cfg.Cluster, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	s := sim.New(st, driver)
	s.SetLogger(e.log)
	return s, nil
}

// Factory builds one simulator per seed with a fresh set of the default
// metrics, for ensembles.
func (e *Experiment) Factory() sim.Factory {
	return func(seed int64) (*sim.Simulator, error) {
		s, err := e.build(seed)
		if err != nil {
			return nil, err
		}
		for _, m := range e.registry.DefaultMetrics() {
			s.AddMetric(m)
		}
		return s, nil
	}
}

// SimConfig is the driver configuration of the run file.
func (e *Experiment) SimConfig(record bool) sim.Config {
	return sim.Config{FPS: e.cfg.FPS, Frames: e.cfg.Frames(), Record: record}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	e.log.Info("experiment started",
		zap.String("preset", e.cfg.Preset),
		zap.String("gesture", e.cfg.Gesture),
		zap.Int64("seed", e.cfg.Seed),
		zap.Int("items", e.cfg.Cluster.Count))
	return e.simulator.Run(ctx, e.SimConfig(true))
}

func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }
func (e *Experiment) Config() *config.Config     { return e.cfg }
