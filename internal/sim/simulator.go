package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/logging"
)

// Simulator drives one cluster frame by frame. It owns the cluster state and
// the pointer latch; it is not safe for concurrent use, except that the
// pointer returned by Pointer may be sampled from any goroutine.
type Simulator struct {
	state     *cluster.State
	driver    PointerDriver
	pointer   *cluster.Pointer
	metrics   []Metric
	observers []Observer
	log       *zap.Logger
}

// New returns a simulator for st. A nil driver leaves the pointer to
// external Sample calls.
func New(st *cluster.State, driver PointerDriver) *Simulator {
	start := mgl64.Vec2{}
	if driver != nil {
		start = driver.Position(0, 0)
	}
	return &Simulator{
		state:     st,
		driver:    driver,
		pointer:   cluster.NewPointer(start),
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       zap.NewNop(),
	}
}

func (s *Simulator) AddMetric(m Metric)         { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)     { s.observers = append(s.observers, o) }
func (s *Simulator) SetLogger(l *zap.Logger)    { s.log = logging.OrNop(l) }
func (s *Simulator) State() *cluster.State      { return s.state }
func (s *Simulator) Pointer() *cluster.Pointer  { return s.pointer }
func (s *Simulator) SetDriver(d PointerDriver)  { s.driver = d }
func (s *Simulator) SetState(st *cluster.State) { s.state = st }

// Advance steps the cluster once and writes the resulting transforms into
// buf. It is the unit both Run and Pipeline are built on.
func (s *Simulator) Advance(frame int, dt float64, buf []cluster.Transform) Frame {
	t := float64(frame) * dt
	if s.driver != nil {
		s.pointer.Sample(s.driver.Position(frame, t))
	}
	p := s.pointer.Latch()
	s.state.Step(dt, t, p)

	return Frame{
		Index:      frame,
		Time:       t,
		Pointer:    p,
		Transforms: s.state.Snapshot(buf),
	}
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	dt := cfg.Dt()
	result := &Result{
		Times:   make([]float64, 0, steps),
		Metrics: make(map[string]float64),
	}
	if cfg.Record {
		result.Frames = make([][]cluster.Transform, 0, steps+1)
		result.Pointers = make([]mgl64.Vec2, 0, steps+1)
		result.Frames = append(result.Frames, s.state.Snapshot(nil))
		result.Pointers = append(result.Pointers, s.pointer.Position())
		result.Times = append(result.Times, 0)
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	s.log.Debug("run started",
		zap.Int("items", s.state.Len()),
		zap.Int("frames", steps),
		zap.Float64("fps", cfg.FPS),
		zap.String("integration", string(s.state.Config().Integration)))

	var scratch []cluster.Transform
	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			s.log.Debug("run cancelled", zap.Int("frame", i))
			return result, ctx.Err()
		default:
		}

		var buf []cluster.Transform
		if !cfg.Record {
			buf = scratch
		}
		f := s.Advance(i, dt, buf)
		scratch = f.Transforms

		for _, m := range s.metrics {
			m.Observe(s.state.Items(), s.state.Config(), f.Time)
		}
		for _, obs := range s.observers {
			obs.OnFrame(f)
		}

		result.StepsTaken++
		if cfg.Record {
			result.Frames = append(result.Frames, f.Transforms)
			result.Pointers = append(result.Pointers, f.Pointer.Current)
			result.Times = append(result.Times, f.Time)
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	s.log.Debug("run finished", zap.Int("steps", result.StepsTaken))

	return result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if math.IsNaN(cfg.FPS) || math.IsInf(cfg.FPS, 0) || cfg.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %f", ErrInvalidRun, cfg.FPS)
	}
	if cfg.Frames < 0 {
		return fmt.Errorf("%w: frames must not be negative, got %d", ErrInvalidRun, cfg.Frames)
	}
	if cfg.Frames == 0 && (math.IsNaN(cfg.Duration) || cfg.Duration <= 0) {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidRun, cfg.Duration)
	}
	if s.state == nil {
		return fmt.Errorf("%w: no cluster", ErrInvalidRun)
	}
	return nil
}
