package sim

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/magnetsim/internal/logging"
)

// Pipeline runs a simulator on its own goroutine and hands every frame to a
// single consumer over a channel. Each Frame's Transforms buffer belongs to
// the receiver, which may return it with Release.
type Pipeline struct {
	sim    *Simulator
	cfg    Config
	pool   *FramePool
	buffer int
	paced  bool
	log    *zap.Logger
}

type PipelineOption func(*Pipeline)

// WithBuffer sets how many frames may queue before the simulation blocks.
func WithBuffer(n int) PipelineOption {
	return func(p *Pipeline) {
		if n >= 0 {
			p.buffer = n
		}
	}
}

// Unpaced runs frames back to back instead of on a wall-clock ticker.
func Unpaced() PipelineOption {
	return func(p *Pipeline) { p.paced = false }
}

func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = logging.OrNop(l) }
}

// NewPipeline wraps s. cfg.Frames or cfg.Duration bound the run; with both
// zero the pipeline runs until its context is cancelled.
func NewPipeline(s *Simulator, cfg Config, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		sim:    s,
		cfg:    cfg,
		pool:   NewFramePool(s.State().Len()),
		buffer: 4,
		paced:  true,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Release hands a frame buffer back for reuse.
func (p *Pipeline) Release(f Frame) {
	p.pool.Put(f.Transforms)
}

// Start launches the frame loop. The returned channel is closed when the
// run ends or ctx is cancelled.
func (p *Pipeline) Start(ctx context.Context) (<-chan Frame, error) {
	check := p.cfg
	if check.Frames == 0 && check.Duration == 0 {
		check.Frames = 1
	}
	if err := p.sim.validateConfig(check); err != nil {
		return nil, err
	}

	out := make(chan Frame, p.buffer)
	go p.loop(ctx, out)
	return out, nil
}

func (p *Pipeline) loop(ctx context.Context, out chan<- Frame) {
	defer close(out)

	steps := 0
	if p.cfg.Frames > 0 || p.cfg.Duration > 0 {
		steps = p.cfg.Steps()
	}
	dt := p.cfg.Dt()

	var tick <-chan time.Time
	if p.paced {
		ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
		tick = ticker.C
	}

	p.log.Info("pipeline started",
		zap.Float64("fps", p.cfg.FPS),
		zap.Int("frames", steps),
		zap.Bool("paced", p.paced))

	for i := 1; steps == 0 || i <= steps; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				p.log.Info("pipeline stopped", zap.Int("frame", i))
				return
			case <-tick:
			}
		} else if ctx.Err() != nil {
			p.log.Info("pipeline stopped", zap.Int("frame", i))
			return
		}

		f := p.sim.Advance(i, dt, p.pool.Get())
		for _, obs := range p.sim.observers {
			obs.OnFrame(f)
		}

		select {
		case out <- f:
		case <-ctx.Done():
			p.pool.Put(f.Transforms)
			p.log.Info("pipeline stopped", zap.Int("frame", i))
			return
		}
	}
	p.log.Info("pipeline finished", zap.Int("frames", steps))
}
