package sim

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/magnetsim/internal/cluster"
)

var ErrInvalidRun = errors.New("sim: invalid run configuration")

// PointerDriver produces the pointer position for a frame. Positions are in
// the cluster's XY plane.
type PointerDriver interface {
	Position(frame int, t float64) mgl64.Vec2
}

type Metric interface {
	Name() string
	Observe(items []cluster.Item, cfg cluster.Config, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnFrame(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f Frame)

func (fn ObserverFunc) OnFrame(f Frame) { fn(f) }

// Frame is one simulated frame. Transforms is owned by whoever holds the
// frame; observers must copy it if they keep it past OnFrame.
type Frame struct {
	Index      int
	Time       float64
	Pointer    cluster.PointerState
	Transforms []cluster.Transform
}

type Config struct {
	FPS      float64
	Frames   int
	Duration float64
	Record   bool
}

// Steps resolves the frame count, preferring Frames over Duration.
func (c Config) Steps() int {
	if c.Frames > 0 {
		return c.Frames
	}
	return int(c.Duration*c.FPS + 0.5)
}

func (c Config) Dt() float64 { return 1 / c.FPS }

type Result struct {
	Frames     [][]cluster.Transform
	Pointers   []mgl64.Vec2
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
}

// Track returns the position of item i in every recorded frame.
func (r *Result) Track(i int) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, len(r.Frames))
	for _, f := range r.Frames {
		if i < len(f) {
			out = append(out, f[i].Position)
		}
	}
	return out
}
