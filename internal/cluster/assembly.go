package cluster

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Assembly is the vertex-snapping entrance: positions are quantized to a
// grid whose resolution eases from Start to Final. Above Threshold the
// snapping is switched off.
type Assembly struct {
	Start     float64 `yaml:"start"`
	Final     float64 `yaml:"final"`
	Threshold float64 `yaml:"threshold"`
	Delay     float64 `yaml:"delay"`
	Duration  float64 `yaml:"duration"`
}

func DefaultAssembly() Assembly {
	return Assembly{
		Start:     80,
		Final:     2000,
		Threshold: 1000,
		Delay:     0.5,
		Duration:  1.8,
	}
}

// Resolution returns the grid resolution t seconds after mount.
func (a Assembly) Resolution(t float64) float64 {
	if t <= a.Delay {
		return a.Start
	}
	if a.Duration <= 0 || t >= a.Delay+a.Duration {
		return a.Final
	}
	u := (t - a.Delay) / a.Duration
	return a.Start + (a.Final-a.Start)*expoOut(u)
}

// Done reports whether snapping has stopped.
func (a Assembly) Done(t float64) bool {
	return a.Resolution(t) >= a.Threshold
}

// Apply snaps transform positions in place while the entrance runs.
func (a Assembly) Apply(ts []Transform, t float64) {
	res := a.Resolution(t)
	if res >= a.Threshold || res <= 0 {
		return
	}
	for i := range ts {
		ts[i].Position = Snap(ts[i].Position, res)
	}
}

// Snap quantizes v to a grid of 1/res.
func Snap(v mgl64.Vec3, res float64) mgl64.Vec3 {
	return mgl64.Vec3{
		math.Floor(v[0]*res) / res,
		math.Floor(v[1]*res) / res,
		math.Floor(v[2]*res) / res,
	}
}

func expoOut(u float64) float64 {
	if u >= 1 {
		return 1
	}
	return 1 - math.Pow(2, -10*u)
}
