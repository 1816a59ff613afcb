package cluster

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// GroupMotion moves the whole cluster: a parallax tilt that lags behind
// the pointer and a slow vertical bob.
type GroupMotion struct {
	TiltGain     float64
	Follow       float64
	BobAmplitude float64
	BobFrequency float64

	tilt mgl64.Vec2
}

func NewGroupMotion() *GroupMotion {
	return &GroupMotion{
		TiltGain:     0.15,
		Follow:       0.05,
		BobAmplitude: 0.1,
		BobFrequency: 0.5,
	}
}

// Update eases the tilt toward the pointer. pointer is in normalized
// device coordinates, [-1, 1] on both axes.
func (g *GroupMotion) Update(pointer mgl64.Vec2) {
	target := mgl64.Vec2{-pointer[1] * g.TiltGain, pointer[0] * g.TiltGain}
	g.tilt = g.tilt.Add(target.Sub(g.tilt).Mul(g.Follow))
}

func (g *GroupMotion) Tilt() mgl64.Vec2 { return g.tilt }

// Apply rotates and lifts transforms in place.
func (g *GroupMotion) Apply(ts []Transform, t float64) {
	q := mgl64.AnglesToQuat(g.tilt[0], g.tilt[1], 0, mgl64.XYZ)
	lift := mgl64.Vec3{0, math.Sin(t*g.BobFrequency) * g.BobAmplitude, 0}
	for i := range ts {
		ts[i].Position = q.Rotate(ts[i].Position).Add(lift)
		ts[i].Orientation = q.Mul(ts[i].Orientation)
	}
}
