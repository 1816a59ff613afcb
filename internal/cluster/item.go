package cluster

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Item is one simulated icon. The kinematic fields are mutated every frame;
// the rest slot, phase and icon are fixed at construction.
type Item struct {
	Position        mgl64.Vec3
	Velocity        mgl64.Vec3
	Rotation        mgl64.Vec3
	AngularVelocity mgl64.Vec3

	restPosition mgl64.Vec3
	restRotation mgl64.Vec3
	phase        float64
	icon         int
}

// NewItem returns an item resting in its slot.
func NewItem(rest, restRotation mgl64.Vec3, phase float64, icon int) Item {
	return Item{
		Position:     rest,
		Rotation:     restRotation,
		restPosition: rest,
		restRotation: restRotation,
		phase:        phase,
		icon:         icon,
	}
}

func (it *Item) RestPosition() mgl64.Vec3 { return it.restPosition }
func (it *Item) RestRotation() mgl64.Vec3 { return it.restRotation }
func (it *Item) Phase() float64           { return it.phase }
func (it *Item) Icon() int                { return it.icon }

// IdleTarget is the rest slot displaced by the idle bob at elapsed seconds.
func (it *Item) IdleTarget(cfg Config, elapsed float64) mgl64.Vec3 {
	bob := math.Sin(elapsed*cfg.IdleFrequency+it.phase) * cfg.IdleAmplitude
	return it.restPosition.Add(mgl64.Vec3{0, bob, 0})
}

func (it *Item) finite() bool {
	for _, v := range [...]mgl64.Vec3{it.Position, it.Velocity, it.Rotation, it.AngularVelocity} {
		for _, c := range v {
			if !finite(c) {
				return false
			}
		}
	}
	return true
}

func (it *Item) settle() {
	it.Position = it.restPosition
	it.Rotation = it.restRotation
	it.Velocity = mgl64.Vec3{}
	it.AngularVelocity = mgl64.Vec3{}
}
