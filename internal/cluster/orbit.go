package cluster

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Orbit is one tilted circular path. Angles are in radians.
type Orbit struct {
	TiltX  float64 `yaml:"tilt_x"`
	TiltZ  float64 `yaml:"tilt_z"`
	Speed  float64 `yaml:"speed"`
	Radius float64 `yaml:"radius"`
	Phase  float64 `yaml:"phase"`
}

func DefaultOrbits() []Orbit {
	return []Orbit{
		{TiltX: mgl64.DegToRad(45), TiltZ: mgl64.DegToRad(20), Speed: 1.1, Radius: 2.5, Phase: 0},
		{TiltX: mgl64.DegToRad(-45), TiltZ: mgl64.DegToRad(-20), Speed: 1.0, Radius: 2.6, Phase: math.Pi * 0.7},
		{TiltX: mgl64.DegToRad(20), TiltZ: mgl64.DegToRad(-60), Speed: 1.2, Radius: 2.4, Phase: math.Pi * 1.4},
		{TiltX: mgl64.DegToRad(-20), TiltZ: mgl64.DegToRad(60), Speed: 0.9, Radius: 2.7, Phase: math.Pi * 0.3},
	}
}

// OrbitRing spins icons along their orbits. Scroll kicks raise an
// intensity that decays every frame; hovering adds a constant 1. Angular
// speed is Speed*(BaseGain + intensity*AccelGain).
type OrbitRing struct {
	Orbits       []Orbit
	BaseGain     float64
	AccelGain    float64
	KickGain     float64
	MaxIntensity float64
	Decay        float64

	intensity float64
	hovered   bool
	angles    []float64
}

func NewOrbitRing(orbits []Orbit) *OrbitRing {
	return &OrbitRing{
		Orbits:       orbits,
		BaseGain:     0.3,
		AccelGain:    1.5,
		KickGain:     0.05,
		MaxIntensity: 4,
		Decay:        0.05,
		angles:       make([]float64, len(orbits)),
	}
}

// Kick replaces the decaying intensity with one proportional to a scroll
// distance, capped at MaxIntensity.
func (r *OrbitRing) Kick(delta float64) {
	if math.IsNaN(delta) {
		return
	}
	r.intensity = math.Min(math.Abs(delta)*r.KickGain, r.MaxIntensity)
}

func (r *OrbitRing) SetHovered(h bool) { r.hovered = h }

// Intensity is the decaying kick plus the hover contribution.
func (r *OrbitRing) Intensity() float64 {
	if r.hovered {
		return r.intensity + 1
	}
	return r.intensity
}

// Angle is the accumulated spin of orbit i, not including its phase.
func (r *OrbitRing) Angle(i int) float64 { return r.angles[i] }

// Advance decays the kick once and spins every orbit by dt seconds.
func (r *OrbitRing) Advance(dt float64) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}
	r.intensity -= r.intensity * r.Decay
	total := r.Intensity()
	for i, o := range r.Orbits {
		r.angles[i] -= o.Speed * (r.BaseGain + total*r.AccelGain) * dt
	}
}

// Transforms places one icon per orbit, reusing dst when it is large
// enough. Icon i sits Radius along x, spun about the orbit's y axis by its
// angle plus phase, then tilted about x and z.
func (r *OrbitRing) Transforms(dst []Transform) []Transform {
	if cap(dst) < len(r.Orbits) {
		dst = make([]Transform, len(r.Orbits))
	}
	dst = dst[:len(r.Orbits)]

	up := mgl64.Vec3{0, 1, 0}
	facing := mgl64.QuatRotate(-math.Pi/2, up)
	for i, o := range r.Orbits {
		tilt := mgl64.QuatRotate(o.TiltX, mgl64.Vec3{1, 0, 0}).Mul(mgl64.QuatRotate(o.TiltZ, mgl64.Vec3{0, 0, 1}))
		spin := tilt.Mul(mgl64.QuatRotate(r.angles[i]+o.Phase, up))
		dst[i] = Transform{
			Position:    spin.Rotate(mgl64.Vec3{o.Radius, 0, 0}),
			Orientation: spin.Mul(facing),
			Icon:        i,
		}
	}
	return dst
}
