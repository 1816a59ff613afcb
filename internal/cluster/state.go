package cluster

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// State owns the items of one mounted cluster together with the scratch
// buffers Step needs, so stepping allocates nothing.
type State struct {
	cfg   Config
	items []Item
	rng   *rand.Rand

	force []mgl64.Vec3
	spin  []mgl64.Vec3
}

// Initialize creates count items with randomized rest slots, rotations,
// phases and icons. A nil rng is seeded from the wall clock, so every mount
// of a scene looks different. count == 0 yields an empty cluster.
func Initialize(count int, cfg Config, rng *rand.Rand) (*State, error) {
	if count < 0 {
		return nil, &FieldError{"count", count, "must not be negative"}
	}
	cfg.Count = count
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	rests := sampleRestSlots(count, cfg, rng)
	items := make([]Item, count)
	for i := range items {
		tilt := mgl64.Vec3{cfg.RestTilt, cfg.RestTilt, cfg.RestTilt}
		restRot := uniformIn(rng, tilt)
		phase := rng.Float64() * 2 * math.Pi

		icon := i % cfg.IconCount
		if cfg.IconAssignment == IconsRandom {
			icon = rng.Intn(cfg.IconCount)
		}

		it := NewItem(rests[i], restRot, phase, icon)
		if cfg.FlyIn {
			it.Position = uniformIn(rng, cfg.Bounds.Mul(cfg.FlyInScale))
			it.Rotation = uniformIn(rng, mgl64.Vec3{math.Pi, math.Pi, math.Pi})
		}
		items[i] = it
	}

	return newState(cfg, items, rng), nil
}

// FromItems builds a cluster from explicit items, keeping their current
// kinematic state.
func FromItems(items []Item, cfg Config, rng *rand.Rand) (*State, error) {
	cfg.Count = len(items)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	own := make([]Item, len(items))
	copy(own, items)
	return newState(cfg, own, rng), nil
}

func newState(cfg Config, items []Item, rng *rand.Rand) *State {
	return &State{
		cfg:   cfg,
		items: items,
		rng:   rng,
		force: make([]mgl64.Vec3, len(items)),
		spin:  make([]mgl64.Vec3, len(items)),
	}
}

func (s *State) Config() Config { return s.cfg }
func (s *State) Len() int       { return len(s.items) }

// Items exposes the live items. The slice is owned by the state and is
// rewritten by the next Step.
func (s *State) Items() []Item { return s.items }

// SetIntegration switches the integration mode of a running cluster.
func (s *State) SetIntegration(mode IntegrationMode) {
	if mode == IntegrationFrame || mode == IntegrationScaled {
		s.cfg.Integration = mode
	}
}

// Step advances every item by one frame. dt is the frame duration and
// elapsed the seconds since mount; both in wall-clock seconds. Step never
// fails: non-finite inputs skip the frame and degenerate distances skip
// their force contribution.
func (s *State) Step(dt, elapsed float64, p PointerState) {
	if len(s.items) == 0 || !finite(dt) || !finite(elapsed) || dt < 0 {
		return
	}
	scale := 1.0
	if s.cfg.Integration == IntegrationScaled {
		if dt == 0 {
			return
		}
		scale = dt * s.cfg.ReferenceRate
	}
	if !finite(p.Current[0]) || !finite(p.Current[1]) || !finite(p.Velocity[0]) || !finite(p.Velocity[1]) {
		p = PointerState{}
	}

	s.accumulate(elapsed, p, scale)
	s.integrate(scale)
}

func (s *State) accumulate(elapsed float64, p PointerState, scale float64) {
	cfg := &s.cfg
	minDist := cfg.MinDistance()

	ptrVel := p.Velocity
	if scale != 1 {
		ptrVel = ptrVel.Mul(1 / scale)
	}
	speed := ptrVel.Len()
	active := speed > cfg.VelocityThreshold

	for i := range s.items {
		it := &s.items[i]

		force := it.IdleTarget(*cfg, elapsed).Sub(it.Position).Mul(cfg.SpringStiffness)
		var spin mgl64.Vec3

		if active {
			d := it.Position.Vec2().Sub(p.Current)
			dist := d.Len()
			if dist > epsilon && dist < cfg.MouseRadius {
				proximity := 1 - dist/cfg.MouseRadius
				proximity *= proximity
				dir := d.Mul(1 / dist)

				impulse := ptrVel.Mul(cfg.DragWeight).
					Add(dir.Mul(speed * cfg.PushWeight)).
					Mul(cfg.ImpulseFactor * proximity)
				jitter := (s.rng.Float64() - 0.5) * 2 * speed * proximity * cfg.ZJitter

				force = force.Add(mgl64.Vec3{impulse[0], impulse[1], jitter})
				spin[0] += impulse[1] * cfg.SpinCoupling
				spin[1] -= impulse[0] * cfg.SpinCoupling
				spin[2] += (s.rng.Float64() - 0.5) * 2 * speed * cfg.RandomSpin
			}
		}

		for j := range s.items {
			if j == i {
				continue
			}
			delta := it.Position.Sub(s.items[j].Position)
			l := delta.Len()
			if l > epsilon && l < minDist {
				force = force.Add(delta.Mul((minDist - l) * cfg.CollisionStrength / l))
			}
		}

		s.force[i] = force
		s.spin[i] = spin
	}
}

func (s *State) integrate(scale float64) {
	cfg := &s.cfg
	damping := cfg.LinearDamping
	angDamping := cfg.AngularDamping
	recovery := cfg.RotationRecovery
	if scale != 1 {
		damping = math.Pow(damping, scale)
		angDamping = math.Pow(angDamping, scale)
		recovery = math.Pow(recovery, scale)
	}

	for i := range s.items {
		it := &s.items[i]

		v := it.Velocity.Add(s.force[i].Mul(scale)).Mul(damping)
		it.Velocity = clampLen(v, cfg.MaxVelocity)
		it.Position = it.Position.Add(it.Velocity.Mul(scale))

		target, springs := s.rotationTarget(it)
		w := it.AngularVelocity.Add(s.spin[i].Mul(scale))
		if springs {
			w = w.Add(target.Sub(it.Rotation).Mul(cfg.RotationStiffness * scale))
		}
		w = w.Mul(angDamping)
		if cfg.MaxAngularVelocity > 0 {
			w = clampLen(w, cfg.MaxAngularVelocity)
		}
		it.AngularVelocity = w
		it.Rotation = it.Rotation.Add(w.Mul(scale))
		if springs {
			it.Rotation = target.Add(it.Rotation.Sub(target).Mul(recovery))
		}

		if !it.finite() {
			it.settle()
		}
	}
}

func (s *State) rotationTarget(it *Item) (mgl64.Vec3, bool) {
	switch s.cfg.RotationMode {
	case RotationZero:
		return mgl64.Vec3{}, true
	case RotationRest:
		return it.restRotation, true
	default:
		return mgl64.Vec3{}, false
	}
}

func clampLen(v mgl64.Vec3, limit float64) mgl64.Vec3 {
	if l := v.Len(); l > limit {
		return v.Mul(limit / l)
	}
	return v
}

func uniformIn(rng *rand.Rand, half mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		(rng.Float64()*2 - 1) * half[0],
		(rng.Float64()*2 - 1) * half[1],
		(rng.Float64()*2 - 1) * half[2],
	}
}

// sampleRestSlots draws rest positions inside ±Bounds. With RestSpacing set
// it keeps the candidate farthest from already placed slots, stopping early
// once one clears the spacing.
func sampleRestSlots(count int, cfg Config, rng *rand.Rand) []mgl64.Vec3 {
	slots := make([]mgl64.Vec3, 0, count)
	attempts := 1
	if cfg.RestSpacing > 0 && cfg.SpacingAttempts > 1 {
		attempts = cfg.SpacingAttempts
	}

	for len(slots) < count {
		var best mgl64.Vec3
		bestGap := -1.0
		for a := 0; a < attempts; a++ {
			cand := uniformIn(rng, cfg.Bounds)
			gap := math.Inf(1)
			for _, s := range slots {
				gap = math.Min(gap, cand.Sub(s).Len())
			}
			if gap > bestGap {
				best, bestGap = cand, gap
			}
			if gap >= cfg.RestSpacing {
				break
			}
		}
		slots = append(slots, best)
	}
	return slots
}
