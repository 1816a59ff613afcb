package cluster

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// IntegrationMode selects how a frame's forces relate to wall-clock time.
type IntegrationMode string

const (
	// IntegrationFrame applies every multiplier once per Step call and
	// ignores dt. Motion assumes a steady ReferenceRate callback cadence.
	IntegrationFrame IntegrationMode = "frame"
	// IntegrationScaled rescales forces, damping and displacement by
	// dt*ReferenceRate so motion is independent of the callback rate.
	IntegrationScaled IntegrationMode = "scaled"
)

// RotationMode selects what orientation an item springs back to.
type RotationMode string

const (
	RotationNone RotationMode = "none"
	RotationZero RotationMode = "zero"
	RotationRest RotationMode = "rest"
)

// IconAssignment selects how icons are distributed over items.
type IconAssignment string

const (
	IconsRoundRobin IconAssignment = "round_robin"
	IconsRandom     IconAssignment = "random"
)

const (
	DefaultCount             = 18
	DefaultIconCount         = 6
	DefaultSpringStiffness   = 0.05
	DefaultLinearDamping     = 0.90
	DefaultAngularDamping    = 0.92
	DefaultRotationRecovery  = 0.98
	DefaultMaxVelocity       = 0.2
	DefaultMouseRadius       = 1.5
	DefaultVelocityThreshold = 0.001
	DefaultImpulseFactor     = 0.5
	DefaultItemRadius        = 0.25
	DefaultCollisionSlack    = 1.5
	DefaultCollisionStrength = 0.5
	DefaultIdleAmplitude     = 0.05
	DefaultIdleFrequency     = 1.5
	DefaultReferenceRate     = 60.0
)

// epsilon below which a distance is treated as zero and its force skipped.
const epsilon = 1e-9

// Config holds every tunable of the cluster. Velocities and forces are
// expressed per reference frame (1/ReferenceRate seconds).
type Config struct {
	Count          int            `yaml:"count"`
	IconCount      int            `yaml:"icon_count"`
	IconAssignment IconAssignment `yaml:"icon_assignment"`

	// Rest slots are sampled uniformly inside ±Bounds.
	Bounds          mgl64.Vec3 `yaml:"bounds"`
	RestSpacing     float64    `yaml:"rest_spacing"`
	SpacingAttempts int        `yaml:"spacing_attempts"`
	RestTilt        float64    `yaml:"rest_tilt"`
	FlyIn           bool       `yaml:"fly_in"`
	FlyInScale      float64    `yaml:"fly_in_scale"`

	IdleAmplitude float64 `yaml:"idle_amplitude"`
	IdleFrequency float64 `yaml:"idle_frequency"`

	SpringStiffness float64 `yaml:"spring_stiffness"`
	LinearDamping   float64 `yaml:"linear_damping"`
	MaxVelocity     float64 `yaml:"max_velocity"`

	MouseRadius       float64 `yaml:"mouse_radius"`
	VelocityThreshold float64 `yaml:"velocity_threshold"`
	DragWeight        float64 `yaml:"drag_weight"`
	PushWeight        float64 `yaml:"push_weight"`
	ImpulseFactor     float64 `yaml:"impulse_factor"`
	ZJitter           float64 `yaml:"z_jitter"`
	SpinCoupling      float64 `yaml:"spin_coupling"`
	RandomSpin        float64 `yaml:"random_spin"`

	ItemRadius        float64 `yaml:"item_radius"`
	CollisionSlack    float64 `yaml:"collision_slack"`
	CollisionStrength float64 `yaml:"collision_strength"`

	RotationMode       RotationMode `yaml:"rotation_mode"`
	RotationStiffness  float64      `yaml:"rotation_stiffness"`
	AngularDamping     float64      `yaml:"angular_damping"`
	RotationRecovery   float64      `yaml:"rotation_recovery"`
	MaxAngularVelocity float64      `yaml:"max_angular_velocity"`

	Integration   IntegrationMode `yaml:"integration"`
	ReferenceRate float64         `yaml:"reference_rate"`
}

// DefaultConfig returns the stock scene tuning.
func DefaultConfig() Config {
	return Config{
		Count:          DefaultCount,
		IconCount:      DefaultIconCount,
		IconAssignment: IconsRoundRobin,

		Bounds:          mgl64.Vec3{0.75, 0.75, 0.25},
		RestSpacing:     0.3,
		SpacingAttempts: 30,
		RestTilt:        0.4,
		FlyIn:           true,
		FlyInScale:      6,

		IdleAmplitude: DefaultIdleAmplitude,
		IdleFrequency: DefaultIdleFrequency,

		SpringStiffness: DefaultSpringStiffness,
		LinearDamping:   DefaultLinearDamping,
		MaxVelocity:     DefaultMaxVelocity,

		MouseRadius:       DefaultMouseRadius,
		VelocityThreshold: DefaultVelocityThreshold,
		DragWeight:        0.6,
		PushWeight:        0.4,
		ImpulseFactor:     DefaultImpulseFactor,
		ZJitter:           0.5,
		SpinCoupling:      2.0,
		RandomSpin:        0.5,

		ItemRadius:        DefaultItemRadius,
		CollisionSlack:    DefaultCollisionSlack,
		CollisionStrength: DefaultCollisionStrength,

		RotationMode:       RotationRest,
		RotationStiffness:  0.02,
		AngularDamping:     DefaultAngularDamping,
		RotationRecovery:   DefaultRotationRecovery,
		MaxAngularVelocity: 0.5,

		Integration:   IntegrationFrame,
		ReferenceRate: DefaultReferenceRate,
	}
}

// MinDistance is the soft-collision packing distance between item centers.
func (c Config) MinDistance() float64 {
	return c.ItemRadius * c.CollisionSlack
}

// Validate reports the first invalid field. Values are never clamped.
func (c Config) Validate() error {
	if c.Count < 0 {
		return &FieldError{"count", c.Count, "must not be negative"}
	}
	if c.IconCount < 1 {
		return &FieldError{"icon_count", c.IconCount, "must be at least 1"}
	}
	if c.SpacingAttempts < 0 {
		return &FieldError{"spacing_attempts", c.SpacingAttempts, "must not be negative"}
	}
	switch c.IconAssignment {
	case IconsRoundRobin, IconsRandom:
	default:
		return &FieldError{"icon_assignment", c.IconAssignment, "unknown assignment"}
	}
	switch c.RotationMode {
	case RotationNone, RotationZero, RotationRest:
	default:
		return &FieldError{"rotation_mode", c.RotationMode, "unknown mode"}
	}
	switch c.Integration {
	case IntegrationFrame, IntegrationScaled:
	default:
		return &FieldError{"integration", c.Integration, "unknown mode"}
	}

	for i, b := range c.Bounds {
		if !finite(b) || b <= 0 {
			return &FieldError{fmt.Sprintf("bounds[%d]", i), b, "must be positive and finite"}
		}
	}

	for _, f := range c.fields() {
		v := *f.ptr
		if !finite(v) {
			return &FieldError{f.name, v, "must be finite"}
		}
		switch f.rule {
		case positive:
			if v <= 0 {
				return &FieldError{f.name, v, "must be positive"}
			}
		case nonNegative:
			if v < 0 {
				return &FieldError{f.name, v, "must not be negative"}
			}
		case unitInterval:
			if v <= 0 || v > 1 {
				return &FieldError{f.name, v, "must be in (0, 1]"}
			}
		}
	}
	return nil
}

type rule int

const (
	anyFinite rule = iota
	positive
	nonNegative
	unitInterval
)

type field struct {
	name string
	ptr  *float64
	rule rule
}

func (c *Config) fields() []field {
	return []field{
		{"rest_spacing", &c.RestSpacing, nonNegative},
		{"rest_tilt", &c.RestTilt, nonNegative},
		{"fly_in_scale", &c.FlyInScale, positive},
		{"idle_amplitude", &c.IdleAmplitude, nonNegative},
		{"idle_frequency", &c.IdleFrequency, positive},
		{"spring_stiffness", &c.SpringStiffness, nonNegative},
		{"linear_damping", &c.LinearDamping, unitInterval},
		{"max_velocity", &c.MaxVelocity, positive},
		{"mouse_radius", &c.MouseRadius, positive},
		{"velocity_threshold", &c.VelocityThreshold, nonNegative},
		{"drag_weight", &c.DragWeight, anyFinite},
		{"push_weight", &c.PushWeight, anyFinite},
		{"impulse_factor", &c.ImpulseFactor, nonNegative},
		{"z_jitter", &c.ZJitter, nonNegative},
		{"spin_coupling", &c.SpinCoupling, anyFinite},
		{"random_spin", &c.RandomSpin, nonNegative},
		{"item_radius", &c.ItemRadius, positive},
		{"collision_slack", &c.CollisionSlack, positive},
		{"collision_strength", &c.CollisionStrength, nonNegative},
		{"rotation_stiffness", &c.RotationStiffness, nonNegative},
		{"angular_damping", &c.AngularDamping, unitInterval},
		{"rotation_recovery", &c.RotationRecovery, unitInterval},
		{"max_angular_velocity", &c.MaxAngularVelocity, nonNegative},
		{"reference_rate", &c.ReferenceRate, positive},
	}
}

// Params returns the numeric tunables keyed by their yaml names.
func (c Config) Params() map[string]float64 {
	out := make(map[string]float64)
	for _, f := range c.fields() {
		out[f.name] = *f.ptr
	}
	return out
}

// ParamNames lists the numeric tunables in sorted order.
func (c Config) ParamNames() []string {
	fs := c.fields()
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.name
	}
	sort.Strings(names)
	return names
}

// SetParam sets a numeric tunable by its yaml name. The value is not
// validated; call Validate once all overrides are applied.
func (c *Config) SetParam(name string, value float64) error {
	for _, f := range c.fields() {
		if f.name == name {
			*f.ptr = value
			return nil
		}
	}
	return fmt.Errorf("%w: unknown parameter %q", ErrInvalidConfig, name)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
