package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrUnknownPreset = errors.New("config: unknown preset")

// Presets tweak the default run. Each entry mutates a fresh default copy.
var Presets = map[string]func(*Config){
	"default": func(*Config) {},
	"calm": func(c *Config) {
		c.Gesture = "orbit"
		c.Cluster.ImpulseFactor = 0.25
		c.Cluster.LinearDamping = 0.85
		c.Cluster.MaxVelocity = 0.1
		c.Cluster.IdleAmplitude = 0.03
	},
	"dense": func(c *Config) {
		c.Cluster.Count = 36
		c.Cluster.Bounds = mgl64.Vec3{1, 1, 0.3}
		c.Cluster.ItemRadius = 0.2
		c.Cluster.RestSpacing = 0.25
	},
	"static": func(c *Config) {
		c.Gesture = "still"
		c.Cluster.FlyIn = false
		c.Cluster.IdleAmplitude = 0
	},
	"jelly": func(c *Config) {
		c.Gesture = "sweep"
		c.Cluster.SpringStiffness = 0.02
		c.Cluster.LinearDamping = 0.96
		c.Cluster.ImpulseFactor = 0.8
	},
	"loose": func(c *Config) {
		c.Gesture = "zigzag"
		c.Cluster.CollisionStrength = 0.1
		c.Cluster.RestSpacing = 0
	},
}

// GetPreset returns a fresh copy of the named preset.
func GetPreset(name string) (*Config, error) {
	apply, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	cfg := DefaultConfig()
	cfg.Preset = name
	apply(cfg)
	return cfg, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
