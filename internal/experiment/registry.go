package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/config"
	"github.com/san-kum/magnetsim/internal/gesture"
	"github.com/san-kum/magnetsim/internal/metrics"
	"github.com/san-kum/magnetsim/internal/sim"
)

// Registry names everything a run file or CLI flag can select: presets,
// gestures, integration and rotation modes, and metrics.
type Registry struct {
	gestures     map[string]func(frames int) (sim.PointerDriver, error)
	integrations map[string]cluster.IntegrationMode
	rotations    map[string]cluster.RotationMode
}

func NewRegistry() *Registry {
	r := &Registry{
		gestures:     make(map[string]func(int) (sim.PointerDriver, error)),
		integrations: make(map[string]cluster.IntegrationMode),
		rotations:    make(map[string]cluster.RotationMode),
	}

	for _, name := range gesture.Names() {
		r.gestures[name] = func(frames int) (sim.PointerDriver, error) {
			return gesture.Named(name, frames)
		}
	}

	r.integrations["frame"] = cluster.IntegrationFrame
	r.integrations["scaled"] = cluster.IntegrationScaled

	r.rotations["none"] = cluster.RotationNone
	r.rotations["zero"] = cluster.RotationZero
	r.rotations["rest"] = cluster.RotationRest

	return r
}

// RegisterGesture adds or replaces a named pointer path.
func (r *Registry) RegisterGesture(name string, fn func(frames int) (sim.PointerDriver, error)) {
	r.gestures[name] = fn
}

func (r *Registry) GetGesture(name string, frames int) (sim.PointerDriver, error) {
	fn, ok := r.gestures[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", gesture.ErrUnknownGesture, name)
	}
	return fn(frames)
}

func (r *Registry) GetIntegration(name string) (cluster.IntegrationMode, error) {
	m, ok := r.integrations[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown integration mode %q", cluster.ErrInvalidConfig, name)
	}
	return m, nil
}

func (r *Registry) GetRotation(name string) (cluster.RotationMode, error) {
	m, ok := r.rotations[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown rotation mode %q", cluster.ErrInvalidConfig, name)
	}
	return m, nil
}

func (r *Registry) GetPreset(name string) (*config.Config, error) {
	return config.GetPreset(name)
}

func (r *Registry) ListGestures() []string     { return sortedKeys(r.gestures) }
func (r *Registry) ListIntegrations() []string { return sortedKeys(r.integrations) }
func (r *Registry) ListRotations() []string    { return sortedKeys(r.rotations) }
func (r *Registry) ListPresets() []string      { return config.ListPresets() }
func (r *Registry) ListMetrics() []string      { return metrics.Names() }

// DefaultMetrics returns a fresh instance of every metric.
func (r *Registry) DefaultMetrics() []sim.Metric {
	all := metrics.All()
	out := make([]sim.Metric, len(all))
	for i, m := range all {
		out[i] = m
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
