package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/magnetsim/internal/cluster"
)

type Metric interface {
	Name() string
	Observe(items []cluster.Item, cfg cluster.Config, t float64)
	Value() float64
	Reset()
}

var constructors = map[string]func() Metric{
	"kinetic_energy": func() Metric { return NewKineticEnergy() },
	"peak_speed":     func() Metric { return NewPeakSpeed() },
	"min_separation": func() Metric { return NewMinSeparation() },
	"rest_deviation": func() Metric { return NewRestDeviation() },
	"clamp_ratio":    func() Metric { return NewClampRatio() },
}

// New returns a fresh metric by name.
func New(name string) (Metric, error) {
	c, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q", name)
	}
	return c(), nil
}

// All returns one of every metric, sorted by name.
func All() []Metric {
	out := make([]Metric, 0, len(constructors))
	for _, name := range Names() {
		out = append(out, constructors[name]())
	}
	return out
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
