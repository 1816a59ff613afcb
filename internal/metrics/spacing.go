package metrics

import (
	"math"

	"github.com/san-kum/magnetsim/internal/cluster"
)

// MinSeparation tracks the closest approach of any two item centers.
// Without items or with a single item it reports +Inf.
type MinSeparation struct {
	name string
	min  float64
}

func NewMinSeparation() *MinSeparation {
	return &MinSeparation{name: "min_separation", min: math.Inf(1)}
}

func (m *MinSeparation) Name() string { return m.name }

func (m *MinSeparation) Observe(items []cluster.Item, _ cluster.Config, _ float64) {
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			m.min = math.Min(m.min, items[i].Position.Sub(items[j].Position).Len())
		}
	}
}

func (m *MinSeparation) Value() float64 { return m.min }
func (m *MinSeparation) Reset()         { m.min = math.Inf(1) }

// RestDeviation reports the mean distance of items from their idle target
// over the last observed frame.
type RestDeviation struct {
	name string
	last float64
}

func NewRestDeviation() *RestDeviation {
	return &RestDeviation{name: "rest_deviation"}
}

func (r *RestDeviation) Name() string { return r.name }

func (r *RestDeviation) Observe(items []cluster.Item, cfg cluster.Config, t float64) {
	if len(items) == 0 {
		r.last = 0
		return
	}
	sum := 0.0
	for i := range items {
		sum += items[i].Position.Sub(items[i].IdleTarget(cfg, t)).Len()
	}
	r.last = sum / float64(len(items))
}

func (r *RestDeviation) Value() float64 { return r.last }
func (r *RestDeviation) Reset()         { r.last = 0 }
