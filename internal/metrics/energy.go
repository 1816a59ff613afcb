package metrics

import (
	"math"

	"github.com/san-kum/magnetsim/internal/cluster"
)

// KineticEnergy is the mean over frames of the cluster's summed
// ½|v|² per item, unit mass.
type KineticEnergy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(items []cluster.Item, _ cluster.Config, _ float64) {
	e.totalEnergy += Kinetic(items)
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// Kinetic sums ½|v|² over items.
func Kinetic(items []cluster.Item) float64 {
	total := 0.0
	for i := range items {
		v := items[i].Velocity
		total += 0.5 * v.Dot(v)
	}
	return total
}

// PeakSpeed is the largest item speed seen during a run.
type PeakSpeed struct {
	name string
	peak float64
}

func NewPeakSpeed() *PeakSpeed {
	return &PeakSpeed{name: "peak_speed"}
}

func (p *PeakSpeed) Name() string { return p.name }

func (p *PeakSpeed) Observe(items []cluster.Item, _ cluster.Config, _ float64) {
	for i := range items {
		p.peak = math.Max(p.peak, items[i].Velocity.Len())
	}
}

func (p *PeakSpeed) Value() float64 { return p.peak }
func (p *PeakSpeed) Reset()         { p.peak = 0 }
