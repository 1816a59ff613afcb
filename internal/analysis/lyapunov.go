package analysis

import (
	"math"
	"math/rand"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/sim"
)

// Divergence estimates how fast a small displacement of the first item
// grows, in nats per second, by running two otherwise identical clusters
// side by side. A damped scene reports a negative value.
//
// Both clusters draw jitter from identically seeded generators, so the only
// difference between them is the perturbation.
func Divergence(
	items []cluster.Item,
	cfg cluster.Config,
	seed int64,
	driver sim.PointerDriver,
	perturbation float64,
	fps float64,
	frames int,
) (float64, error) {
	if len(items) == 0 || perturbation <= 0 || frames <= 0 || fps <= 0 {
		return 0, nil
	}

	a, err := cluster.FromItems(items, cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return 0, err
	}
	shifted := make([]cluster.Item, len(items))
	copy(shifted, items)
	shifted[0].Position[0] += perturbation
	b, err := cluster.FromItems(shifted, cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return 0, err
	}

	pa := cluster.NewPointer(driver.Position(0, 0))
	pb := cluster.NewPointer(driver.Position(0, 0))
	dt := 1 / fps
	d0 := perturbation
	sumLog := 0.0

	for i := 1; i <= frames; i++ {
		t := float64(i) * dt
		pos := driver.Position(i, t)
		pa.Sample(pos)
		pb.Sample(pos)
		a.Step(dt, t, pa.Latch())
		b.Step(dt, t, pb.Latch())

		sep := separation(a.Items(), b.Items())
		if sep == 0 {
			return math.Inf(-1), nil
		}

		// renormalize so the pair stays in the linear regime
		if sep > 1e3*d0 || sep < 1e-3*d0 {
			sumLog += math.Log(sep / d0)
			rescale(a.Items(), b.Items(), d0/sep)
		}
	}

	sumLog += math.Log(separation(a.Items(), b.Items()) / d0)
	return sumLog / (float64(frames) * dt), nil
}

func separation(a, b []cluster.Item) float64 {
	sum := 0.0
	for i := range a {
		d := b[i].Position.Sub(a[i].Position)
		v := b[i].Velocity.Sub(a[i].Velocity)
		sum += d.Dot(d) + v.Dot(v)
	}
	return math.Sqrt(sum)
}

func rescale(a, b []cluster.Item, scale float64) {
	for i := range b {
		b[i].Position = a[i].Position.Add(b[i].Position.Sub(a[i].Position).Mul(scale))
		b[i].Velocity = a[i].Velocity.Add(b[i].Velocity.Sub(a[i].Velocity).Mul(scale))
	}
}
