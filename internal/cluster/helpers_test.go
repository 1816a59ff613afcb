package cluster_test

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/gomega"

	"github.com/san-kum/magnetsim/internal/cluster"
)

const frameDt = 1.0 / 60

var farAway = cluster.StillPointer(mgl64.Vec2{10, 10})

func staticConfig() cluster.Config {
	cfg := cluster.DefaultConfig()
	cfg.FlyIn = false
	return cfg
}

func mustFromItems(cfg cluster.Config, items ...cluster.Item) *cluster.State {
	st, err := cluster.FromItems(items, cfg, rand.New(rand.NewSource(7)))
	Expect(err).NotTo(HaveOccurred())
	return st
}

func restItem(x, y, z, phase float64) cluster.Item {
	return cluster.NewItem(mgl64.Vec3{x, y, z}, mgl64.Vec3{}, phase, 0)
}

// runFrames steps frames [from, to] with elapsed = frame*dt.
func runFrames(st *cluster.State, from, to int, dt float64, ptr func(frame int) cluster.PointerState) {
	for f := from; f <= to; f++ {
		st.Step(dt, float64(f)*dt, ptr(f))
	}
}

func still(p cluster.PointerState) func(int) cluster.PointerState {
	return func(int) cluster.PointerState { return p }
}
