package cluster_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/magnetsim/internal/cluster"
)

var _ = Describe("OrbitRing", func() {
	flat := func() *cluster.OrbitRing {
		return cluster.NewOrbitRing([]cluster.Orbit{{Speed: 1, Radius: 2}})
	}

	It("starts each icon on its orbit at the phase angle", func() {
		r := cluster.NewOrbitRing(cluster.DefaultOrbits())
		ts := r.Transforms(nil)
		Expect(ts).To(HaveLen(4))
		for i, o := range r.Orbits {
			Expect(ts[i].Position.Len()).To(BeNumerically("~", o.Radius, 1e-9))
			Expect(ts[i].Icon).To(Equal(i))
		}
		Expect(ts[0].Position.Y()).NotTo(BeNumerically("~", 0, 1e-3))
	})

	It("spins at the base rate when idle", func() {
		r := flat()
		Expect(r.Transforms(nil)[0].Position.ApproxEqualThreshold(mgl64.Vec3{2, 0, 0}, 1e-12)).To(BeTrue())

		r.Advance(1)
		Expect(r.Angle(0)).To(BeNumerically("~", -0.3, 1e-12))
		p := r.Transforms(nil)[0].Position
		Expect(p.ApproxEqualThreshold(mgl64.Vec3{2 * math.Cos(0.3), 0, 2 * math.Sin(0.3)}, 1e-9)).To(BeTrue())
	})

	It("speeds up after a kick and decays back", func() {
		r := flat()
		r.Kick(100)
		Expect(r.Intensity()).To(Equal(4.0))

		r.Advance(0.1)
		Expect(r.Intensity()).To(BeNumerically("~", 3.8, 1e-12))
		Expect(r.Angle(0)).To(BeNumerically("~", -0.6, 1e-12))

		for i := 0; i < 500; i++ {
			r.Advance(0.01)
		}
		Expect(r.Intensity()).To(BeNumerically("<", 1e-9))
	})

	It("adds a constant while hovered", func() {
		r := flat()
		r.SetHovered(true)
		Expect(r.Intensity()).To(Equal(1.0))
		r.Advance(1)
		Expect(r.Angle(0)).To(BeNumerically("~", -1.8, 1e-12))
		r.SetHovered(false)
		Expect(r.Intensity()).To(Equal(0.0))
	})

	It("ignores bad time steps and kicks", func() {
		r := flat()
		r.Kick(math.NaN())
		r.Advance(0)
		r.Advance(math.NaN())
		r.Advance(-1)
		Expect(r.Intensity()).To(Equal(0.0))
		Expect(r.Angle(0)).To(Equal(0.0))
	})
})
