package cluster_test

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/magnetsim/internal/cluster"
)

var _ = Describe("Step", func() {
	Describe("idle motion", func() {
		It("bobs in place when the pointer is far away", func() {
			cfg := staticConfig()
			st := mustFromItems(cfg, restItem(0, 0, 0, 0))

			runFrames(st, 1, 120, frameDt, still(farAway))

			elapsed := 120 * frameDt
			want := mgl64.Vec3{0, math.Sin(elapsed*cfg.IdleFrequency) * cfg.IdleAmplitude, 0}
			got := st.Items()[0].Position
			Expect(got.Sub(want).Len()).To(BeNumerically("<", cfg.IdleAmplitude))
			Expect(got.X()).To(BeNumerically("~", 0, 1e-12))
			Expect(got.Z()).To(BeNumerically("~", 0, 1e-12))
		})

		It("never drifts away from the rest slot", func() {
			cfg := staticConfig()
			st := mustFromItems(cfg,
				restItem(-1, 0, 0, 0),
				restItem(0, 0.2, 0, 1.3),
				restItem(1, -0.2, 0.1, 4.0),
			)

			// discrete tracking overshoots the bob by about one percent once
			// the start-up transient of an off-phase slot has died out
			limit := cfg.IdleAmplitude * 1.05
			for f := 1; f <= 1200; f++ {
				st.Step(frameDt, float64(f)*frameDt, farAway)
				if f <= 180 {
					continue
				}
				for _, it := range st.Items() {
					Expect(it.Position.Sub(it.RestPosition()).Len()).To(BeNumerically("<=", limit))
				}
			}
		})
	})

	Describe("pointer impulse", func() {
		jump := func(f int) cluster.PointerState {
			if f == 1 {
				return cluster.PointerState{
					Current:  mgl64.Vec2{0.1, 0},
					Previous: mgl64.Vec2{0, 0},
					Velocity: mgl64.Vec2{0.1, 0},
				}
			}
			return cluster.StillPointer(mgl64.Vec2{0.1, 0})
		}

		It("kicks the item and lets it return home", func() {
			cfg := staticConfig()
			st := mustFromItems(cfg, restItem(0, 0, 0, 0))

			runFrames(st, 1, 1, frameDt, jump)
			Expect(st.Items()[0].Velocity.Len()).To(BeNumerically(">", 0.001))

			runFrames(st, 2, 300, frameDt, jump)
			it := st.Items()[0]
			target := it.IdleTarget(cfg, 300*frameDt)
			Expect(it.Position.Sub(target).Len()).To(BeNumerically("<", 0.01))
		})

		It("returns to the exact rest slot without idle bob", func() {
			cfg := staticConfig()
			cfg.IdleAmplitude = 0
			st := mustFromItems(cfg, restItem(0, 0, 0, 0))

			runFrames(st, 1, 300, frameDt, jump)
			it := st.Items()[0]
			Expect(it.Position.Len()).To(BeNumerically("<", 0.01))
		})

		It("decays velocity geometrically after the impulse", func() {
			cfg := staticConfig()
			cfg.IdleAmplitude = 0
			st := mustFromItems(cfg, restItem(0, 0, 0, 0))

			speeds := make([]float64, 0, 300)
			for f := 1; f <= 300; f++ {
				st.Step(frameDt, float64(f)*frameDt, jump(f))
				speeds = append(speeds, st.Items()[0].Velocity.Len())
			}

			peaks := make([]float64, 5)
			for w := range peaks {
				for _, s := range speeds[w*60 : (w+1)*60] {
					peaks[w] = math.Max(peaks[w], s)
				}
			}
			// the spring-damper envelope shrinks by sqrt(LinearDamping) per frame
			envelope := math.Pow(math.Sqrt(cfg.LinearDamping), 60)
			for w := 1; w < len(peaks); w++ {
				Expect(peaks[w]).To(BeNumerically("<", peaks[w-1]*envelope*5))
			}
			Expect(speeds[len(speeds)-1]).To(BeNumerically("<", 1e-4))
		})

		It("ignores slow pointers", func() {
			cfg := staticConfig()
			cfg.IdleAmplitude = 0
			st := mustFromItems(cfg, restItem(0, 0, 0, 0))

			slow := cluster.PointerState{
				Current:  mgl64.Vec2{0.1, 0},
				Previous: mgl64.Vec2{0.1 - cfg.VelocityThreshold/2, 0},
				Velocity: mgl64.Vec2{cfg.VelocityThreshold / 2, 0},
			}
			st.Step(frameDt, frameDt, slow)
			Expect(st.Items()[0].Velocity.Len()).To(BeZero())
		})

		It("spins items on impact", func() {
			cfg := staticConfig()
			cfg.RandomSpin = 0
			st := mustFromItems(cfg, restItem(0, 0, 0, 0))

			st.Step(frameDt, frameDt, cluster.PointerState{
				Current:  mgl64.Vec2{0, -0.2},
				Previous: mgl64.Vec2{0, -0.3},
				Velocity: mgl64.Vec2{0, 0.1},
			})
			Expect(st.Items()[0].AngularVelocity.X()).To(BeNumerically(">", 0))
		})

		It("skips the force when the pointer sits exactly on an item", func() {
			cfg := staticConfig()
			cfg.IdleAmplitude = 0
			st := mustFromItems(cfg, restItem(0, 0, 0, 0))

			st.Step(frameDt, frameDt, cluster.PointerState{
				Current:  mgl64.Vec2{0, 0},
				Previous: mgl64.Vec2{-0.1, 0},
				Velocity: mgl64.Vec2{0.1, 0},
			})
			it := st.Items()[0]
			Expect(it.Velocity.Len()).To(BeZero())
			Expect(it.Position.Len()).To(BeZero())
		})
	})

	Describe("soft collision", func() {
		collisionConfig := func() cluster.Config {
			cfg := staticConfig()
			cfg.ItemRadius = 0.5
			cfg.CollisionSlack = 1.5
			return cfg
		}

		It("separates overlapping rest slots within a second", func() {
			cfg := collisionConfig()
			Expect(cfg.MinDistance()).To(BeNumerically("~", 0.75, 1e-12))
			st := mustFromItems(cfg, restItem(-0.15, 0, 0, 0), restItem(0.15, 0, 0, 0))

			runFrames(st, 1, 60, frameDt, still(farAway))

			a, b := st.Items()[0].Position, st.Items()[1].Position
			Expect(a.Sub(b).Len()).To(BeNumerically(">=", cfg.MinDistance()-0.05))
		})

		It("keeps neighbours apart at steady state", func() {
			cfg := collisionConfig()
			st := mustFromItems(cfg,
				restItem(-0.3, 0, 0, 0),
				restItem(0, 0, 0, 0),
				restItem(0.3, 0, 0, 0),
			)

			runFrames(st, 1, 900, frameDt, still(farAway))

			items := st.Items()
			for i := range items {
				for j := i + 1; j < len(items); j++ {
					d := items[i].Position.Sub(items[j].Position).Len()
					Expect(d).To(BeNumerically(">=", cfg.MinDistance()-0.1), "pair %d-%d", i, j)
				}
			}
		})

		It("leaves coincident items alone instead of producing NaN", func() {
			cfg := staticConfig()
			st := mustFromItems(cfg, restItem(0, 0, 0, 0), restItem(0, 0, 0, 0))

			st.Step(frameDt, frameDt, farAway)
			for _, it := range st.Items() {
				for _, c := range it.Position {
					Expect(math.IsNaN(c)).To(BeFalse())
				}
			}
		})
	})

	Describe("boundedness", func() {
		It("clamps every velocity under a violent pointer", func() {
			cfg := cluster.DefaultConfig()
			cfg.ImpulseFactor = 25
			st, err := cluster.Initialize(18, cfg, rand.New(rand.NewSource(42)))
			Expect(err).NotTo(HaveOccurred())

			prev := mgl64.Vec2{}
			for f := 1; f <= 600; f++ {
				a := float64(f) * 0.3
				cur := mgl64.Vec2{math.Cos(a) * 0.8, math.Sin(a) * 0.8}
				st.Step(frameDt, float64(f)*frameDt, cluster.PointerState{
					Current: cur, Previous: prev, Velocity: cur.Sub(prev),
				})
				prev = cur
				for _, it := range st.Items() {
					Expect(it.Velocity.Len()).To(BeNumerically("<=", cfg.MaxVelocity+1e-12))
				}
			}
		})

		It("holds in scaled mode at irregular frame times", func() {
			cfg := cluster.DefaultConfig()
			cfg.Integration = cluster.IntegrationScaled
			st, err := cluster.Initialize(12, cfg, rand.New(rand.NewSource(3)))
			Expect(err).NotTo(HaveOccurred())

			rng := rand.New(rand.NewSource(9))
			elapsed := 0.0
			prev := mgl64.Vec2{}
			for f := 0; f < 400; f++ {
				dt := 0.004 + rng.Float64()*0.03
				elapsed += dt
				cur := mgl64.Vec2{rng.Float64() - 0.5, rng.Float64() - 0.5}
				st.Step(dt, elapsed, cluster.PointerState{Current: cur, Previous: prev, Velocity: cur.Sub(prev)})
				prev = cur
				for _, it := range st.Items() {
					Expect(it.Velocity.Len()).To(BeNumerically("<=", cfg.MaxVelocity+1e-12))
				}
			}
		})
	})

	Describe("symmetry", func() {
		It("mirrors trajectories of mirrored items", func() {
			cfg := staticConfig()
			cfg.ZJitter = 0
			cfg.RandomSpin = 0

			left := restItem(0, 0, 0, 0)
			left.Position = mgl64.Vec3{-0.3, 0, 0}
			right := restItem(0, 0, 0, 0)
			right.Position = mgl64.Vec3{0.3, 0, 0}
			st := mustFromItems(cfg, left, right)

			sweep := func(f int) cluster.PointerState {
				if f > 10 {
					return cluster.StillPointer(mgl64.Vec2{0, 0.5})
				}
				cur := mgl64.Vec2{0, -0.5 + 0.1*float64(f)}
				return cluster.PointerState{Current: cur, Previous: cur.Sub(mgl64.Vec2{0, 0.1}), Velocity: mgl64.Vec2{0, 0.1}}
			}

			for f := 1; f <= 200; f++ {
				st.Step(frameDt, float64(f)*frameDt, sweep(f))
				a, b := st.Items()[0], st.Items()[1]
				Expect(a.Position.X()).To(BeNumerically("~", -b.Position.X(), 1e-12))
				Expect(a.Position.Y()).To(BeNumerically("~", b.Position.Y(), 1e-12))
				Expect(a.Position.Z()).To(BeNumerically("~", b.Position.Z(), 1e-12))
				Expect(a.AngularVelocity.X()).To(BeNumerically("~", b.AngularVelocity.X(), 1e-12))
				Expect(a.AngularVelocity.Y()).To(BeNumerically("~", -b.AngularVelocity.Y(), 1e-12))
			}
		})
	})

	Describe("rotation", func() {
		spun := func(mode cluster.RotationMode) cluster.Item {
			cfg := staticConfig()
			cfg.RotationMode = mode
			it := cluster.NewItem(mgl64.Vec3{}, mgl64.Vec3{0.2, 0, 0}, 0, 0)
			it.AngularVelocity = mgl64.Vec3{0, 0.3, 0}
			st := mustFromItems(cfg, it)
			runFrames(st, 1, 600, frameDt, still(farAway))
			return st.Items()[0]
		}

		It("springs back to the rest orientation", func() {
			it := spun(cluster.RotationRest)
			Expect(it.Rotation.Sub(it.RestRotation()).Len()).To(BeNumerically("<", 1e-3))
		})

		It("springs back to zero", func() {
			it := spun(cluster.RotationZero)
			Expect(it.Rotation.Len()).To(BeNumerically("<", 1e-3))
		})

		It("only decays spin without a spring", func() {
			it := spun(cluster.RotationNone)
			Expect(it.AngularVelocity.Len()).To(BeNumerically("<", 1e-6))
			Expect(it.Rotation.Y()).To(BeNumerically(">", 1))
		})
	})

	Describe("integration modes", func() {
		offset := func(mode cluster.IntegrationMode, hz float64) float64 {
			cfg := staticConfig()
			cfg.IdleAmplitude = 0
			cfg.Integration = mode
			it := restItem(0, 0, 0, 0)
			it.Position = mgl64.Vec3{0.5, 0, 0}
			st := mustFromItems(cfg, it)
			dt := 1 / hz
			runFrames(st, 1, int(math.Round(0.5*hz)), dt, still(farAway))
			return st.Items()[0].Position.X()
		}

		It("matches frame mode at the reference rate", func() {
			Expect(offset(cluster.IntegrationScaled, 60)).To(BeNumerically("~", offset(cluster.IntegrationFrame, 60), 1e-9))
		})

		It("is rate independent only when scaled", func() {
			Expect(offset(cluster.IntegrationScaled, 120)).To(BeNumerically("~", offset(cluster.IntegrationScaled, 60), 0.005))
			Expect(math.Abs(offset(cluster.IntegrationFrame, 120) - offset(cluster.IntegrationFrame, 60))).To(BeNumerically(">", 0.05))
		})
	})

	Describe("degenerate input", func() {
		It("skips frames with non-finite time", func() {
			st := mustFromItems(staticConfig(), restItem(0.1, 0, 0, 0))
			before := st.Items()[0]
			st.Step(math.NaN(), 1, farAway)
			st.Step(frameDt, math.Inf(1), farAway)
			Expect(st.Items()[0].Position).To(Equal(before.Position))
		})

		It("treats a non-finite pointer as absent", func() {
			cfg := staticConfig()
			cfg.IdleAmplitude = 0
			st := mustFromItems(cfg, restItem(0, 0, 0, 0))
			st.Step(frameDt, frameDt, cluster.PointerState{
				Current:  mgl64.Vec2{math.NaN(), 0},
				Velocity: mgl64.Vec2{math.Inf(1), 0},
			})
			Expect(st.Items()[0].Position.Len()).To(BeZero())
		})

		It("does nothing for an empty cluster", func() {
			st, err := cluster.Initialize(0, cluster.DefaultConfig(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(func() { st.Step(frameDt, frameDt, farAway) }).NotTo(Panic())
			Expect(st.Snapshot(nil)).To(BeEmpty())
		})
	})
})
