package cluster_test

import (
	"errors"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/magnetsim/internal/cluster"
)

var _ = Describe("Initialize", func() {
	inBox := func(v, half mgl64.Vec3) bool {
		for i := range v {
			if math.Abs(v[i]) > half[i] {
				return false
			}
		}
		return true
	}

	It("places rest slots inside the bounds", func() {
		cfg := cluster.DefaultConfig()
		st, err := cluster.Initialize(40, cfg, rand.New(rand.NewSource(1)))
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Len()).To(Equal(40))

		for _, it := range st.Items() {
			Expect(inBox(it.RestPosition(), cfg.Bounds)).To(BeTrue())
			Expect(inBox(it.RestRotation(), mgl64.Vec3{cfg.RestTilt, cfg.RestTilt, cfg.RestTilt})).To(BeTrue())
			Expect(it.Phase()).To(And(BeNumerically(">=", 0), BeNumerically("<", 2*math.Pi)))
			Expect(it.Velocity).To(Equal(mgl64.Vec3{}))
			Expect(it.AngularVelocity).To(Equal(mgl64.Vec3{}))
		}
	})

	It("scatters items for the fly-in entrance", func() {
		cfg := cluster.DefaultConfig()
		st, err := cluster.Initialize(30, cfg, rand.New(rand.NewSource(2)))
		Expect(err).NotTo(HaveOccurred())

		outside := 0
		for _, it := range st.Items() {
			Expect(inBox(it.Position, cfg.Bounds.Mul(cfg.FlyInScale))).To(BeTrue())
			if !inBox(it.Position, cfg.Bounds) {
				outside++
			}
		}
		Expect(outside).To(BeNumerically(">", 0))
	})

	It("starts in the rest slot without fly-in", func() {
		cfg := staticConfig()
		st, err := cluster.Initialize(10, cfg, rand.New(rand.NewSource(3)))
		Expect(err).NotTo(HaveOccurred())
		for _, it := range st.Items() {
			Expect(it.Position).To(Equal(it.RestPosition()))
			Expect(it.Rotation).To(Equal(it.RestRotation()))
		}
	})

	It("assigns icons round robin", func() {
		cfg := cluster.DefaultConfig()
		cfg.IconCount = 4
		st, err := cluster.Initialize(10, cfg, rand.New(rand.NewSource(4)))
		Expect(err).NotTo(HaveOccurred())
		for i, it := range st.Items() {
			Expect(it.Icon()).To(Equal(i % 4))
		}
	})

	It("assigns random icons within range", func() {
		cfg := cluster.DefaultConfig()
		cfg.IconCount = 3
		cfg.IconAssignment = cluster.IconsRandom
		st, err := cluster.Initialize(50, cfg, rand.New(rand.NewSource(5)))
		Expect(err).NotTo(HaveOccurred())
		seen := map[int]bool{}
		for _, it := range st.Items() {
			Expect(it.Icon()).To(And(BeNumerically(">=", 0), BeNumerically("<", 3)))
			seen[it.Icon()] = true
		}
		Expect(seen).To(HaveLen(3))
	})

	It("spreads rest slots apart when spacing is requested", func() {
		cfg := staticConfig()
		cfg.RestSpacing = 0.3
		cfg.SpacingAttempts = 50
		spaced, err := cluster.Initialize(8, cfg, rand.New(rand.NewSource(6)))
		Expect(err).NotTo(HaveOccurred())
		Expect(minGap(spaced)).To(BeNumerically(">=", 0.3))
	})

	It("is reproducible for a fixed seed", func() {
		a, _ := cluster.Initialize(12, cluster.DefaultConfig(), rand.New(rand.NewSource(11)))
		b, _ := cluster.Initialize(12, cluster.DefaultConfig(), rand.New(rand.NewSource(11)))
		Expect(a.Snapshot(nil)).To(Equal(b.Snapshot(nil)))
	})

	It("builds an empty cluster for zero items", func() {
		st, err := cluster.Initialize(0, cluster.DefaultConfig(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Len()).To(BeZero())
	})

	It("rejects a negative count", func() {
		_, err := cluster.Initialize(-1, cluster.DefaultConfig(), nil)
		Expect(errors.Is(err, cluster.ErrInvalidConfig)).To(BeTrue())
		var fe *cluster.FieldError
		Expect(errors.As(err, &fe)).To(BeTrue())
		Expect(fe.Field).To(Equal("count"))
	})

	It("keeps rest fields fixed while stepping", func() {
		st, err := cluster.Initialize(6, cluster.DefaultConfig(), rand.New(rand.NewSource(8)))
		Expect(err).NotTo(HaveOccurred())
		type fixed struct {
			rest, restRot mgl64.Vec3
			phase         float64
			icon          int
		}
		capture := func() []fixed {
			out := make([]fixed, st.Len())
			for i, it := range st.Items() {
				out[i] = fixed{it.RestPosition(), it.RestRotation(), it.Phase(), it.Icon()}
			}
			return out
		}
		before := capture()
		p := cluster.NewPointer(mgl64.Vec2{})
		for f := 1; f <= 120; f++ {
			p.Sample(mgl64.Vec2{math.Sin(float64(f) * 0.2), 0})
			st.Step(frameDt, float64(f)*frameDt, p.Latch())
		}
		Expect(capture()).To(Equal(before))
	})
})

func minGap(st *cluster.State) float64 {
	gap := math.Inf(1)
	items := st.Items()
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			gap = math.Min(gap, items[i].RestPosition().Sub(items[j].RestPosition()).Len())
		}
	}
	return gap
}

var _ = Describe("Config", func() {
	It("accepts the defaults", func() {
		Expect(cluster.DefaultConfig().Validate()).To(Succeed())
	})

	DescribeTable("rejects invalid values",
		func(field string, mutate func(*cluster.Config)) {
			cfg := cluster.DefaultConfig()
			mutate(&cfg)
			err := cfg.Validate()
			Expect(err).To(MatchError(cluster.ErrInvalidConfig))
			var fe *cluster.FieldError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Field).To(Equal(field))
		},
		Entry("NaN stiffness", "spring_stiffness", func(c *cluster.Config) { c.SpringStiffness = math.NaN() }),
		Entry("damping above one", "linear_damping", func(c *cluster.Config) { c.LinearDamping = 1.2 }),
		Entry("zero damping", "angular_damping", func(c *cluster.Config) { c.AngularDamping = 0 }),
		Entry("zero max velocity", "max_velocity", func(c *cluster.Config) { c.MaxVelocity = 0 }),
		Entry("negative mouse radius", "mouse_radius", func(c *cluster.Config) { c.MouseRadius = -1 }),
		Entry("infinite impulse", "impulse_factor", func(c *cluster.Config) { c.ImpulseFactor = math.Inf(1) }),
		Entry("zero item radius", "item_radius", func(c *cluster.Config) { c.ItemRadius = 0 }),
		Entry("flat bounds", "bounds[2]", func(c *cluster.Config) { c.Bounds[2] = 0 }),
		Entry("no icons", "icon_count", func(c *cluster.Config) { c.IconCount = 0 }),
		Entry("unknown rotation", "rotation_mode", func(c *cluster.Config) { c.RotationMode = "spin" }),
		Entry("unknown integration", "integration", func(c *cluster.Config) { c.Integration = "verlet" }),
		Entry("recovery above one", "rotation_recovery", func(c *cluster.Config) { c.RotationRecovery = 1.5 }),
	)

	It("reads and writes parameters by name", func() {
		cfg := cluster.DefaultConfig()
		Expect(cfg.SetParam("spring_stiffness", 0.08)).To(Succeed())
		Expect(cfg.SpringStiffness).To(Equal(0.08))
		Expect(cfg.Params()).To(HaveKeyWithValue("spring_stiffness", 0.08))
		Expect(cfg.SetParam("gravity", 1)).To(MatchError(cluster.ErrInvalidConfig))
	})

	It("lists parameter names sorted", func() {
		names := cluster.DefaultConfig().ParamNames()
		Expect(names).To(ContainElements("linear_damping", "mouse_radius"))
		for i := 1; i < len(names); i++ {
			Expect(names[i-1] < names[i]).To(BeTrue())
		}
	})
})

var _ = Describe("Pointer", func() {
	It("reports zero velocity on the first latch after reset", func() {
		p := cluster.NewPointer(mgl64.Vec2{})
		p.Reset(mgl64.Vec2{0.4, 0.2})
		Expect(p.Latch().Velocity).To(Equal(mgl64.Vec2{}))
	})

	It("measures displacement between latches", func() {
		p := cluster.NewPointer(mgl64.Vec2{})
		p.Sample(mgl64.Vec2{0.1, 0})
		p.Sample(mgl64.Vec2{0.3, 0.1})
		st := p.Latch()
		Expect(st.Current).To(Equal(mgl64.Vec2{0.3, 0.1}))
		Expect(st.Previous).To(Equal(mgl64.Vec2{}))
		Expect(st.Velocity).To(Equal(mgl64.Vec2{0.3, 0.1}))
		Expect(st.Speed()).To(BeNumerically("~", math.Hypot(0.3, 0.1), 1e-12))

		again := p.Latch()
		Expect(again.Velocity).To(Equal(mgl64.Vec2{}))
		Expect(p.Position()).To(Equal(mgl64.Vec2{0.3, 0.1}))
	})
})

var _ = Describe("Snapshot", func() {
	It("reuses the caller's buffer", func() {
		st := mustFromItems(staticConfig(), restItem(0, 0, 0, 0), restItem(0.5, 0, 0, 0))
		buf := make([]cluster.Transform, 0, 8)
		out := st.Snapshot(buf)
		Expect(out).To(HaveLen(2))
		Expect(&out[0]).To(BeIdenticalTo(&buf[:1][0]))
		Expect(out[1].Position).To(Equal(mgl64.Vec3{0.5, 0, 0}))
		Expect(out[0].Orientation.ApproxEqual(mgl64.QuatIdent())).To(BeTrue())
	})
})

var _ = Describe("Assembly", func() {
	a := cluster.DefaultAssembly()

	It("holds the coarse grid during the delay", func() {
		Expect(a.Resolution(0)).To(Equal(a.Start))
		Expect(a.Resolution(a.Delay)).To(Equal(a.Start))
		Expect(a.Done(0)).To(BeFalse())
	})

	It("eases toward the final resolution", func() {
		mid := a.Resolution(a.Delay + a.Duration/2)
		Expect(mid).To(BeNumerically(">", a.Start))
		Expect(mid).To(BeNumerically("<", a.Final))
		Expect(a.Resolution(a.Delay + a.Duration)).To(Equal(a.Final))
		Expect(a.Done(a.Delay + a.Duration)).To(BeTrue())
	})

	It("reaches the final resolution when delay plus duration does not divide evenly", func() {
		b := cluster.Assembly{Start: 80, Final: 2000, Threshold: 1000, Delay: 0.5, Duration: 1.8}
		Expect((2.3 - b.Delay) / b.Duration).To(BeNumerically("<", 1))
		Expect(b.Resolution(2.3)).To(Equal(b.Final))
		Expect(b.Resolution(b.Delay + b.Duration)).To(Equal(b.Final))
	})

	It("starts from a coarse grid of 80", func() {
		Expect(a.Start).To(Equal(80.0))
		Expect(a.Final).To(Equal(2000.0))
	})

	It("snaps positions to the grid until done", func() {
		ts := []cluster.Transform{{Position: mgl64.Vec3{0.013, -0.013, 0.02}}}
		a.Apply(ts, 0)
		Expect(ts[0].Position).To(Equal(mgl64.Vec3{0.0125, -0.025, 0.0125}))

		ts = []cluster.Transform{{Position: mgl64.Vec3{0.3, -0.3, 0.1}}}
		a.Apply(ts, a.Delay+a.Duration)
		Expect(ts[0].Position).To(Equal(mgl64.Vec3{0.3, -0.3, 0.1}))
	})
})

var _ = Describe("GroupMotion", func() {
	It("lags behind the pointer", func() {
		g := cluster.NewGroupMotion()
		g.Update(mgl64.Vec2{1, 0})
		Expect(g.Tilt()[1]).To(BeNumerically("~", 0.15*0.05, 1e-12))
		for i := 0; i < 500; i++ {
			g.Update(mgl64.Vec2{1, 0})
		}
		Expect(g.Tilt()[0]).To(BeNumerically("~", 0, 1e-12))
		Expect(g.Tilt()[1]).To(BeNumerically("~", 0.15, 1e-6))
	})

	It("only lifts when untilted", func() {
		g := cluster.NewGroupMotion()
		ts := []cluster.Transform{{Position: mgl64.Vec3{1, 0, 0}, Orientation: mgl64.QuatIdent()}}
		g.Apply(ts, math.Pi)
		Expect(ts[0].Position.X()).To(BeNumerically("~", 1, 1e-12))
		Expect(ts[0].Position.Y()).To(BeNumerically("~", math.Sin(math.Pi*0.5)*0.1, 1e-12))
	})
})
