package viz

import (
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/sim"
)

func TestCanvasSetUnset(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(1, 3)
	if !c.IsSet(1, 3) {
		t.Fatal("pixel not set")
	}
	if c.Grid[0][0] != blank|0x80 {
		t.Errorf("expected dot 8, got %U", c.Grid[0][0])
	}
	c.Unset(1, 3)
	if c.Grid[0][0] != blank {
		t.Errorf("expected blank cell, got %U", c.Grid[0][0])
	}

	c.Set(-1, 0)
	c.Set(100, 100)
	if strings.TrimRight(c.String(), "\n") != string([]rune{blank, blank}) {
		t.Error("out of range set changed the canvas")
	}
}

func TestCanvasDisc(t *testing.T) {
	c := NewCanvas(10, 5)
	c.Disc(10, 10, 3)
	if !c.IsSet(10, 10) || !c.IsSet(13, 10) || c.IsSet(13, 13) {
		t.Error("disc shape wrong")
	}
}

func TestProjectCenter(t *testing.T) {
	cam := NewCamera()
	x, y, _, ok := cam.Project(mgl64.Vec3{}, 120, 96)
	if !ok || x != 60 || y != 48 {
		t.Errorf("origin projected to (%d, %d, %v)", x, y, ok)
	}

	_, y, _, _ = cam.Project(mgl64.Vec3{0, 1, 0}, 120, 96)
	if y >= 48 {
		t.Errorf("positive y should be up on screen, got row %d", y)
	}
}

func TestUnprojectRoundTrip(t *testing.T) {
	cameras := []struct {
		name string
		cam  *Camera
	}{
		{"front", NewCamera()},
		{"tilted", &Camera{Distance: 6, Zoom: 1.3, Near: 0.1, RotX: 0.4, RotY: -0.3, RotZ: 0.2}},
	}
	points := [][2]int{{60, 48}, {10, 20}, {100, 80}, {73, 31}}

	for _, tc := range cameras {
		t.Run(tc.name, func(t *testing.T) {
			for _, pt := range points {
				p, ok := tc.cam.Unproject(pt[0], pt[1], 120, 96)
				if !ok {
					t.Fatalf("no hit for %v", pt)
				}
				x, y, _, _ := tc.cam.Project(mgl64.Vec3{p.X(), p.Y(), 0}, 120, 96)
				if x != pt[0] || y != pt[1] {
					t.Errorf("screen %v -> plane %v -> screen (%d, %d)", pt, p, x, y)
				}
			}
		})
	}
}

func TestUnprojectEdgeOn(t *testing.T) {
	cam := &Camera{Distance: 6, Zoom: 1, Near: 0.1, RotX: math.Pi / 2}
	if _, ok := cam.Unproject(70, 48, 120, 96); ok {
		t.Error("expected no hit with the plane edge-on")
	}
}

func TestAddIcon(t *testing.T) {
	w := NewWireframe()
	w.AddIcon(cluster.Transform{Orientation: mgl64.QuatIdent(), Icon: 2}, 0.1)
	if len(w.Edges) != 6 {
		t.Fatalf("expected 6 edges, got %d", len(w.Edges))
	}
	if w.Edges[0].Start != (mgl64.Vec3{-0.1, -0.1, 0}) {
		t.Errorf("unexpected corner %v", w.Edges[0].Start)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 7, 7, 0}, 4); got != "▁██▁" {
		t.Errorf("unexpected sparkline %q", got)
	}
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("unexpected empty sparkline %q", got)
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	cfg := cluster.DefaultConfig()
	cfg.Count = 6
	mount := func(c cluster.Config) (*sim.Simulator, error) {
		st, err := cluster.Initialize(c.Count, c, rand.New(rand.NewSource(1)))
		if err != nil {
			return nil, err
		}
		return sim.New(st, nil), nil
	}
	m, err := NewModel("magnets", cfg, cluster.DefaultAssembly(), 60, mount)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelTicks(t *testing.T) {
	m := newTestModel(t)
	for i := 0; i < 5; i++ {
		m = update(m, TickMsg(time.Now()))
	}
	if m.frame != 5 {
		t.Errorf("expected 5 frames, got %d", m.frame)
	}
	if len(m.energyHistory) != 5 {
		t.Errorf("expected 5 energy samples, got %d", len(m.energyHistory))
	}

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}})
	m = update(m, TickMsg(time.Now()))
	if m.frame != 5 {
		t.Errorf("paused model advanced to frame %d", m.frame)
	}
	if !strings.Contains(m.View(), "MAGNETS") {
		t.Error("view missing title")
	}
}

func TestModelMouseDrivesPointer(t *testing.T) {
	m := newTestModel(t)
	m = update(m, tea.MouseMsg{X: padLeft + 30, Y: padTop + 12, Action: tea.MouseActionMotion})

	got := m.sim.Pointer().Position()
	want := mgl64.Vec2{1.0 / 32, -2.0 / 32}
	if !got.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("expected pointer %v, got %v", want, got)
	}

	before := got
	m = update(m, tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionMotion})
	if m.sim.Pointer().Position() != before {
		t.Error("mouse outside the canvas moved the pointer")
	}
}

func TestModelKeys(t *testing.T) {
	m := newTestModel(t)
	key := func(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

	m = update(m, key("m"))
	if m.sim.State().Config().Integration != cluster.IntegrationScaled {
		t.Error("m did not switch to scaled integration")
	}

	m = update(m, tea.KeyMsg{Type: tea.KeyUp})
	if got := m.cfg.SpringStiffness; math.Abs(got-cluster.DefaultSpringStiffness*1.05) > 1e-12 {
		t.Errorf("expected tuned stiffness, got %f", got)
	}

	m = update(m, TickMsg(time.Now()))
	old := m.sim
	m = update(m, key("r"))
	if m.sim == old || m.frame != 0 {
		t.Error("r did not remount")
	}
	if m.sim.State().Config().SpringStiffness != m.cfg.SpringStiffness {
		t.Error("remount ignored tuned config")
	}
	if m.sim.State().Config().Integration != cluster.IntegrationScaled {
		t.Error("remount lost integration mode")
	}
}

func TestNewModelRejectsFPS(t *testing.T) {
	if _, err := NewModel("x", cluster.DefaultConfig(), cluster.DefaultAssembly(), 0, nil); err == nil {
		t.Error("expected error for zero fps")
	}
}

func TestModelOrbitRing(t *testing.T) {
	m := newTestModel(t)
	key := func(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

	m = update(m, tea.MouseMsg{X: padLeft + 30, Y: padTop + 12, Action: tea.MouseActionMotion})
	if got := m.orbits.Intensity(); got != 1 {
		t.Errorf("expected hover intensity 1, got %f", got)
	}
	m = update(m, tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionMotion})
	if got := m.orbits.Intensity(); got != 0 {
		t.Errorf("expected hover to end outside the canvas, got %f", got)
	}

	m = update(m, tea.MouseMsg{X: padLeft + 30, Y: padTop + 12, Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	if got := m.orbits.Intensity(); got != 2 {
		t.Errorf("expected wheel kick of 2, got %f", got)
	}

	m = update(m, TickMsg(time.Now()))
	if m.orbits.Angle(0) >= 0 {
		t.Errorf("orbit did not spin, angle %f", m.orbits.Angle(0))
	}

	before := m.canvas.String()
	m = update(m, key("o"))
	if !m.showOrbits {
		t.Fatal("o did not show the orbit ring")
	}
	m.running = false
	m = update(m, TickMsg(time.Now()))
	if m.canvas.String() == before {
		t.Error("orbit ring not drawn")
	}
}
