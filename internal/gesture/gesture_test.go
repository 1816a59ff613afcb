package gesture

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/magnetsim/internal/cluster"
)

func near(a, b mgl64.Vec2) bool {
	return a.Sub(b).Len() < 1e-12
}

func TestDrivers(t *testing.T) {
	tests := []struct {
		name   string
		driver Driver
		frame  int
		t      float64
		want   mgl64.Vec2
	}{
		{"still", Still{At: mgl64.Vec2{1, 2}}, 40, 0.6, mgl64.Vec2{1, 2}},
		{"jump before", Jump{To: mgl64.Vec2{1, 0}, At: 5}, 4, 0, mgl64.Vec2{}},
		{"jump at", Jump{To: mgl64.Vec2{1, 0}, At: 5}, 5, 0, mgl64.Vec2{1, 0}},
		{"sweep start", Sweep{From: mgl64.Vec2{-1, 0}, To: mgl64.Vec2{1, 0}, Start: 10, End: 20}, 0, 0, mgl64.Vec2{-1, 0}},
		{"sweep middle", Sweep{From: mgl64.Vec2{-1, 0}, To: mgl64.Vec2{1, 0}, Start: 10, End: 20}, 15, 0, mgl64.Vec2{0, 0}},
		{"sweep end", Sweep{From: mgl64.Vec2{-1, 0}, To: mgl64.Vec2{1, 0}, Start: 10, End: 20}, 99, 0, mgl64.Vec2{1, 0}},
		{"orbit start", Orbit{Radius: 0.5, Frequency: 1}, 0, 0, mgl64.Vec2{0.5, 0}},
		{"orbit quarter", Orbit{Radius: 0.5, Frequency: 1}, 0, 0.25, mgl64.Vec2{0, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.driver.Position(tt.frame, tt.t); !near(got, tt.want) {
				t.Errorf("Position() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyframes(t *testing.T) {
	k := NewKeyframes(
		Keyframe{Frame: 10, At: mgl64.Vec2{1, 1}},
		Keyframe{Frame: 0, At: mgl64.Vec2{0, 0}},
		Keyframe{Frame: 20, At: mgl64.Vec2{1, -1}},
	)

	tests := []struct {
		frame int
		want  mgl64.Vec2
	}{
		{-5, mgl64.Vec2{0, 0}},
		{0, mgl64.Vec2{0, 0}},
		{5, mgl64.Vec2{0.5, 0.5}},
		{10, mgl64.Vec2{1, 1}},
		{15, mgl64.Vec2{1, 0}},
		{40, mgl64.Vec2{1, -1}},
	}
	for _, tt := range tests {
		if got := k.Position(tt.frame, 0); !near(got, tt.want) {
			t.Errorf("frame %d: got %v, want %v", tt.frame, got, tt.want)
		}
	}

	if got := NewKeyframes().Position(3, 0); got != (mgl64.Vec2{}) {
		t.Errorf("empty keyframes: got %v", got)
	}
}

func TestManualFollowsPointer(t *testing.T) {
	p := cluster.NewPointer(mgl64.Vec2{})
	m := Manual{Pointer: p}
	p.Sample(mgl64.Vec2{0.3, -0.2})
	if got := m.Position(0, 0); got != (mgl64.Vec2{0.3, -0.2}) {
		t.Errorf("got %v", got)
	}
}

func TestNamed(t *testing.T) {
	for _, name := range Names() {
		d, err := Named(name, 120)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		p := d.Position(30, 0.5)
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			t.Errorf("%s: NaN position", name)
		}
	}

	if _, err := Named("wobble", 10); !errors.Is(err, ErrUnknownGesture) {
		t.Errorf("expected ErrUnknownGesture, got %v", err)
	}
}
