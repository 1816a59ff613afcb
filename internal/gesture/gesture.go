// Package gesture provides scripted pointer paths for driving a cluster
// without a human at the mouse.
package gesture

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/magnetsim/internal/cluster"
)

var ErrUnknownGesture = errors.New("gesture: unknown gesture")

// Driver returns the pointer position at a frame. t is frame*dt seconds.
type Driver interface {
	Position(frame int, t float64) mgl64.Vec2
}

// Still parks the pointer.
type Still struct {
	At mgl64.Vec2
}

func (s Still) Position(int, float64) mgl64.Vec2 { return s.At }

// Jump holds From until frame At, then holds To.
type Jump struct {
	From, To mgl64.Vec2
	At       int
}

func (j Jump) Position(frame int, _ float64) mgl64.Vec2 {
	if frame >= j.At {
		return j.To
	}
	return j.From
}

// Sweep moves linearly from From to To between frames Start and End.
type Sweep struct {
	From, To   mgl64.Vec2
	Start, End int
}

func (s Sweep) Position(frame int, _ float64) mgl64.Vec2 {
	switch {
	case frame <= s.Start:
		return s.From
	case frame >= s.End:
		return s.To
	}
	u := float64(frame-s.Start) / float64(s.End-s.Start)
	return s.From.Add(s.To.Sub(s.From).Mul(u))
}

// Orbit circles Center at Radius, Frequency turns per second.
type Orbit struct {
	Center    mgl64.Vec2
	Radius    float64
	Frequency float64
}

func (o Orbit) Position(_ int, t float64) mgl64.Vec2 {
	a := 2 * math.Pi * o.Frequency * t
	return o.Center.Add(mgl64.Vec2{math.Cos(a), math.Sin(a)}.Mul(o.Radius))
}

type Keyframe struct {
	Frame int        `yaml:"frame"`
	At    mgl64.Vec2 `yaml:"at"`
}

// Keyframes interpolates linearly between keys and holds the ends.
type Keyframes struct {
	keys []Keyframe
}

func NewKeyframes(keys ...Keyframe) *Keyframes {
	k := make([]Keyframe, len(keys))
	copy(k, keys)
	sort.SliceStable(k, func(i, j int) bool { return k[i].Frame < k[j].Frame })
	return &Keyframes{keys: k}
}

func (k *Keyframes) Position(frame int, _ float64) mgl64.Vec2 {
	if len(k.keys) == 0 {
		return mgl64.Vec2{}
	}
	i := sort.Search(len(k.keys), func(i int) bool { return k.keys[i].Frame > frame })
	if i == 0 {
		return k.keys[0].At
	}
	if i == len(k.keys) {
		return k.keys[i-1].At
	}
	a, b := k.keys[i-1], k.keys[i]
	u := float64(frame-a.Frame) / float64(b.Frame-a.Frame)
	return a.At.Add(b.At.Sub(a.At).Mul(u))
}

// Manual follows a live pointer fed by an input source.
type Manual struct {
	Pointer *cluster.Pointer
}

func (m Manual) Position(int, float64) mgl64.Vec2 { return m.Pointer.Position() }

// Far is a position well outside any default mouse radius.
var Far = mgl64.Vec2{10, 10}

// Named returns one of the built-in gestures, sized for a run of frames.
func Named(name string, frames int) (Driver, error) {
	if frames < 2 {
		frames = 2
	}
	switch name {
	case "still", "idle":
		return Still{At: Far}, nil
	case "poke":
		return Jump{From: mgl64.Vec2{}, To: mgl64.Vec2{0.1, 0}, At: 1}, nil
	case "sweep":
		return Sweep{From: mgl64.Vec2{-1.5, 0}, To: mgl64.Vec2{1.5, 0}, Start: 0, End: frames / 2}, nil
	case "orbit":
		return Orbit{Radius: 0.5, Frequency: 0.5}, nil
	case "zigzag":
		return NewKeyframes(
			Keyframe{0, mgl64.Vec2{-1, -0.5}},
			Keyframe{frames / 4, mgl64.Vec2{1, 0.5}},
			Keyframe{frames / 2, mgl64.Vec2{-1, 0.5}},
			Keyframe{3 * frames / 4, mgl64.Vec2{1, -0.5}},
		), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGesture, name)
}

func Names() []string {
	return []string{"still", "poke", "sweep", "orbit", "zigzag"}
}
