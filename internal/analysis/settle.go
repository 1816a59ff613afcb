package analysis

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/magnetsim/internal/cluster"
)

// Axis extracts one component of a track.
func Axis(track []mgl64.Vec3, axis int) []float64 {
	out := make([]float64, len(track))
	for i, p := range track {
		out[i] = p[axis]
	}
	return out
}

// Speeds returns per-frame displacement lengths of a track. The first
// entry is zero.
func Speeds(track []mgl64.Vec3) []float64 {
	out := make([]float64, len(track))
	for i := 1; i < len(track); i++ {
		out[i] = track[i].Sub(track[i-1]).Len()
	}
	return out
}

// SettlingFrame is the first index after which every |series| value stays
// within tol. It returns -1 when the series never settles.
func SettlingFrame(series []float64, tol float64) int {
	settled := -1
	for i := len(series) - 1; i >= 0; i-- {
		if math.Abs(series[i]) > tol {
			break
		}
		settled = i
	}
	return settled
}

// PairSeparation is the distance between items i and j in every frame.
func PairSeparation(frames [][]cluster.Transform, i, j int) []float64 {
	out := make([]float64, 0, len(frames))
	for _, f := range frames {
		if i >= len(f) || j >= len(f) {
			continue
		}
		out = append(out, f[i].Position.Sub(f[j].Position).Len())
	}
	return out
}

// Deviation is the distance of a track from a fixed point in every frame.
func Deviation(track []mgl64.Vec3, from mgl64.Vec3) []float64 {
	out := make([]float64, len(track))
	for i, p := range track {
		out[i] = p.Sub(from).Len()
	}
	return out
}

// WindowPeaks splits series into windows of size and returns the largest
// |value| in each. A trailing partial window is dropped.
func WindowPeaks(series []float64, size int) []float64 {
	if size <= 0 {
		return nil
	}
	out := make([]float64, 0, len(series)/size)
	for start := 0; start+size <= len(series); start += size {
		peak := 0.0
		for _, v := range series[start : start+size] {
			peak = math.Max(peak, math.Abs(v))
		}
		out = append(out, peak)
	}
	return out
}
