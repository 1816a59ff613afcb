package cluster

import "github.com/go-gl/mathgl/mgl64"

// Transform is what a renderer needs to place one icon mesh.
type Transform struct {
	Position    mgl64.Vec3
	Rotation    mgl64.Vec3
	Orientation mgl64.Quat
	Icon        int
}

// Snapshot writes the current transforms into dst, growing it only when
// its capacity is too small, and returns it. The caller owns the result.
func (s *State) Snapshot(dst []Transform) []Transform {
	n := len(s.items)
	if cap(dst) < n {
		dst = make([]Transform, n)
	}
	dst = dst[:n]
	for i := range s.items {
		it := &s.items[i]
		r := it.Rotation
		dst[i] = Transform{
			Position:    it.Position,
			Rotation:    r,
			Orientation: mgl64.AnglesToQuat(r[0], r[1], r[2], mgl64.XYZ),
			Icon:        it.icon,
		}
	}
	return dst
}
