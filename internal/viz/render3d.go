package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/magnetsim/internal/cluster"
)

// Camera projects cluster space onto the canvas. The eye sits on the +Z
// axis looking at the origin; RotX/RotY/RotZ turn the scene, not the eye.
type Camera struct {
	Distance         float64
	RotX, RotY, RotZ float64
	Zoom             float64
	Near             float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 6, Zoom: 1, Near: 0.1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }
func (c *Camera) Reset()            { c.RotX, c.RotY, c.RotZ, c.Zoom = 0, 0, 0, 1 }

// Rotation applies X, then Y, then Z.
func (c *Camera) Rotation() mgl64.Mat3 {
	return mgl64.Rotate3DZ(c.RotZ).Mul3(mgl64.Rotate3DY(c.RotY)).Mul3(mgl64.Rotate3DX(c.RotX))
}

func (c *Camera) RotatePoint(p mgl64.Vec3) mgl64.Vec3 {
	return c.Rotation().Mul3x1(p)
}

// pixelScale maps one world unit to sub-pixels so that ±1.5 fills the
// shorter screen side at zoom 1.
func pixelScale(sw, sh int) float64 {
	return math.Min(float64(sw), float64(sh)) / 3.0
}

// Project converts a world point to screen coordinates.
// Returns x, y, depth, and visibility.
func (c *Camera) Project(p mgl64.Vec3, sw, sh int) (int, int, float64, bool) {
	rot := c.RotatePoint(p).Mul(c.Zoom)
	if rot.Z() >= c.Distance-c.Near {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - rot.Z()) * pixelScale(sw, sh)
	sx := int(math.Round(rot.X()*scale)) + sw/2
	sy := int(math.Round(-rot.Y()*scale)) + sh/2
	return sx, sy, rot.Z(), sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

// Unproject casts the ray through screen point (sx, sy) and returns where
// it meets the simulation plane z = 0. It reports false when the plane is
// seen edge-on.
func (c *Camera) Unproject(sx, sy, sw, sh int) (mgl64.Vec2, bool) {
	ps := pixelScale(sw, sh)
	a := float64(sx-sw/2) / ps
	b := -float64(sy-sh/2) / ps

	// Camera-space points that project to (a, b) lie on origin + s*dir.
	origin := mgl64.Vec3{a, b, 0}
	dir := mgl64.Vec3{-a / c.Distance, -b / c.Distance, 1}

	inv := c.Rotation().Transpose()
	row := inv.Row(2)
	denom := row.Dot(dir)
	if math.Abs(denom) < 1e-9 {
		return mgl64.Vec2{}, false
	}
	s := -row.Dot(origin) / denom
	world := inv.Mul3x1(origin.Add(dir.Mul(s))).Mul(1 / c.Zoom)
	return mgl64.Vec2{world.X(), world.Y()}, true
}

type Edge struct {
	Start, End mgl64.Vec3
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe                { return &Wireframe{Edges: make([]Edge, 0)} }
func (w *Wireframe) AddEdge(s, e mgl64.Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) AddPoint(p mgl64.Vec3)   { w.Edges = append(w.Edges, Edge{p, p}) }
func (w *Wireframe) Clear()                  { w.Edges = w.Edges[:0] }

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// Render3D draws the wireframe back to front.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	cw, ch := c.SubWidth(), c.SubHeight()
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, cw, ch)
		x2, y2, d2, v2 := cam.Project(e.End, cw, ch)
		if v1 || v2 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		if e.x1 == e.x2 && e.y1 == e.y2 {
			c.Set(e.x1, e.y1)
		} else {
			c.DrawLine(e.x1, e.y1, e.x2, e.y2)
		}
	}
}

// AddIcon adds a square tile of half-size r, turned by the transform's
// orientation. Icon 0 is a plain square; other icons get a diagonal per
// icon index so neighbouring meshes are told apart.
func (w *Wireframe) AddIcon(tr cluster.Transform, r float64) {
	local := [4]mgl64.Vec3{{-r, -r, 0}, {r, -r, 0}, {r, r, 0}, {-r, r, 0}}
	var v [4]mgl64.Vec3
	for i, p := range local {
		v[i] = tr.Orientation.Rotate(p).Add(tr.Position)
	}
	for i := range v {
		w.AddEdge(v[i], v[(i+1)%4])
	}
	switch tr.Icon % 3 {
	case 1:
		w.AddEdge(v[0], v[2])
	case 2:
		w.AddEdge(v[0], v[2])
		w.AddEdge(v[1], v[3])
	}
}

// BoundsWireframe outlines the box the cluster spawns in.
func BoundsWireframe(bounds mgl64.Vec3) *Wireframe {
	w := NewWireframe()
	x, y, z := bounds.X(), bounds.Y(), bounds.Z()
	v := []mgl64.Vec3{{-x, -y, -z}, {x, -y, -z}, {x, y, -z}, {-x, y, -z}, {-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z}}
	ei := [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}
	for _, e := range ei {
		w.AddEdge(v[e[0]], v[e[1]])
	}
	return w
}

// AddCross marks a plane point, used for the pointer.
func (w *Wireframe) AddCross(p mgl64.Vec2, size float64) {
	w.AddEdge(mgl64.Vec3{p.X() - size, p.Y(), 0}, mgl64.Vec3{p.X() + size, p.Y(), 0})
	w.AddEdge(mgl64.Vec3{p.X(), p.Y() - size, 0}, mgl64.Vec3{p.X(), p.Y() + size, 0})
}
