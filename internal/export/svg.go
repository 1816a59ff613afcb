package export

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/magnetsim/internal/analysis"
	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/sim"
	"github.com/san-kum/magnetsim/internal/viz"
)

// iconColors cycles per icon index.
var iconColors = []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff8800", "#8888ff"}

func header(sb *strings.Builder, width, height float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

// CanvasToSVG converts a braille canvas to one dot per lit sub-pixel.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	var sb strings.Builder
	header(&sb, float64(canvas.SubWidth())*scale, float64(canvas.SubHeight())*scale)
	sb.WriteString("<g fill=\"#00ff00\">\n")

	dotRadius := scale * 0.4
	for y := 0; y < canvas.SubHeight(); y++ {
		for x := 0; x < canvas.SubWidth(); x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

type extent struct {
	minX, minY, rangeX, rangeY float64
}

// fit pads the bounding box of points by 10% on each side.
func fit(points []analysis.Point) extent {
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	return extent{minX - rangeX*0.1, minY - rangeY*0.1, rangeX * 1.2, rangeY * 1.2}
}

func (e extent) screen(p analysis.Point, width, height int) (float64, float64) {
	x := (p.X - e.minX) / e.rangeX * float64(width)
	y := float64(height) - (p.Y-e.minY)/e.rangeY*float64(height)
	return x, y
}

func writePath(sb *strings.Builder, points []analysis.Point, e extent, width, height int, stroke string) {
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)
	for i, p := range points {
		x, y := e.screen(p, width, height)
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

// TrajectoryToSVG draws points as one polyline scaled to fill the image,
// for example a phase portrait.
func TrajectoryToSVG(points []analysis.Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	var sb strings.Builder
	header(&sb, float64(width), float64(height))
	writePath(&sb, points, fit(points), width, height, strokeColor)
	sb.WriteString("</svg>")
	return sb.String()
}

// TracksToSVG draws the XY path of every item of a recorded run on shared
// axes, coloured by icon.
func TracksToSVG(result *sim.Result, width, height int) string {
	if result == nil || len(result.Frames) < 2 {
		return ""
	}

	tracks := make([][]analysis.Point, len(result.Frames[0]))
	all := make([]analysis.Point, 0, len(tracks)*len(result.Frames))
	for i := range tracks {
		for _, p := range result.Track(i) {
			tracks[i] = append(tracks[i], analysis.Point{X: p.X(), Y: p.Y()})
		}
		all = append(all, tracks[i]...)
	}

	if len(all) < 2 {
		return ""
	}

	e := fit(all)
	var sb strings.Builder
	header(&sb, float64(width), float64(height))
	for i, tr := range tracks {
		color := iconColors[result.Frames[0][i].Icon%len(iconColors)]
		writePath(&sb, tr, e, width, height, color)
	}
	sb.WriteString("</svg>")
	return sb.String()
}

// FrameToSVG is a top-down view of one frame: the spawn bounds, the
// pointer's reach and one disc per item sized by its collision radius.
// Items nearer the camera (larger z) are drawn last.
func FrameToSVG(frame []cluster.Transform, pointer mgl64.Vec2, cfg cluster.Config, size int) string {
	half := 2 * math.Max(cfg.Bounds.X(), cfg.Bounds.Y())
	scale := float64(size) / (2 * half)
	toScreen := func(x, y float64) (float64, float64) {
		return (x + half) * scale, (half - y) * scale
	}

	var sb strings.Builder
	header(&sb, float64(size), float64(size))

	bx, by := toScreen(-cfg.Bounds.X(), cfg.Bounds.Y())
	fmt.Fprintf(&sb, "<rect x=\"%.1f\" y=\"%.1f\" width=\"%.1f\" height=\"%.1f\" fill=\"none\" stroke=\"#444466\" stroke-dasharray=\"4 4\"/>\n",
		bx, by, 2*cfg.Bounds.X()*scale, 2*cfg.Bounds.Y()*scale)

	order := make([]int, len(frame))
	for i := range order {
		order[i] = i
	}
	sortByDepth(order, frame)

	for _, i := range order {
		tr := frame[i]
		cx, cy := toScreen(tr.Position.X(), tr.Position.Y())
		heading := tr.Orientation.Rotate(mgl64.Vec3{cfg.ItemRadius, 0, 0})
		hx, hy := toScreen(tr.Position.X()+heading.X(), tr.Position.Y()+heading.Y())
		color := iconColors[tr.Icon%len(iconColors)]
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\" fill=\"%s\" fill-opacity=\"0.6\"/>\n",
			cx, cy, cfg.ItemRadius*scale, color)
		fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\" stroke=\"#ffffff\"/>\n", cx, cy, hx, hy)
	}

	px, py := toScreen(pointer.X(), pointer.Y())
	fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\" fill=\"none\" stroke=\"#ff4444\" stroke-dasharray=\"2 3\"/>\n",
		px, py, cfg.MouseRadius*scale)

	sb.WriteString("</svg>")
	return sb.String()
}

func sortByDepth(order []int, frame []cluster.Transform) {
	sort.SliceStable(order, func(a, b int) bool {
		return frame[order[a]].Position.Z() < frame[order[b]].Position.Z()
	})
}

// WriteFile writes an SVG document to path.
func WriteFile(path, svg string) error {
	return os.WriteFile(path, []byte(svg), 0644)
}
