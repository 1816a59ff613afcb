package analysis

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds position against per-frame velocity for one axis of
// an item track.
type PhasePortrait2D struct {
	Axis   int
	Points []Point
}

// NewPhasePortrait builds the portrait of track along axis (0 x, 1 y, 2 z).
func NewPhasePortrait(track []mgl64.Vec3, axis int) *PhasePortrait2D {
	if axis < 0 || axis > 2 || len(track) < 2 {
		return nil
	}

	portrait := &PhasePortrait2D{
		Axis:   axis,
		Points: make([]Point, 0, len(track)-1),
	}
	for i := 1; i < len(track); i++ {
		portrait.Points = append(portrait.Points, Point{
			X: track[i][axis],
			Y: track[i][axis] - track[i-1][axis],
		})
	}

	return portrait
}

// PhasePortraitToASCII plots a portrait on a width x height grid of runes.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
