package umlcanvas

import (
	"math"

	"oss.terrastruct.com/umlcanvas/lib/geo"
	"oss.terrastruct.com/umlcanvas/lib/go2"
	"oss.terrastruct.com/umlcanvas/umllayout"
)

const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 5.
)

// Viewport maps screen coordinates to world coordinates:
// screen = world*Scale + Offset.
type Viewport struct {
	OffsetX float64
	OffsetY float64
	Scale   float64

	ScreenW float64
	ScreenH float64

	MinScale float64
	MaxScale float64
}

func NewViewport(screenW, screenH float64) *Viewport {
	return &Viewport{
		Scale:    1,
		ScreenW:  screenW,
		ScreenH:  screenH,
		MinScale: DefaultMinScale,
		MaxScale: DefaultMaxScale,
	}
}

func (vp *Viewport) ScreenToWorld(p *geo.Point) *geo.Point {
	return geo.NewPoint((p.X-vp.OffsetX)/vp.Scale, (p.Y-vp.OffsetY)/vp.Scale)
}

func (vp *Viewport) WorldToScreen(p *geo.Point) *geo.Point {
	return geo.NewPoint(p.X*vp.Scale+vp.OffsetX, p.Y*vp.Scale+vp.OffsetY)
}

// Pan moves the world by a screen delta.
func (vp *Viewport) Pan(dx, dy float64) {
	vp.OffsetX += dx
	vp.OffsetY += dy
}

// ZoomAt multiplies the scale by factor, clamped to [MinScale, MaxScale],
// keeping the world point under the screen point p fixed. Unset bounds and
// scale take their defaults.
func (vp *Viewport) ZoomAt(p *geo.Point, factor float64) {
	if vp.MinScale <= 0 {
		vp.MinScale = DefaultMinScale
	}
	if vp.MaxScale <= 0 {
		vp.MaxScale = DefaultMaxScale
	}
	vp.MaxScale = go2.Max(vp.MinScale, vp.MaxScale)
	if vp.Scale <= 0 {
		vp.Scale = 1
	}
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	prev := vp.Scale
	next := go2.Clamp(prev*factor, vp.MinScale, vp.MaxScale)
	vp.OffsetX = p.X - (p.X-vp.OffsetX)*next/prev
	vp.OffsetY = p.Y - (p.Y-vp.OffsetY)*next/prev
	vp.Scale = next
}

func (vp *Viewport) Reset() {
	vp.OffsetX = 0
	vp.OffsetY = 0
	vp.Scale = 1
}

// VisibleBounds is the world rectangle covered by the screen.
func (vp *Viewport) VisibleBounds() *geo.Box {
	tl := vp.ScreenToWorld(geo.NewPoint(0, 0))
	return geo.NewBox(tl, vp.ScreenW/vp.Scale, vp.ScreenH/vp.Scale)
}

// GridLine is one background line, given by its world coordinate.
type GridLine struct {
	Pos   float64
	Major bool
}

// GridLines returns the vertical and horizontal grid lines that cover the
// visible bounds. Every majorEvery-th line, counted from the world origin, is
// a major line.
func (vp *Viewport) GridLines(cellSize float64, majorEvery int) (vertical, horizontal []GridLine) {
	if cellSize <= 0 {
		cellSize = umllayout.DefaultCellSize
	}
	if majorEvery <= 0 {
		majorEvery = 1
	}
	b := vp.VisibleBounds()
	lines := func(from, to float64) []GridLine {
		var out []GridLine
		start := math.Floor(from/cellSize) * cellSize
		end := math.Ceil(to/cellSize) * cellSize
		for x := start; x <= end; x += cellSize {
			idx := int(math.Round(x / cellSize))
			out = append(out, GridLine{Pos: x, Major: idx%majorEvery == 0})
		}
		return out
	}
	return lines(b.Left(), b.Right()), lines(b.Top(), b.Bottom())
}

// Layout is the viewport as seen by the placement planner.
func (vp *Viewport) Layout() umllayout.Viewport {
	return umllayout.Viewport{
		OffsetX: vp.OffsetX,
		OffsetY: vp.OffsetY,
		Scale:   vp.Scale,
		ScreenW: vp.ScreenW,
		ScreenH: vp.ScreenH,
	}
}
