// Package umllayout places new shapes and spreads parallel edges. It never
// moves existing shapes.
package umllayout

import (
	"math"

	"oss.terrastruct.com/umlcanvas/lib/geo"
	"oss.terrastruct.com/umlcanvas/lib/go2"
)

const (
	DefaultShapeWidth  = 80.
	DefaultShapeHeight = 80.
	DefaultCellSize    = 64.
	DefaultScreenW     = 800.
	DefaultScreenH     = 600.

	maxPadding = 16.
	minStep    = 8.
)

// Viewport is the visible part of the surface. Offset is the screen position
// of the world origin.
type Viewport struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Scale   float64 `json:"scale"`
	ScreenW float64 `json:"screenW"`
	ScreenH float64 `json:"screenH"`
}

func (vp Viewport) withDefaults() Viewport {
	if vp.Scale <= 0 {
		vp.Scale = 1
	}
	if vp.ScreenW <= 0 {
		vp.ScreenW = DefaultScreenW
	}
	if vp.ScreenH <= 0 {
		vp.ScreenH = DefaultScreenH
	}
	return vp
}

// WorldCenter is the world point under the middle of the screen.
func (vp Viewport) WorldCenter() *geo.Point {
	vp = vp.withDefaults()
	return geo.NewPoint(
		(vp.ScreenW/2-vp.OffsetX)/vp.Scale,
		(vp.ScreenH/2-vp.OffsetY)/vp.Scale,
	)
}

// Placer searches for free spots on a grid.
type Placer struct {
	CellSize float64
}

func NewPlacer(cellSize float64) *Placer {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Placer{CellSize: cellSize}
}

func (p *Placer) padding() float64 {
	return go2.Min(p.CellSize, maxPadding)
}

func (p *Placer) step() float64 {
	return go2.Max(minStep, p.CellSize/2)
}

func (p *Placer) isFree(x, y, w, h float64, boxes []*geo.Box) bool {
	candidate := geo.NewBox(geo.NewPoint(x, y), w, h).Padded(p.padding())
	for _, b := range boxes {
		if candidate.Overlaps(b) {
			return false
		}
	}
	return true
}

// FindFreeSpot returns a top-left corner near the viewport center where a
// w×h box, padded on every side, overlaps none of boxes. Candidates are
// tried on square rings of growing radius around the center. When every ring
// up to twice the screen size is taken, the center itself is returned.
// The result is rounded to whole units.
func (p *Placer) FindFreeSpot(w, h float64, boxes []*geo.Box, vp Viewport) *geo.Point {
	if w <= 0 {
		w = DefaultShapeWidth
	}
	if h <= 0 {
		h = DefaultShapeHeight
	}
	vp = vp.withDefaults()
	center := vp.WorldCenter()
	cx, cy := center.X, center.Y

	if p.isFree(cx, cy, w, h, boxes) {
		return center.Round()
	}

	s := p.step()
	maxSteps := int(math.Ceil(go2.Max(vp.ScreenW, vp.ScreenH) * 2 / s))
	for layer := 1; layer <= maxSteps; layer++ {
		l := float64(layer)
		for i := -layer; i <= layer; i++ {
			fi := float64(i)
			candidates := [4][2]float64{
				{cx + fi*s, cy - l*s},
				{cx + fi*s, cy + l*s},
				{cx - l*s, cy + fi*s},
				{cx + l*s, cy + fi*s},
			}
			for _, c := range candidates {
				if p.isFree(c[0], c[1], w, h, boxes) {
					return geo.NewPoint(c[0], c[1]).Round()
				}
			}
		}
	}
	return center.Round()
}

// FindFreeSpot is Placer.FindFreeSpot with the given cell size.
func FindFreeSpot(w, h float64, boxes []*geo.Box, vp Viewport, cellSize float64) *geo.Point {
	return NewPlacer(cellSize).FindFreeSpot(w, h, boxes, vp)
}
