package geo

import (
	"fmt"
	"math"
)

// anchorEpsilon is the smallest vector component treated as non-zero
// when projecting onto a box border.
const anchorEpsilon = 1e-6

type Box struct {
	TopLeft *Point
	Width   float64
	Height  float64
}

func NewBox(tl *Point, width, height float64) *Box {
	return &Box{
		TopLeft: tl,
		Width:   width,
		Height:  height,
	}
}

func (b *Box) Copy() *Box {
	if b == nil {
		return nil
	}
	return NewBox(b.TopLeft.Copy(), b.Width, b.Height)
}

func (b *Box) Center() *Point {
	return NewPoint(b.TopLeft.X+b.Width/2, b.TopLeft.Y+b.Height/2)
}

func (b *Box) Left() float64   { return b.TopLeft.X }
func (b *Box) Top() float64    { return b.TopLeft.Y }
func (b *Box) Right() float64  { return b.TopLeft.X + b.Width }
func (b *Box) Bottom() float64 { return b.TopLeft.Y + b.Height }

// Contains reports whether p lies inside the box or on its border.
func (b *Box) Contains(p *Point) bool {
	return p.X >= b.Left() && p.X <= b.Right() &&
		p.Y >= b.Top() && p.Y <= b.Bottom()
}

// Padded returns a copy grown by pad on every side.
func (b *Box) Padded(pad float64) *Box {
	return NewBox(NewPoint(b.TopLeft.X-pad, b.TopLeft.Y-pad), b.Width+2*pad, b.Height+2*pad)
}

// Overlaps is the inclusive axis-aligned intersection test: touching
// borders count as overlapping.
func (b *Box) Overlaps(o *Box) bool {
	return b.Left() <= o.Right() && b.Right() >= o.Left() &&
		b.Top() <= o.Bottom() && b.Bottom() >= o.Top()
}

// AnchorToward returns the point on the border of b that lies on the ray from
// b's center through target. When target is the center, the center is returned.
func (b *Box) AnchorToward(target *Point) *Point {
	center := b.Center()
	tx := target.X - center.X
	ty := target.Y - center.Y
	if math.Abs(tx) < anchorEpsilon && math.Abs(ty) < anchorEpsilon {
		return center
	}

	hx := b.Width / 2
	hy := b.Height / 2

	sx := math.Inf(1)
	if math.Abs(tx) >= anchorEpsilon {
		sx = hx / math.Abs(tx)
	}
	sy := math.Inf(1)
	if math.Abs(ty) >= anchorEpsilon {
		sy = hy / math.Abs(ty)
	}
	s := math.Min(sx, sy)
	return NewPoint(center.X+tx*s, center.Y+ty*s)
}

// OnBorder reports whether p lies on one of the four edges of b, within e.
func (b *Box) OnBorder(p *Point, e float64) bool {
	withinX := p.X >= b.Left()-e && p.X <= b.Right()+e
	withinY := p.Y >= b.Top()-e && p.Y <= b.Bottom()+e
	onVertical := PrecisionCompare(p.X, b.Left(), e) == 0 || PrecisionCompare(p.X, b.Right(), e) == 0
	onHorizontal := PrecisionCompare(p.Y, b.Top(), e) == 0 || PrecisionCompare(p.Y, b.Bottom(), e) == 0
	return (onVertical && withinY) || (onHorizontal && withinX)
}

func (b *Box) ToString() string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("{TopLeft: %s, Width: %.0f, Height: %.0f}", b.TopLeft.ToString(), b.Width, b.Height)
}
