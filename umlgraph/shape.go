package umlgraph

import (
	"github.com/google/uuid"

	"oss.terrastruct.com/umlcanvas/lib/geo"
)

// MinShapeSize keeps boxes non-degenerate under resize.
const MinShapeSize = 1.

// Shape is a positioned, axis-aligned diagram node.
type Shape struct {
	ID   string
	Box  *geo.Box
	Kind ShapeKind
}

// NewShape creates a shape of kind k with its default size at (x, y).
func NewShape(k ShapeKind, x, y float64) *Shape {
	w, h := DefaultSize(k)
	return &Shape{
		ID:   uuid.NewString(),
		Box:  geo.NewBox(geo.NewPoint(x, y), w, h),
		Kind: k,
	}
}

func (s *Shape) Type() string {
	return s.Kind.Type()
}

func (s *Shape) Name() string {
	return ShapeName(s.Kind)
}

func (s *Shape) Center() *geo.Point {
	return s.Box.Center()
}

// AnchorToward is the point on the border of s on the line from its center to target.
func (s *Shape) AnchorToward(target *geo.Point) *geo.Point {
	return s.Box.AnchorToward(target)
}

func (s *Shape) ContainsPoint(p *geo.Point) bool {
	return s.Box.Contains(p)
}

func (s *Shape) MoveTo(x, y float64) {
	s.Box.TopLeft = geo.NewPoint(x, y)
}

// Resize sets the dimensions, clamping each to MinShapeSize.
func (s *Shape) Resize(w, h float64) {
	if w < MinShapeSize {
		w = MinShapeSize
	}
	if h < MinShapeSize {
		h = MinShapeSize
	}
	s.Box.Width = w
	s.Box.Height = h
}

// Rename sets the display name, keeping the rest of the payload.
func (s *Shape) Rename(name string) {
	switch k := s.Kind.(type) {
	case Actor:
		k.Name = name
		s.Kind = k
	case UseCase:
		k.Name = name
		s.Kind = k
	case Class:
		k.Name = name
		s.Kind = k
	case Interface:
		k.Name = name
		s.Kind = k
	case SystemBoundary:
		k.Name = name
		s.Kind = k
	}
}

func (s *Shape) IsInterface() bool {
	_, ok := s.Kind.(Interface)
	return ok
}

func (s *Shape) Copy() *Shape {
	return &Shape{
		ID:   s.ID,
		Box:  s.Box.Copy(),
		Kind: copyShapeKind(s.Kind),
	}
}
