package umlgraph

import (
	"math"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"oss.terrastruct.com/umlcanvas/lib/geo"
	"oss.terrastruct.com/umlcanvas/lib/go2"
)

const (
	// offsets smaller than this are treated as no offset
	offsetEpsilon = 1e-4

	// DefaultEdgeTolerance is the world-space hit tolerance at scale 1.
	DefaultEdgeTolerance = 6.

	arrowSize    = 8.
	diamondSize  = 12.
	triangleSize = 14.

	cardinalitySourceGap = 10.
	cardinalityTargetGap = 6.
)

// Edge connects two shapes with a polyline through its waypoints.
type Edge struct {
	ID  string
	Src *Shape
	Dst *Shape

	// Offset shifts the rendered polyline perpendicular to the source-target baseline.
	Offset    float64
	Waypoints []*geo.Point

	Kind EdgeKind
}

func NewEdge(src, dst *Shape, k EdgeKind) *Edge {
	return &Edge{
		ID:   uuid.NewString(),
		Src:  src,
		Dst:  dst,
		Kind: k,
	}
}

func (e *Edge) Type() string {
	return e.Kind.Type()
}

func (e *Edge) Style() EdgeStyle {
	return StyleOf(e.Kind)
}

func (e *Edge) Adornment() Adornment {
	return e.Style().Adornment
}

func (e *Edge) Dashed() bool {
	return e.Style().Dashed
}

func (e *Edge) Label() string {
	return e.Style().Label
}

// SourceAnchor points at the target's center regardless of waypoints so it
// stays put while waypoints are dragged.
func (e *Edge) SourceAnchor() *geo.Point {
	return e.Src.AnchorToward(e.Dst.Center())
}

func (e *Edge) TargetAnchor() *geo.Point {
	return e.Dst.AnchorToward(e.Src.Center())
}

// Route is the unshifted polyline: source anchor, waypoints, target anchor.
func (e *Edge) Route() geo.Route {
	route := make(geo.Route, 0, len(e.Waypoints)+2)
	route = append(route, e.SourceAnchor())
	for _, wp := range e.Waypoints {
		route = append(route, wp.Copy())
	}
	return append(route, e.TargetAnchor())
}

// PerpendicularShift is the vector every rendered point is moved by.
func (e *Edge) PerpendicularShift() geo.Vector {
	if math.Abs(e.Offset) <= offsetEpsilon {
		return geo.NewVector(0, 0)
	}
	sa := e.SourceAnchor()
	ta := e.TargetAnchor()
	nx, ny := geo.GetUnitNormalVector(sa.X, sa.Y, ta.X, ta.Y)
	return geo.NewVector(nx*e.Offset, ny*e.Offset)
}

// RenderedRoute is the route as drawn and hit-tested.
func (e *Edge) RenderedRoute() geo.Route {
	return e.Route().Shift(e.PerpendicularShift())
}

// ContainsPoint reports whether p is within tolerance of the rendered route.
func (e *Edge) ContainsPoint(p *geo.Point, tolerance float64) bool {
	tolerance = go2.Max(tolerance, 0)
	for _, seg := range e.RenderedRoute().Segments() {
		if seg.DistanceTo(p) <= tolerance {
			return true
		}
	}
	return false
}

// InsertAtClosestSegment adds a waypoint on the segment nearest to p and
// returns its index in Waypoints. Segment i runs from route point i to i+1, so
// the new waypoint goes in at index i: segment 0 prepends, the last appends.
// The stored point is unshifted so that it renders exactly at p.
func (e *Edge) InsertAtClosestSegment(p *geo.Point) int {
	seg, _ := e.RenderedRoute().ClosestSegment(p)
	i := go2.Clamp(seg, 0, len(e.Waypoints))
	e.Waypoints = slices.Insert(e.Waypoints, i, e.Unshift(p))
	return i
}

// Unshift maps a rendered position back to stored coordinates.
func (e *Edge) Unshift(p *geo.Point) *geo.Point {
	shift := e.PerpendicularShift()
	if shift.IsZero() {
		return p.Copy()
	}
	return p.AddVector(shift.Multiply(-1))
}

// AddWaypoint appends a waypoint just before the target anchor.
func (e *Edge) AddWaypoint(p *geo.Point) {
	e.Waypoints = append(e.Waypoints, p.Copy())
}

// MoveWaypoint replaces waypoint i. Out of range indices are ignored.
func (e *Edge) MoveWaypoint(i int, p *geo.Point) bool {
	if i < 0 || i >= len(e.Waypoints) {
		return false
	}
	e.Waypoints[i] = p.Copy()
	return true
}

// RemoveWaypoint deletes waypoint i. Out of range indices are ignored.
func (e *Edge) RemoveWaypoint(i int) bool {
	if i < 0 || i >= len(e.Waypoints) {
		return false
	}
	e.Waypoints = slices.Delete(e.Waypoints, i, i+1)
	return true
}

// WaypointHandles are the waypoints where they are drawn, offset included.
func (e *Edge) WaypointHandles() []*geo.Point {
	shift := e.PerpendicularShift()
	out := make([]*geo.Point, 0, len(e.Waypoints))
	for _, wp := range e.Waypoints {
		out = append(out, wp.AddVector(shift))
	}
	return out
}

// LabelPosition is the arc-length midpoint of the rendered route. It reports
// false when the edge has no label.
func (e *Edge) LabelPosition() (*geo.Point, bool) {
	if e.Label() == "" {
		return nil, false
	}
	return e.RenderedRoute().Midpoint(), true
}

// CardinalityPositions places the source label behind the source anchor along
// the first segment and the target label past the target anchor.
func (e *Edge) CardinalityPositions() (src, dst *geo.Point) {
	route := e.RenderedRoute()
	p0, p1 := route[0], route[1]
	pn, pb := route[len(route)-1], route[len(route)-2]

	a0 := p0.VectorTo(p1).Angle()
	src = geo.NewPoint(p0.X-cardinalitySourceGap*math.Cos(a0), p0.Y-cardinalitySourceGap*math.Sin(a0))

	an := pb.VectorTo(pn).Angle()
	dst = geo.NewPoint(pn.X+cardinalityTargetGap*math.Cos(an), pn.Y+cardinalityTargetGap*math.Sin(an))
	return src, dst
}

// AdornmentGeometry is the polygon drawn at the target end, in world units.
// The first point is always the target anchor. Edges without an adornment
// return nil.
func (e *Edge) AdornmentGeometry() []*geo.Point {
	route := e.RenderedRoute()
	tip := route[len(route)-1]
	prev := route[len(route)-2]
	ang := prev.VectorTo(tip).Angle()
	at := func(from *geo.Point, d, a float64) *geo.Point {
		return geo.NewPoint(from.X+d*math.Cos(a), from.Y+d*math.Sin(a))
	}

	switch e.Adornment() {
	case ArrowAdornment, FilledArrowAdornment:
		return []*geo.Point{
			tip.Copy(),
			at(tip, -arrowSize, ang-math.Pi/6),
			at(tip, -arrowSize, ang+math.Pi/6),
		}
	case HollowTriangleAdornment:
		base := at(tip, -triangleSize, ang)
		return []*geo.Point{
			tip.Copy(),
			at(base, triangleSize/2, ang+math.Pi/2),
			at(base, -triangleSize/2, ang+math.Pi/2),
		}
	case HollowDiamondAdornment, FilledDiamondAdornment:
		mid := at(tip, -diamondSize/2, ang)
		return []*geo.Point{
			tip.Copy(),
			at(mid, diamondSize/2, ang+math.Pi/2),
			at(tip, -diamondSize, ang),
			at(mid, -diamondSize/2, ang+math.Pi/2),
		}
	default:
		return nil
	}
}

// Reconnect reassigns both endpoints.
func (e *Edge) Reconnect(src, dst *Shape) {
	e.Src = src
	e.Dst = dst
}

// SetLabel renames the edge. Use case relations derive their label from the
// relation and are left unchanged.
func (e *Edge) SetLabel(name string) {
	switch k := e.Kind.(type) {
	case ClassAssociation:
		k.Name = name
		e.Kind = k
	case ActorUseCaseAssociation:
		k.Name = name
		e.Kind = k
	}
}

// Connects reports whether e joins a and b in either direction.
func (e *Edge) Connects(a, b string) bool {
	return (e.Src.ID == a && e.Dst.ID == b) || (e.Src.ID == b && e.Dst.ID == a)
}

func (e *Edge) References(shapeID string) bool {
	return e.Src.ID == shapeID || e.Dst.ID == shapeID
}
