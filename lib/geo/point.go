package geo

import (
	"fmt"
	"math"
	"strings"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(x, y float64) *Point {
	return &Point{X: x, Y: y}
}

func (p1 *Point) Equals(p2 *Point) bool {
	if p1 == nil {
		return p2 == nil
	} else if p2 == nil {
		return false
	}
	return (p1.X == p2.X) && (p1.Y == p2.Y)
}

// ApproxEquals compares both coordinates with precision e.
func (p1 *Point) ApproxEquals(p2 *Point, e float64) bool {
	if p1 == nil || p2 == nil {
		return p1 == p2
	}
	return PrecisionCompare(p1.X, p2.X, e) == 0 && PrecisionCompare(p1.Y, p2.Y, e) == 0
}

func (p *Point) Copy() *Point {
	if p == nil {
		return nil
	}
	return &Point{X: p.X, Y: p.Y}
}

func (p *Point) ToString() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("(%v, %v)", p.X, p.Y)
}

type Points []*Point

func (ps Points) Copy() Points {
	if ps == nil {
		return nil
	}
	out := make(Points, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Copy())
	}
	return out
}

func (ps Points) Equals(other Points) bool {
	if len(ps) != len(other) {
		return false
	}
	for i := range ps {
		if !ps[i].Equals(other[i]) {
			return false
		}
	}
	return true
}

func (points Points) ToString() string {
	strs := make([]string, 0, len(points))
	for _, p := range points {
		strs = append(strs, p.ToString())
	}
	return strings.Join(strs, ", ")
}

// https://stackoverflow.com/questions/849211/shortest-distance-between-a-point-and-a-line-segment
func (p *Point) DistanceToLine(p1, p2 *Point) float64 {
	a := p.X - p1.X
	b := p.Y - p1.Y
	c := p2.X - p1.X
	d := p2.Y - p1.Y

	dot := (a * c) + (b * d)
	lenSq := (c * c) + (d * d)

	// degenerate segment: distance to p1
	param := -1.0
	if lenSq != 0 {
		param = dot / lenSq
	}

	var xx, yy float64
	if param < 0.0 {
		xx = p1.X
		yy = p1.Y
	} else if param > 1.0 {
		xx = p2.X
		yy = p2.Y
	} else {
		xx = p1.X + (param * c)
		yy = p1.Y + (param * d)
	}

	dx := p.X - xx
	dy := p.Y - yy
	return math.Sqrt((dx * dx) + (dy * dy))
}

// DistanceSquaredTo avoids the square root for threshold checks.
func (p *Point) DistanceSquaredTo(p2 *Point) float64 {
	dx := p2.X - p.X
	dy := p2.Y - p.Y
	return dx*dx + dy*dy
}

func (p *Point) DistanceTo(p2 *Point) float64 {
	return EuclideanDistance(p.X, p.Y, p2.X, p2.Y)
}

// Moves the given point by Vector
func (start *Point) AddVector(v Vector) *Point {
	return start.ToVector().Add(v).ToPoint()
}

// Creates a Vector of the size between start and endpoint, pointing to endpoint
func (start *Point) VectorTo(endpoint *Point) Vector {
	return endpoint.ToVector().Minus(start.ToVector())
}

// Creates a Vector pointing to point
func (endpoint *Point) ToVector() Vector {
	return []float64{endpoint.X, endpoint.Y}
}

// point t% of the way between a and b
func (a *Point) Interpolate(b *Point, t float64) *Point {
	return NewPoint(
		a.X*(1.0-t)+b.X*t,
		a.Y*(1.0-t)+b.Y*t,
	)
}

func (p *Point) Round() *Point {
	return NewPoint(math.Round(p.X), math.Round(p.Y))
}
