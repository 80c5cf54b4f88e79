package geo

import (
	"math"
)

type Route []*Point

func (route Route) Length() float64 {
	l := 0.
	for i := 0; i < len(route)-1; i++ {
		l += EuclideanDistance(
			route[i].X, route[i].Y,
			route[i+1].X, route[i+1].Y,
		)
	}
	return l
}

func (route Route) Segments() []Segment {
	if len(route) < 2 {
		return nil
	}
	segs := make([]Segment, 0, len(route)-1)
	for i := 0; i < len(route)-1; i++ {
		segs = append(segs, Segment{Start: route[i], End: route[i+1]})
	}
	return segs
}

// return the point at _distance_ along the route, and the index of the segment it's on
func (route Route) GetPointAtDistance(distance float64) (*Point, int) {
	remaining := distance
	for i := 0; i < len(route)-1; i++ {
		curr, next := route[i], route[i+1]
		length := EuclideanDistance(curr.X, curr.Y, next.X, next.Y)

		if remaining <= length {
			if length == 0 {
				return curr.Copy(), i
			}
			return curr.Interpolate(next, remaining/length), i
		}
		remaining -= length
	}

	return nil, -1
}

// Midpoint is the point halfway along the route by arc length.
func (route Route) Midpoint() *Point {
	switch len(route) {
	case 0:
		return nil
	case 1:
		return route[0].Copy()
	}
	p, _ := route.GetPointAtDistance(route.Length() / 2)
	if p == nil {
		// rounding pushed half the length past the end
		return route[len(route)-1].Copy()
	}
	return p
}

// ClosestSegment returns the index of the segment nearest to p and its distance.
// Ties resolve to the earliest segment. Routes with fewer than two points return -1.
func (route Route) ClosestSegment(p *Point) (int, float64) {
	best := -1
	bestDist := math.Inf(1)
	for i := 0; i < len(route)-1; i++ {
		d := p.DistanceToLine(route[i], route[i+1])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best, bestDist
}

// DistanceTo is the distance from p to the nearest segment of the route.
func (route Route) DistanceTo(p *Point) float64 {
	_, d := route.ClosestSegment(p)
	return d
}

// Shift returns a copy of the route moved by v.
func (route Route) Shift(v Vector) Route {
	out := make(Route, 0, len(route))
	for _, p := range route {
		if v.IsZero() {
			out = append(out, p.Copy())
			continue
		}
		out = append(out, p.AddVector(v))
	}
	return out
}
