package geo

type Segment struct {
	Start *Point
	End   *Point
}

func (segment Segment) Length() float64 {
	return EuclideanDistance(segment.Start.X, segment.Start.Y, segment.End.X, segment.End.Y)
}

func (segment Segment) ToVector() Vector {
	return NewVector(segment.End.X-segment.Start.X, segment.End.Y-segment.Start.Y)
}

// DistanceTo is the distance from p to the closest point of the segment.
func (segment Segment) DistanceTo(p *Point) float64 {
	return p.DistanceToLine(segment.Start, segment.End)
}

// PointAt returns the point t of the way along the segment.
func (segment Segment) PointAt(t float64) *Point {
	return segment.Start.Interpolate(segment.End, t)
}
