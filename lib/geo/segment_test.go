package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentLength(t *testing.T) {
	s := Segment{NewPoint(0, 0), NewPoint(3, 4)}
	assert.Equal(t, 5.0, s.Length())
	assert.True(t, s.ToVector().equals(NewVector(3, 4)))
}

func TestSegmentPointAt(t *testing.T) {
	s := Segment{NewPoint(0, 0), NewPoint(10, 20)}
	assert.True(t, s.PointAt(0.5).Equals(NewPoint(5, 10)))
	assert.True(t, s.PointAt(0).Equals(s.Start))
	assert.True(t, s.PointAt(1).Equals(s.End))
}

func TestSegmentDistanceTo(t *testing.T) {
	s := Segment{NewPoint(0, 0), NewPoint(0, 10)}
	assert.Equal(t, 4.0, s.DistanceTo(NewPoint(4, 5)))
	assert.Equal(t, 5.0, s.DistanceTo(NewPoint(3, 14)))
}
