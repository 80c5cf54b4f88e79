package geo

import (
	"math"
)

// A N-Dimensional Vector with components (x, y, z, ...) based on the origin
type Vector []float64

// New Vector from components
func NewVector(components ...float64) Vector {
	return components
}

func (a Vector) Add(b Vector) Vector {
	c := []float64{}
	for i := 0; i < len(a); i++ {
		c = append(c, a[i]+b[i])
	}
	return c
}

func (a Vector) Minus(b Vector) Vector {
	c := []float64{}
	for i := 0; i < len(a); i++ {
		c = append(c, a[i]-b[i])
	}
	return c
}

func (a Vector) Multiply(v float64) Vector {
	c := []float64{}
	for i := 0; i < len(a); i++ {
		c = append(c, a[i]*v)
	}
	return c
}

func (a Vector) Length() float64 {
	sum := 0.0
	for _, comp := range a {
		sum += comp * comp
	}
	return math.Sqrt(sum)
}

// Creates an unit Vector pointing in the same direction of this Vector
func (a Vector) IsZero() bool {
	for _, comp := range a {
		if comp != 0 {
			return false
		}
	}
	return true
}

func (a Vector) ToPoint() *Point {
	return &Point{a[0], a[1]}
}

// Angle is the direction of a 2D vector in radians.
func (a Vector) Angle() float64 {
	return math.Atan2(a[1], a[0])
}

// return the line (x1,y1) -> (x2,y2) rotated 90 degrees
// so that a positive offset lands on the left in screen space (y down)
func getNormalVector(x1, y1, x2, y2 float64) (float64, float64) {
	return y1 - y2, x2 - x1
}

// GetUnitNormalVector returns the unit normal of (x1,y1) -> (x2,y2).
// Coincident points have no direction, so the length falls back to 1.
func GetUnitNormalVector(x1, y1, x2, y2 float64) (float64, float64) {
	normalX, normalY := getNormalVector(x1, y1, x2, y2)
	length := EuclideanDistance(x1, y1, x2, y2)
	if length == 0 {
		length = 1
	}
	return normalX / length, normalY / length
}
