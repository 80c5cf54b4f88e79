package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteMidpoint(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		route Route
		exp   *Point
	}{
		{
			name:  "straight",
			route: Route{NewPoint(0, 0), NewPoint(10, 0)},
			exp:   NewPoint(5, 0),
		},
		{
			// total length 40, half falls 10 units into the second segment
			name:  "bent",
			route: Route{NewPoint(0, 0), NewPoint(10, 0), NewPoint(10, 30)},
			exp:   NewPoint(10, 10),
		},
		{
			name:  "single",
			route: Route{NewPoint(3, 3)},
			exp:   NewPoint(3, 3),
		},
		{
			name:  "zero_length",
			route: Route{NewPoint(3, 3), NewPoint(3, 3)},
			exp:   NewPoint(3, 3),
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.route.Midpoint()
			assert.Truef(t, got.ApproxEquals(tc.exp, PRECISION), "expected %v, got %v", tc.exp.ToString(), got.ToString())
		})
	}

	assert.Nil(t, Route{}.Midpoint())
}

func TestRouteClosestSegment(t *testing.T) {
	route := Route{NewPoint(0, 0), NewPoint(10, 0), NewPoint(10, 10), NewPoint(20, 10)}

	i, d := route.ClosestSegment(NewPoint(5, 1))
	assert.Equal(t, 0, i)
	assert.Equal(t, 1.0, d)

	i, _ = route.ClosestSegment(NewPoint(11, 5))
	assert.Equal(t, 1, i)

	i, _ = route.ClosestSegment(NewPoint(30, 10))
	assert.Equal(t, 2, i)

	// equidistant from both segments meeting at (10, 0): earliest wins
	i, _ = route.ClosestSegment(NewPoint(12, -2))
	assert.Equal(t, 0, i)

	i, _ = Route{NewPoint(1, 1)}.ClosestSegment(NewPoint(0, 0))
	assert.Equal(t, -1, i)
}

func TestRouteShift(t *testing.T) {
	route := Route{NewPoint(0, 0), NewPoint(10, 0)}
	shifted := route.Shift(NewVector(0, 6))
	assert.True(t, shifted[0].Equals(NewPoint(0, 6)))
	assert.True(t, shifted[1].Equals(NewPoint(10, 6)))
	assert.True(t, route[0].Equals(NewPoint(0, 0)))
}

func TestRouteLength(t *testing.T) {
	route := Route{NewPoint(0, 0), NewPoint(3, 4), NewPoint(3, 10)}
	assert.Equal(t, 11.0, route.Length())
	assert.Len(t, route.Segments(), 2)
}
