package umlcanvas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/umlcanvas/lib/geo"
	"oss.terrastruct.com/umlcanvas/lib/log"
	"oss.terrastruct.com/umlcanvas/umlgraph"
)

// twoBoxes is a(0,0,100,100) and b(300,0,100,100) joined by one edge running
// along y=50 from x=100 to x=300.
func twoBoxes(t *testing.T) (*Editor, *umlgraph.Edge) {
	ctx := log.WithTB(context.Background(), t, nil)
	d := umlgraph.NewDiagram("test", umlgraph.ClassDiagram)
	a := umlgraph.NewShape(umlgraph.Class{Name: "A"}, 0, 0)
	a.ID = "a"
	a.Resize(100, 100)
	b := umlgraph.NewShape(umlgraph.Class{Name: "B"}, 300, 0)
	b.ID = "b"
	b.Resize(100, 100)
	d.AddShape(ctx, a)
	d.AddShape(ctx, b)
	e := d.Connect(ctx, a, b, umlgraph.ClassAssociation{Kind: umlgraph.Association})
	require.NotNil(t, e)

	ed := NewEditor(ctx, d, NewViewport(800, 600), DefaultOptions())
	return ed, e
}

func TestClickOnEdgeSelectsWithoutInserting(t *testing.T) {
	ed, e := twoBoxes(t)

	ed.PointerDown(PointerEvent{X: 200, Y: 52})
	assert.Equal(t, Selection{EdgeID: e.ID}, ed.Controller.Selection())
	assert.Equal(t, CursorCrosshair, ed.Surface.Cursor())
	assert.True(t, ed.Surface.Captured())

	// below the 4px threshold
	ed.PointerMove(PointerEvent{X: 202, Y: 53})
	assert.Empty(t, e.Waypoints)

	assert.False(t, ed.PointerUp(PointerEvent{X: 202, Y: 53}))
	assert.Empty(t, e.Waypoints)
	assert.False(t, ed.History.CanUndo())
}

func TestDragOnEdgeInsertsAndTracks(t *testing.T) {
	ed, e := twoBoxes(t)

	ed.PointerDown(PointerEvent{X: 200, Y: 50})
	ed.PointerMove(PointerEvent{X: 200, Y: 60})
	require.Len(t, e.Waypoints, 1)
	assert.True(t, e.Waypoints[0].Equals(geo.NewPoint(200, 60)))
	assert.Equal(t, CursorGrabbing, ed.Surface.Cursor())

	ed.PointerMove(PointerEvent{X: 230, Y: 140})
	require.Len(t, e.Waypoints, 1)
	assert.True(t, e.Waypoints[0].Equals(geo.NewPoint(230, 140)))
	assert.True(t, e.ContainsPoint(geo.NewPoint(230, 140), 0))

	assert.True(t, ed.PointerUp(PointerEvent{X: 230, Y: 140}))
	u, _ := ed.History.Len()
	assert.Equal(t, 1, u)

	require.True(t, ed.Undo())
	assert.Empty(t, ed.Diagram().Edge(e.ID).Waypoints)
	require.True(t, ed.Redo())
	assert.Len(t, ed.Diagram().Edge(e.ID).Waypoints, 1)
}

func TestDragShapeKeepsGrabOffset(t *testing.T) {
	ed, _ := twoBoxes(t)

	ed.PointerDown(PointerEvent{X: 20, Y: 30})
	assert.Equal(t, Selection{ShapeID: "a"}, ed.Controller.Selection())
	assert.Equal(t, CursorMove, ed.Surface.Cursor())

	ed.PointerMove(PointerEvent{X: 70, Y: 80})
	ed.PointerMove(PointerEvent{X: 120, Y: 230})
	a := ed.Diagram().Shape("a")
	assert.True(t, a.Box.TopLeft.Equals(geo.NewPoint(100, 200)))

	assert.True(t, ed.PointerUp(PointerEvent{X: 120, Y: 230}))
	// one gesture, one history entry
	u, _ := ed.History.Len()
	assert.Equal(t, 1, u)

	require.True(t, ed.Undo())
	assert.True(t, ed.Diagram().Shape("a").Box.TopLeft.Equals(geo.NewPoint(0, 0)))
}

func TestWaypointDragUnshiftsPointer(t *testing.T) {
	ed, e := twoBoxes(t)
	d := ed.Diagram()
	twin := d.Connect(ed.ctx, d.Shape("a"), d.Shape("b"), umlgraph.ClassAssociation{Kind: umlgraph.Directed})
	require.NotNil(t, twin)
	ed.Controller.assignOffsets()
	assert.Equal(t, -6., e.Offset)
	assert.Equal(t, 6., twin.Offset)
	e.AddWaypoint(geo.NewPoint(200, 150))
	ed.Controller.SelectEdge(e.ID)

	handle := e.WaypointHandles()[0]
	assert.False(t, handle.Equals(e.Waypoints[0]))

	// slightly off the handle, within its radius
	ed.PointerDown(PointerEvent{X: handle.X + 3, Y: handle.Y - 3})
	assert.Equal(t, CursorGrabbing, ed.Surface.Cursor())
	ed.PointerMove(PointerEvent{X: 210, Y: 170})
	assert.True(t, e.WaypointHandles()[0].ApproxEquals(geo.NewPoint(210, 170), 1e-9))
	assert.True(t, ed.PointerUp(PointerEvent{X: 210, Y: 170}))
}

func TestHandleBeatsShape(t *testing.T) {
	ed, e := twoBoxes(t)
	// waypoint inside shape a
	e.AddWaypoint(geo.NewPoint(50, 50))
	ed.Controller.SelectEdge(e.ID)

	ed.PointerDown(PointerEvent{X: 50, Y: 50})
	assert.Equal(t, Selection{EdgeID: e.ID}, ed.Controller.Selection())
	ed.PointerMove(PointerEvent{X: 60, Y: 200})
	assert.True(t, e.Waypoints[0].Equals(geo.NewPoint(60, 200)))
	assert.True(t, ed.Diagram().Shape("a").Box.TopLeft.Equals(geo.NewPoint(0, 0)))
}

func TestPanOnEmptySpace(t *testing.T) {
	ed, _ := twoBoxes(t)
	ed.Controller.SelectShape("a")

	ed.PointerDown(PointerEvent{X: 600, Y: 500})
	assert.True(t, ed.Controller.Selection().Empty())
	assert.Equal(t, CursorGrabbing, ed.Surface.Cursor())
	ed.PointerMove(PointerEvent{X: 610, Y: 490})
	ed.PointerMove(PointerEvent{X: 615, Y: 480})
	vp := ed.Viewport()
	assert.Equal(t, 15., vp.OffsetX)
	assert.Equal(t, -20., vp.OffsetY)

	assert.False(t, ed.PointerUp(PointerEvent{X: 615, Y: 480}))
	assert.False(t, ed.History.CanUndo())
}

func TestPointerUpIsIdempotent(t *testing.T) {
	ed, _ := twoBoxes(t)
	ed.PointerDown(PointerEvent{X: 20, Y: 20})
	ed.PointerMove(PointerEvent{X: 40, Y: 40})

	assert.True(t, ed.PointerUp(PointerEvent{}))
	assert.False(t, ed.PointerUp(PointerEvent{}))
	assert.False(t, ed.Surface.Captured())
	assert.False(t, ed.Surface.Active())
	assert.Equal(t, CursorDefault, ed.Surface.Cursor())

	// moves after release do nothing
	ed.PointerMove(PointerEvent{X: 400, Y: 400})
	assert.True(t, ed.Diagram().Shape("a").Box.TopLeft.Equals(geo.NewPoint(20, 20)))
}

func TestToleranceScalesWithZoom(t *testing.T) {
	ed, e := twoBoxes(t)
	vp := ed.Viewport()
	vp.Scale = 2

	// world (200, 55) is 5 units off the edge, beyond 6/2
	ed.PointerDown(PointerEvent{X: 400, Y: 110})
	assert.True(t, ed.Controller.Selection().Empty())
	ed.PointerUp(PointerEvent{})

	// world (200, 52)
	ed.PointerDown(PointerEvent{X: 400, Y: 104})
	assert.Equal(t, e.ID, ed.Controller.Selection().EdgeID)
	// 3 screen pixels is 1.5 world units, under 4/2
	ed.PointerMove(PointerEvent{X: 400, Y: 107})
	assert.Empty(t, e.Waypoints)
	ed.PointerMove(PointerEvent{X: 400, Y: 120})
	require.Len(t, e.Waypoints, 1)
	assert.True(t, e.Waypoints[0].Equals(geo.NewPoint(200, 60)))
}

func TestDoubleClickRemovesWaypoint(t *testing.T) {
	ed, e := twoBoxes(t)
	e.AddWaypoint(geo.NewPoint(150, 120))
	e.AddWaypoint(geo.NewPoint(250, 120))

	assert.False(t, ed.DoubleClick(PointerEvent{X: 250, Y: 120}))

	ed.Controller.SelectEdge(e.ID)
	assert.False(t, ed.DoubleClick(PointerEvent{X: 200, Y: 300}))
	assert.True(t, ed.DoubleClick(PointerEvent{X: 252, Y: 118}))
	require.Len(t, e.Waypoints, 1)
	assert.True(t, e.Waypoints[0].Equals(geo.NewPoint(150, 120)))
	assert.True(t, ed.History.CanUndo())
}

func TestWheel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		ev       WheelEvent
		expScale float64
		expX     float64
		expY     float64
	}{
		{name: "pan", ev: WheelEvent{DeltaX: 5, DeltaY: 7}, expScale: 1, expX: -5, expY: -7},
		{name: "shift_pan", ev: WheelEvent{DeltaX: 5, DeltaY: 7, Shift: true}, expScale: 1, expX: -7, expY: 0},
		{name: "zoom_out", ev: WheelEvent{X: 100, Y: 200, DeltaY: 3, Modifier: true}, expScale: 0.95, expX: 5, expY: 10},
		{name: "zoom_in", ev: WheelEvent{X: 100, Y: 200, DeltaY: -3, Modifier: true}, expScale: 1.05, expX: -5, expY: -10},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ed, _ := twoBoxes(t)
			ed.Wheel(tc.ev)
			vp := ed.Viewport()
			assert.InDelta(t, tc.expScale, vp.Scale, 1e-9)
			assert.InDelta(t, tc.expX, vp.OffsetX, 1e-9)
			assert.InDelta(t, tc.expY, vp.OffsetY, 1e-9)
			assert.False(t, ed.Surface.Active())
		})
	}
}

func TestZoomKeepsPointUnderCursor(t *testing.T) {
	ed, _ := twoBoxes(t)
	vp := ed.Viewport()
	vp.Pan(37, -12)
	cursor := geo.NewPoint(321, 123)
	before := vp.ScreenToWorld(cursor)

	for i := 0; i < 100; i++ {
		ed.Wheel(WheelEvent{X: cursor.X, Y: cursor.Y, DeltaY: -1, Modifier: true})
	}
	assert.Equal(t, DefaultMaxScale, vp.Scale)
	assert.True(t, vp.ScreenToWorld(cursor).ApproxEquals(before, 1e-6))

	for i := 0; i < 200; i++ {
		ed.Wheel(WheelEvent{X: cursor.X, Y: cursor.Y, DeltaY: 1, Modifier: true})
	}
	assert.Equal(t, DefaultMinScale, vp.Scale)
	assert.True(t, vp.ScreenToWorld(cursor).ApproxEquals(before, 1e-6))
}
