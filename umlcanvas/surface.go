package umlcanvas

import (
	"oss.terrastruct.com/umlcanvas/lib/geo"
	"oss.terrastruct.com/umlcanvas/umlgraph"
)

const (
	zoomInFactor  = 1.05
	zoomOutFactor = 0.95
)

type Cursor string

const (
	CursorDefault   Cursor = "default"
	CursorGrabbing  Cursor = "grabbing"
	CursorMove      Cursor = "move"
	CursorCrosshair Cursor = "crosshair"
)

type gestureState int

const (
	idle gestureState = iota
	draggingShape
	draggingWaypoint
	pendingInsert
	panning
)

func (s gestureState) String() string {
	switch s {
	case draggingShape:
		return "dragging-shape"
	case draggingWaypoint:
		return "dragging-waypoint"
	case pendingInsert:
		return "pending-insert"
	case panning:
		return "panning"
	default:
		return "idle"
	}
}

// PointerEvent is a pointer position in screen pixels.
type PointerEvent struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (ev PointerEvent) point() *geo.Point {
	return geo.NewPoint(ev.X, ev.Y)
}

type WheelEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaX float64 `json:"deltaX"`
	DeltaY float64 `json:"deltaY"`
	// Modifier is ctrl or meta held down.
	Modifier bool `json:"modifier,omitempty"`
	Shift    bool `json:"shift,omitempty"`
}

// Surface is the pointer gesture state machine. Events arrive in screen
// coordinates and are mapped to world coordinates through the viewport.
type Surface struct {
	ctrl *Controller
	vp   *Viewport
	opts Options

	state gestureState

	shapeID string
	grab    geo.Vector

	edgeID   string
	waypoint int
	down     *geo.Point

	lastScreen *geo.Point
	moved      bool

	captured bool
	cursor   Cursor
}

func NewSurface(ctrl *Controller, vp *Viewport, opts Options) *Surface {
	return &Surface{
		ctrl:   ctrl,
		vp:     vp,
		opts:   opts.withDefaults(),
		cursor: CursorDefault,
	}
}

func (s *Surface) Viewport() *Viewport {
	return s.vp
}

func (s *Surface) Cursor() Cursor {
	return s.cursor
}

// Captured reports whether the surface holds pointer capture.
func (s *Surface) Captured() bool {
	return s.captured
}

// Active reports whether a gesture is in progress.
func (s *Surface) Active() bool {
	return s.state != idle
}

// State names the current gesture, for logs.
func (s *Surface) State() string {
	return s.state.String()
}

func (s *Surface) world(ev PointerEvent) *geo.Point {
	return s.vp.ScreenToWorld(ev.point())
}

func (s *Surface) handleRadius() float64 {
	return s.opts.HandleRadius / s.vp.Scale
}

func (s *Surface) edgeTolerance() float64 {
	return s.opts.EdgeTolerance / s.vp.Scale
}

func (s *Surface) dragThreshold() float64 {
	return s.opts.DragThreshold / s.vp.Scale
}

// handleAt returns the index of the selected edge's waypoint handle under p.
func (s *Surface) handleAt(e *umlgraph.Edge, p *geo.Point) int {
	r := s.handleRadius()
	for i, h := range e.WaypointHandles() {
		if h.DistanceSquaredTo(p) <= r*r {
			return i
		}
	}
	return -1
}

// PointerDown starts a gesture. The first match wins: a waypoint handle of
// the selected edge, then the top-most shape, then an edge within tolerance.
// Pressing on empty space clears the selection and pans.
func (s *Surface) PointerDown(ev PointerEvent) {
	s.reset()
	d := s.ctrl.Diagram()
	p := s.world(ev)
	s.captured = true
	s.lastScreen = ev.point()

	if e := s.ctrl.SelectedEdge(); e != nil {
		if i := s.handleAt(e, p); i != -1 {
			s.state = draggingWaypoint
			s.edgeID = e.ID
			s.waypoint = i
			s.cursor = CursorGrabbing
			return
		}
	}

	if shape := d.ShapeAt(p); shape != nil {
		s.ctrl.SelectShape(shape.ID)
		s.state = draggingShape
		s.shapeID = shape.ID
		s.grab = shape.Box.TopLeft.VectorTo(p)
		s.cursor = CursorMove
		return
	}

	if e := d.EdgeAt(p, s.edgeTolerance()); e != nil {
		s.ctrl.SelectEdge(e.ID)
		s.state = pendingInsert
		s.edgeID = e.ID
		s.down = p
		s.cursor = CursorCrosshair
		return
	}

	s.ctrl.ClearSelection()
	s.state = panning
	s.cursor = CursorGrabbing
}

func (s *Surface) PointerMove(ev PointerEvent) {
	p := s.world(ev)
	switch s.state {
	case draggingShape:
		s.ctrl.OnShapeMove(s.shapeID, p.X-s.grab[0], p.Y-s.grab[1])
		s.moved = true
	case draggingWaypoint:
		e := s.ctrl.Diagram().Edge(s.edgeID)
		if e == nil {
			return
		}
		if e.MoveWaypoint(s.waypoint, e.Unshift(p)) {
			s.ctrl.OnEdgeMutated(e)
			s.moved = true
		}
	case pendingInsert:
		t := s.dragThreshold()
		if s.down.DistanceSquaredTo(p) <= t*t {
			return
		}
		e := s.ctrl.Diagram().Edge(s.edgeID)
		if e == nil {
			return
		}
		s.waypoint = e.InsertAtClosestSegment(s.down)
		e.MoveWaypoint(s.waypoint, e.Unshift(p))
		s.state = draggingWaypoint
		s.cursor = CursorGrabbing
		s.ctrl.OnEdgeMutated(e)
		s.moved = true
	case panning:
		cur := ev.point()
		s.vp.Pan(cur.X-s.lastScreen.X, cur.Y-s.lastScreen.Y)
		s.lastScreen = cur
	}
}

// PointerUp ends any gesture, releases capture and restores the cursor. It
// reports whether the gesture edited the diagram. Calling it again is a no-op
// that reports false.
func (s *Surface) PointerUp(ev PointerEvent) bool {
	committed := s.moved && (s.state == draggingShape || s.state == draggingWaypoint)
	s.reset()
	return committed
}

func (s *Surface) reset() {
	s.state = idle
	s.shapeID = ""
	s.grab = nil
	s.edgeID = ""
	s.waypoint = -1
	s.down = nil
	s.lastScreen = nil
	s.moved = false
	s.captured = false
	s.cursor = CursorDefault
}

// DoubleClick removes the waypoint of the selected edge under the pointer.
func (s *Surface) DoubleClick(ev PointerEvent) bool {
	e := s.ctrl.SelectedEdge()
	if e == nil {
		return false
	}
	i := s.handleAt(e, s.world(ev))
	if i == -1 {
		return false
	}
	return s.ctrl.RemoveWaypoint(e.ID, i)
}

// Wheel zooms about the pointer with a modifier held, pans sideways with
// shift, and pans otherwise.
func (s *Surface) Wheel(ev WheelEvent) {
	switch {
	case ev.Modifier:
		factor := zoomInFactor
		if ev.DeltaY > 0 {
			factor = zoomOutFactor
		}
		s.vp.ZoomAt(geo.NewPoint(ev.X, ev.Y), factor)
	case ev.Shift:
		s.vp.Pan(-ev.DeltaY, 0)
	default:
		s.vp.Pan(-ev.DeltaX, -ev.DeltaY)
	}
}
