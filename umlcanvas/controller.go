// Package umlcanvas turns pointer input on an infinite surface into diagram
// edits.
//
// Controller owns the selection and every mutation of the diagram. Surface is
// the pointer gesture state machine on top of it, and Editor ties both to the
// undo history.
package umlcanvas

import (
	"context"

	"cdr.dev/slog"

	"oss.terrastruct.com/umlcanvas/lib/log"
	"oss.terrastruct.com/umlcanvas/umlgraph"
	"oss.terrastruct.com/umlcanvas/umllayout"
)

type ChangeKind string

const (
	ShapeAdded   ChangeKind = "shape-added"
	ShapeMoved   ChangeKind = "shape-moved"
	ShapeResized ChangeKind = "shape-resized"
	ShapeRenamed ChangeKind = "shape-renamed"
	EdgeAdded    ChangeKind = "edge-added"
	EdgeMutated  ChangeKind = "edge-mutated"
	Deleted      ChangeKind = "deleted"
	Restored     ChangeKind = "restored"
)

// Change describes one mutation of the diagram.
type Change struct {
	Kind ChangeKind
	ID   string
}

// Selection is at most one shape or one edge. Readers get copies; the
// controller is the only writer.
type Selection struct {
	ShapeID string
	EdgeID  string
}

func (s Selection) Empty() bool {
	return s.ShapeID == "" && s.EdgeID == ""
}

type Controller struct {
	diagram   *umlgraph.Diagram
	selection Selection

	placer      *umllayout.Placer
	edgeSpacing float64

	// OnChange is called after every mutation.
	OnChange func(Change)
}

func NewController(d *umlgraph.Diagram, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		diagram:     d,
		placer:      umllayout.NewPlacer(opts.CellSize),
		edgeSpacing: opts.EdgeSpacing,
	}
	c.assignOffsets()
	return c
}

func (c *Controller) Diagram() *umlgraph.Diagram {
	return c.diagram
}

func (c *Controller) Selection() Selection {
	return c.selection
}

func (c *Controller) SelectShape(id string) {
	c.selection = Selection{ShapeID: id}
}

func (c *Controller) SelectEdge(id string) {
	c.selection = Selection{EdgeID: id}
}

func (c *Controller) ClearSelection() {
	c.selection = Selection{}
}

// SelectedShape resolves the selected shape, nil if none is selected.
func (c *Controller) SelectedShape() *umlgraph.Shape {
	if c.selection.ShapeID == "" {
		return nil
	}
	return c.diagram.Shape(c.selection.ShapeID)
}

// SelectedEdge resolves the selected edge, nil if none is selected.
func (c *Controller) SelectedEdge() *umlgraph.Edge {
	if c.selection.EdgeID == "" {
		return nil
	}
	return c.diagram.Edge(c.selection.EdgeID)
}

func (c *Controller) notify(kind ChangeKind, id string) {
	if c.OnChange != nil {
		c.OnChange(Change{Kind: kind, ID: id})
	}
}

func (c *Controller) assignOffsets() {
	umllayout.AssignOffsets(c.diagram.Edges, c.edgeSpacing)
}

// AddShape places a new shape of kind k at a free spot in view and selects it.
func (c *Controller) AddShape(ctx context.Context, k umlgraph.ShapeKind, vp *Viewport) *umlgraph.Shape {
	s := umlgraph.NewShape(k, 0, 0)
	umlgraph.FitToText(s)
	spot := c.placer.FindFreeSpot(s.Box.Width, s.Box.Height, c.diagram.Boxes(), vp.Layout())
	s.MoveTo(spot.X, spot.Y)
	if c.diagram.AddShape(ctx, s) == nil {
		return nil
	}
	log.Debug(ctx, "added shape", slog.F("id", s.ID), slog.F("type", s.Type()), slog.F("at", spot.ToString()))
	c.SelectShape(s.ID)
	c.notify(ShapeAdded, s.ID)
	return s
}

// Connect adds an edge of kind k between two shapes and re-spreads offsets.
func (c *Controller) Connect(ctx context.Context, srcID, dstID string, k umlgraph.EdgeKind) *umlgraph.Edge {
	src, dst := c.diagram.Shape(srcID), c.diagram.Shape(dstID)
	if src == nil || dst == nil {
		log.Warn(ctx, "cannot connect missing shapes", slog.F("source", srcID), slog.F("target", dstID))
		return nil
	}
	e := c.diagram.Connect(ctx, src, dst, k)
	if e == nil {
		return nil
	}
	c.assignOffsets()
	c.notify(EdgeAdded, e.ID)
	return e
}

// OnShapeMove moves the shape's top-left corner to (x, y).
func (c *Controller) OnShapeMove(id string, x, y float64) {
	s := c.diagram.Shape(id)
	if s == nil {
		return
	}
	s.MoveTo(x, y)
	c.assignOffsets()
	c.notify(ShapeMoved, id)
}

func (c *Controller) OnShapeResize(id string, w, h float64) {
	s := c.diagram.Shape(id)
	if s == nil {
		return
	}
	s.Resize(w, h)
	c.assignOffsets()
	c.notify(ShapeResized, id)
}

func (c *Controller) RenameShape(id, name string) {
	s := c.diagram.Shape(id)
	if s == nil {
		return
	}
	s.Rename(name)
	umlgraph.FitToText(s)
	c.notify(ShapeRenamed, id)
}

// OnEdgeMutated takes e as the current state of the edge with its id. An
// edge value that replaced the diagram's copy is swapped in, keeping its place
// in the edge order, so a selection of that id now resolves to e. An edge
// whose endpoints are not shapes of the diagram is ignored.
func (c *Controller) OnEdgeMutated(e *umlgraph.Edge) {
	d := c.diagram
	if e.Src == nil || e.Dst == nil || d.Shape(e.Src.ID) != e.Src || d.Shape(e.Dst.ID) != e.Dst {
		return
	}
	found := false
	for i, cur := range c.diagram.Edges {
		if cur.ID == e.ID {
			c.diagram.Edges[i] = e
			found = true
			break
		}
	}
	if !found {
		return
	}
	c.assignOffsets()
	c.notify(EdgeMutated, e.ID)
}

// RemoveWaypoint deletes waypoint i of the edge.
func (c *Controller) RemoveWaypoint(edgeID string, i int) bool {
	e := c.diagram.Edge(edgeID)
	if e == nil || !e.RemoveWaypoint(i) {
		return false
	}
	c.OnEdgeMutated(e)
	return true
}

// DeleteSelection removes the selected shape with its edges, or the selected
// edge, and clears the selection.
func (c *Controller) DeleteSelection() bool {
	sel := c.selection
	c.ClearSelection()
	var id string
	switch {
	case sel.ShapeID != "" && c.diagram.RemoveShape(sel.ShapeID):
		id = sel.ShapeID
	case sel.EdgeID != "" && c.diagram.RemoveEdge(sel.EdgeID):
		id = sel.EdgeID
	default:
		return false
	}
	c.assignOffsets()
	c.notify(Deleted, id)
	return true
}

// Restore replaces the diagram contents with snap. A selection that no longer
// resolves is cleared.
func (c *Controller) Restore(ctx context.Context, snap *umlgraph.Snapshot) {
	c.diagram.Restore(ctx, snap)
	if c.SelectedShape() == nil && c.SelectedEdge() == nil {
		c.ClearSelection()
	}
	c.assignOffsets()
	c.notify(Restored, c.diagram.ID)
}
