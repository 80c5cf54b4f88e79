// Package umlgraph is the diagram model: shapes, the edges between them and
// their plain-data snapshots.
//
// Shapes keep z-order by position in Diagram.Shapes, later shapes are drawn
// on top and hit first. Edges hold pointers to live shapes of the same
// diagram; removing a shape removes every edge that references it.
package umlgraph

import (
	"context"
	"errors"
	"fmt"

	"cdr.dev/slog"
	"github.com/google/uuid"

	"oss.terrastruct.com/umlcanvas/lib/geo"
	"oss.terrastruct.com/umlcanvas/lib/log"
)

type DiagramType string

const (
	ClassDiagram   DiagramType = "CLASS"
	UseCaseDiagram DiagramType = "USE_CASE"
	// FreeDiagram accepts every kind.
	FreeDiagram DiagramType = "FREE"
)

func (t DiagramType) Valid() bool {
	switch t {
	case ClassDiagram, UseCaseDiagram, FreeDiagram:
		return true
	}
	return false
}

var (
	ErrRealizationSource = errors.New("realization source is not an interface")
	ErrDanglingEdge      = errors.New("edge references a shape outside the diagram")
	ErrDuplicateID       = errors.New("duplicate id")
)

type Diagram struct {
	ID     string
	Name   string
	Type   DiagramType
	Shapes []*Shape
	Edges  []*Edge
}

func NewDiagram(name string, t DiagramType) *Diagram {
	if !t.Valid() {
		t = FreeDiagram
	}
	return &Diagram{
		ID:   uuid.NewString(),
		Name: name,
		Type: t,
	}
}

// AllowsShape reports whether shapes of kind k may be added.
func (d *Diagram) AllowsShape(k ShapeKind) bool {
	switch d.Type {
	case ClassDiagram:
		switch k.(type) {
		case Class, Interface:
			return true
		}
		return false
	case UseCaseDiagram:
		switch k.(type) {
		case Actor, UseCase, SystemBoundary:
			return true
		}
		return false
	default:
		return true
	}
}

// AllowsEdge reports whether edges of kind k may be added.
func (d *Diagram) AllowsEdge(k EdgeKind) bool {
	switch d.Type {
	case ClassDiagram:
		_, ok := k.(ClassAssociation)
		return ok
	case UseCaseDiagram:
		switch k.(type) {
		case UseCaseAssociation, ActorUseCaseAssociation:
			return true
		}
		return false
	default:
		return true
	}
}

// AddShape appends s on top of the z-order. Kinds the diagram does not accept
// are logged and ignored, in which case nil is returned.
func (d *Diagram) AddShape(ctx context.Context, s *Shape) *Shape {
	if !d.AllowsShape(s.Kind) {
		log.Warn(ctx, "rejected unsupported shape kind",
			slog.F("diagram", d.Type), slog.F("kind", s.Type()), slog.F("id", s.ID))
		return nil
	}
	if d.Shape(s.ID) != nil {
		log.Warn(ctx, "rejected shape with duplicate id", slog.F("id", s.ID))
		return nil
	}
	d.Shapes = append(d.Shapes, s)
	return s
}

// AddEdge appends e. The edge is rejected (nil) when its kind is not accepted
// or either endpoint is not a shape of this diagram.
func (d *Diagram) AddEdge(ctx context.Context, e *Edge) *Edge {
	if !d.AllowsEdge(e.Kind) {
		log.Warn(ctx, "rejected unsupported edge kind",
			slog.F("diagram", d.Type), slog.F("kind", e.Type()), slog.F("id", e.ID))
		return nil
	}
	if e.Src == nil || e.Dst == nil || d.Shape(e.Src.ID) != e.Src || d.Shape(e.Dst.ID) != e.Dst {
		log.Warn(ctx, "rejected edge with missing endpoint", slog.F("id", e.ID))
		return nil
	}
	if d.Edge(e.ID) != nil {
		log.Warn(ctx, "rejected edge with duplicate id", slog.F("id", e.ID))
		return nil
	}
	d.Edges = append(d.Edges, e)
	return e
}

// Connect creates and adds an edge of kind k from src to dst.
func (d *Diagram) Connect(ctx context.Context, src, dst *Shape, k EdgeKind) *Edge {
	return d.AddEdge(ctx, NewEdge(src, dst, k))
}

func (d *Diagram) Shape(id string) *Shape {
	for _, s := range d.Shapes {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (d *Diagram) Edge(id string) *Edge {
	for _, e := range d.Edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// RemoveShape deletes the shape and every edge that references it.
func (d *Diagram) RemoveShape(id string) bool {
	idx := -1
	for i, s := range d.Shapes {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	d.Shapes = append(d.Shapes[:idx], d.Shapes[idx+1:]...)

	edges := d.Edges[:0]
	for _, e := range d.Edges {
		if !e.References(id) {
			edges = append(edges, e)
		}
	}
	for i := len(edges); i < len(d.Edges); i++ {
		d.Edges[i] = nil
	}
	d.Edges = edges
	return true
}

func (d *Diagram) RemoveEdge(id string) bool {
	for i, e := range d.Edges {
		if e.ID == id {
			d.Edges = append(d.Edges[:i], d.Edges[i+1:]...)
			return true
		}
	}
	return false
}

// BringToFront moves the shape to the top of the z-order.
func (d *Diagram) BringToFront(id string) bool {
	for i, s := range d.Shapes {
		if s.ID == id {
			d.Shapes = append(append(d.Shapes[:i:i], d.Shapes[i+1:]...), s)
			return true
		}
	}
	return false
}

// ShapeAt returns the top-most shape containing p.
func (d *Diagram) ShapeAt(p *geo.Point) *Shape {
	for i := len(d.Shapes) - 1; i >= 0; i-- {
		if d.Shapes[i].ContainsPoint(p) {
			return d.Shapes[i]
		}
	}
	return nil
}

// EdgeAt returns the last added edge within tolerance of p.
func (d *Diagram) EdgeAt(p *geo.Point, tolerance float64) *Edge {
	for i := len(d.Edges) - 1; i >= 0; i-- {
		if d.Edges[i].ContainsPoint(p, tolerance) {
			return d.Edges[i]
		}
	}
	return nil
}

// Boxes returns the bounding boxes of all shapes in z-order.
func (d *Diagram) Boxes() []*geo.Box {
	boxes := make([]*geo.Box, 0, len(d.Shapes))
	for _, s := range d.Shapes {
		boxes = append(boxes, s.Box)
	}
	return boxes
}

// Validate reports problems that do not prevent the diagram from being
// edited: realizations whose source is not an interface, dangling edges and
// duplicate ids.
func (d *Diagram) Validate() []error {
	var errs []error
	seen := make(map[string]struct{})
	for _, s := range d.Shapes {
		if _, ok := seen[s.ID]; ok {
			errs = append(errs, fmt.Errorf("shape %q: %w", s.ID, ErrDuplicateID))
		}
		seen[s.ID] = struct{}{}
	}
	for _, e := range d.Edges {
		if _, ok := seen[e.ID]; ok {
			errs = append(errs, fmt.Errorf("edge %q: %w", e.ID, ErrDuplicateID))
		}
		seen[e.ID] = struct{}{}

		if d.Shape(e.Src.ID) != e.Src || d.Shape(e.Dst.ID) != e.Dst {
			errs = append(errs, fmt.Errorf("edge %q: %w", e.ID, ErrDanglingEdge))
			continue
		}
		if ca, ok := e.Kind.(ClassAssociation); ok && ca.Kind == Realization && !e.Src.IsInterface() {
			errs = append(errs, fmt.Errorf("edge %q from %q: %w", e.ID, e.Src.Name(), ErrRealizationSource))
		}
	}
	return errs
}

// Clone deep copies the diagram, rebinding edges to the copied shapes.
func (d *Diagram) Clone() *Diagram {
	out := &Diagram{
		ID:   d.ID,
		Name: d.Name,
		Type: d.Type,
	}
	idToShape := make(map[string]*Shape, len(d.Shapes))
	for _, s := range d.Shapes {
		c := s.Copy()
		idToShape[c.ID] = c
		out.Shapes = append(out.Shapes, c)
	}
	for _, e := range d.Edges {
		src, dst := idToShape[e.Src.ID], idToShape[e.Dst.ID]
		if src == nil || dst == nil {
			continue
		}
		out.Edges = append(out.Edges, &Edge{
			ID:        e.ID,
			Src:       src,
			Dst:       dst,
			Offset:    e.Offset,
			Waypoints: geo.Points(e.Waypoints).Copy(),
			Kind:      copyEdgeKind(e.Kind),
		})
	}
	return out
}
