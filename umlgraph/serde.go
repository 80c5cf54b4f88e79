package umlgraph

import (
	"context"
	"encoding/json"

	"cdr.dev/slog"
	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/umlcanvas/lib/geo"
	"oss.terrastruct.com/umlcanvas/lib/log"
)

// Snapshot is a reference-free copy of a diagram.
type Snapshot struct {
	ID     string          `json:"id,omitempty"`
	Name   string          `json:"name,omitempty"`
	Type   DiagramType     `json:"type,omitempty"`
	Shapes []ShapeSnapshot `json:"shapes"`
	Edges  []EdgeSnapshot  `json:"edges"`
}

type ShapeSnapshot struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Name   string  `json:"name"`

	Attributes []Attribute `json:"attributes,omitempty"`
	Methods    []Method    `json:"methods,omitempty"`
}

type EdgeSnapshot struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`

	Offset        *float64    `json:"offset,omitempty"`
	ControlPoints []geo.Point `json:"controlPoints,omitempty"`

	Name              string          `json:"name,omitempty"`
	Kind              ClassAssocKind  `json:"kind,omitempty"`
	AssocType         UseCaseRelation `json:"assocType,omitempty"`
	CardinalitySource *int            `json:"cardinalitySource,omitempty"`
	CardinalityTarget *int            `json:"cardinalityTarget,omitempty"`
}

// Snapshot copies the diagram into plain data.
func (d *Diagram) Snapshot() *Snapshot {
	snap := &Snapshot{
		ID:     d.ID,
		Name:   d.Name,
		Type:   d.Type,
		Shapes: make([]ShapeSnapshot, 0, len(d.Shapes)),
		Edges:  make([]EdgeSnapshot, 0, len(d.Edges)),
	}
	for _, s := range d.Shapes {
		snap.Shapes = append(snap.Shapes, SnapshotShape(s))
	}
	for _, e := range d.Edges {
		snap.Edges = append(snap.Edges, SnapshotEdge(e))
	}
	return snap
}

func SnapshotShape(s *Shape) ShapeSnapshot {
	ss := ShapeSnapshot{
		ID:     s.ID,
		Type:   s.Type(),
		X:      s.Box.TopLeft.X,
		Y:      s.Box.TopLeft.Y,
		Width:  s.Box.Width,
		Height: s.Box.Height,
		Name:   s.Name(),
	}
	var m Members
	switch k := s.Kind.(type) {
	case Class:
		m = k.Members.copy()
	case Interface:
		m = k.Members.copy()
	}
	ss.Attributes = m.Attributes
	ss.Methods = m.Methods
	return ss
}

func SnapshotEdge(e *Edge) EdgeSnapshot {
	es := EdgeSnapshot{
		ID:       e.ID,
		Type:     e.Type(),
		SourceID: e.Src.ID,
		TargetID: e.Dst.ID,
	}
	if e.Offset != 0 {
		off := e.Offset
		es.Offset = &off
	}
	for _, wp := range e.Waypoints {
		es.ControlPoints = append(es.ControlPoints, *wp)
	}
	switch k := copyEdgeKind(e.Kind).(type) {
	case ClassAssociation:
		es.Kind = k.Kind
		es.Name = k.Name
		es.CardinalitySource = k.CardinalitySource
		es.CardinalityTarget = k.CardinalityTarget
	case UseCaseAssociation:
		es.AssocType = k.Relation
		es.Name = StyleOf(k).Label
	case ActorUseCaseAssociation:
		es.Name = k.Name
	}
	return es
}

// Copy deep copies the snapshot.
func (s *Snapshot) Copy() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		ID:     s.ID,
		Name:   s.Name,
		Type:   s.Type,
		Shapes: make([]ShapeSnapshot, 0, len(s.Shapes)),
		Edges:  make([]EdgeSnapshot, 0, len(s.Edges)),
	}
	for _, ss := range s.Shapes {
		m := Members{Attributes: ss.Attributes, Methods: ss.Methods}.copy()
		ss.Attributes, ss.Methods = m.Attributes, m.Methods
		out.Shapes = append(out.Shapes, ss)
	}
	for _, es := range s.Edges {
		if es.Offset != nil {
			v := *es.Offset
			es.Offset = &v
		}
		if es.CardinalitySource != nil {
			v := *es.CardinalitySource
			es.CardinalitySource = &v
		}
		if es.CardinalityTarget != nil {
			v := *es.CardinalityTarget
			es.CardinalityTarget = &v
		}
		es.ControlPoints = append([]geo.Point(nil), es.ControlPoints...)
		out.Edges = append(out.Edges, es)
	}
	return out
}

// ReviveShape builds a live shape from ss. Unknown types return nil.
func ReviveShape(ss ShapeSnapshot) *Shape {
	m := Members{Attributes: ss.Attributes, Methods: ss.Methods}.copy()
	var k ShapeKind
	switch ss.Type {
	case ACTOR_TYPE:
		k = Actor{Name: ss.Name}
	case USECASE_TYPE:
		k = UseCase{Name: ss.Name}
	case CLASS_TYPE:
		k = Class{Name: ss.Name, Members: m}
	case INTERFACE_TYPE:
		k = Interface{Name: ss.Name, Members: m}
	case SYSTEM_BOUNDARY_TYPE:
		k = SystemBoundary{Name: ss.Name}
	default:
		return nil
	}

	s := NewShape(k, ss.X, ss.Y)
	if ss.ID != "" {
		s.ID = ss.ID
	}
	if ss.Width > 0 && ss.Height > 0 {
		s.Resize(ss.Width, ss.Height)
	}
	return s
}

// ReviveEdge builds a live edge from es, binding its endpoints through
// resolve. It returns nil when either endpoint cannot be resolved or the type
// is unknown: a missing edge is preferable to a dangling one.
func ReviveEdge(es EdgeSnapshot, resolve func(id string) *Shape) *Edge {
	src := resolve(es.SourceID)
	dst := resolve(es.TargetID)
	if src == nil || dst == nil {
		return nil
	}

	var k EdgeKind
	switch es.Type {
	case CLASS_ASSOCIATION_TYPE:
		kind := es.Kind
		if !kind.Valid() {
			kind = Association
		}
		ca := ClassAssociation{Kind: kind, Name: es.Name}
		if es.CardinalitySource != nil {
			v := *es.CardinalitySource
			ca.CardinalitySource = &v
		}
		if es.CardinalityTarget != nil {
			v := *es.CardinalityTarget
			ca.CardinalityTarget = &v
		}
		k = ca
	case USECASE_ASSOCIATION_TYPE:
		rel := es.AssocType
		if rel != Extends {
			rel = Includes
		}
		k = UseCaseAssociation{Relation: rel}
	case ACTOR_USECASE_ASSOCIATION_TYPE:
		k = ActorUseCaseAssociation{Name: es.Name}
	default:
		return nil
	}

	e := NewEdge(src, dst, k)
	if es.ID != "" {
		e.ID = es.ID
	}
	if es.Offset != nil {
		e.Offset = *es.Offset
	}
	for _, cp := range es.ControlPoints {
		cp := cp
		e.Waypoints = append(e.Waypoints, &cp)
	}
	return e
}

// Revive rebuilds a live diagram from snap. Shapes are revived first so edges
// can bind to them; anything that cannot be revived is logged and skipped.
func Revive(ctx context.Context, snap *Snapshot) *Diagram {
	d := NewDiagram(snap.Name, snap.Type)
	if snap.ID != "" {
		d.ID = snap.ID
	}
	for _, ss := range snap.Shapes {
		s := ReviveShape(ss)
		if s == nil {
			log.Warn(ctx, "skipped shape with unknown type", slog.F("id", ss.ID), slog.F("type", ss.Type))
			continue
		}
		d.AddShape(ctx, s)
	}
	for _, es := range snap.Edges {
		e := ReviveEdge(es, d.Shape)
		if e == nil {
			log.Warn(ctx, "dropped edge that could not be revived",
				slog.F("id", es.ID), slog.F("type", es.Type),
				slog.F("source", es.SourceID), slog.F("target", es.TargetID))
			continue
		}
		d.AddEdge(ctx, e)
	}
	return d
}

// Restore replaces the contents of d with snap in place, keeping d's identity.
func (d *Diagram) Restore(ctx context.Context, snap *Snapshot) {
	revived := Revive(ctx, snap)
	d.Name = revived.Name
	if revived.Type.Valid() {
		d.Type = revived.Type
	}
	d.Shapes = revived.Shapes
	d.Edges = revived.Edges
}

func MarshalSnapshot(s *Snapshot) (_ []byte, err error) {
	defer xdefer.Errorf(&err, "failed to marshal snapshot")
	return json.MarshalIndent(s, "", "  ")
}

func UnmarshalSnapshot(b []byte) (_ *Snapshot, err error) {
	defer xdefer.Errorf(&err, "failed to unmarshal snapshot")
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.Type == "" {
		s.Type = FreeDiagram
	}
	return &s, nil
}
