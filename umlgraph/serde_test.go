package umlgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oss.terrastruct.com/diff"

	"oss.terrastruct.com/umlcanvas/lib/geo"
	"oss.terrastruct.com/umlcanvas/lib/go2"
	"oss.terrastruct.com/umlcanvas/lib/log"
)

func sampleClassDiagram(ctx context.Context) *Diagram {
	d := NewDiagram("billing", ClassDiagram)
	d.ID = "diagram-1"
	invoice := NewShape(Class{Name: "Invoice", Members: Members{
		Attributes: []Attribute{{Visibility: Private, Name: "total"}},
		Methods:    []Method{{Visibility: Public, Name: "pay", Params: []Param{{Name: "amount", Type: "int"}}, ReturnType: "bool"}},
	}}, 10, 20)
	invoice.ID = "invoice"
	payable := NewShape(Interface{Name: "Payable"}, 400, 20)
	payable.ID = "payable"
	line := NewShape(Class{Name: "Line"}, 10, 300)
	line.ID = "line"
	d.AddShape(ctx, invoice)
	d.AddShape(ctx, payable)
	d.AddShape(ctx, line)

	realization := NewEdge(payable, invoice, ClassAssociation{Kind: Realization})
	realization.ID = "e1"
	realization.Offset = -6
	realization.AddWaypoint(geo.NewPoint(250, 250))
	d.AddEdge(ctx, realization)

	comp := NewEdge(invoice, line, ClassAssociation{
		Kind:              Composition,
		Name:              "lines",
		CardinalitySource: go2.Pointer(1),
		CardinalityTarget: go2.Pointer(0),
	})
	comp.ID = "e2"
	d.AddEdge(ctx, comp)
	return d
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)
	d := sampleClassDiagram(ctx)

	b, err := MarshalSnapshot(d.Snapshot())
	require.NoError(t, err)
	snap, err := UnmarshalSnapshot(b)
	require.NoError(t, err)

	revived := Revive(ctx, snap)
	require.Len(t, revived.Shapes, 3)
	require.Len(t, revived.Edges, 2)
	assert.Same(t, revived.Shape("payable"), revived.Edge("e1").Src)
	assert.Equal(t, -6., revived.Edge("e1").Offset)
	assert.Equal(t, "lines", revived.Edge("e2").Label())
	assert.Equal(t, HollowTriangleAdornment, revived.Edge("e1").Adornment())

	b2, err := MarshalSnapshot(revived.Snapshot())
	require.NoError(t, err)
	ds, err := diff.Strings(string(b), string(b2))
	require.NoError(t, err)
	if ds != "" {
		t.Fatalf("snapshot changed across revive:\n%s", ds)
	}
}

func TestSnapshotFormat(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)
	d := sampleClassDiagram(ctx)
	snap := d.Snapshot()

	assert.Equal(t, "class", snap.Shapes[0].Type)
	assert.Equal(t, "interface", snap.Shapes[1].Type)
	e1 := snap.Edges[0]
	assert.Equal(t, "class-association", e1.Type)
	assert.Equal(t, "payable", e1.SourceID)
	assert.Equal(t, []geo.Point{{X: 250, Y: 250}}, e1.ControlPoints)
	require.NotNil(t, e1.Offset)
	assert.Nil(t, snap.Edges[1].Offset)
	assert.Equal(t, 0, *snap.Edges[1].CardinalityTarget)

	b, err := MarshalSnapshot(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"sourceId": "payable"`)
	assert.Contains(t, string(b), `"controlPoints"`)
	assert.Contains(t, string(b), `"kind": "realization"`)
}

func TestReviveDropsUnresolvedEdges(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)
	snap := &Snapshot{
		Name: "partial",
		Type: UseCaseDiagram,
		Shapes: []ShapeSnapshot{
			{ID: "u", Type: ACTOR_TYPE, Name: "user", X: 0, Y: 0},
			{ID: "l", Type: USECASE_TYPE, Name: "login", X: 200, Y: 0, Width: 200, Height: 90},
			{ID: "x", Type: "note", Name: "unknown"},
		},
		Edges: []EdgeSnapshot{
			{ID: "ok", Type: ACTOR_USECASE_ASSOCIATION_TYPE, SourceID: "u", TargetID: "l"},
			{ID: "dangling", Type: ACTOR_USECASE_ASSOCIATION_TYPE, SourceID: "u", TargetID: "gone"},
			{ID: "to-unknown", Type: USECASE_ASSOCIATION_TYPE, SourceID: "l", TargetID: "x"},
			{ID: "bad-type", Type: "dependency", SourceID: "u", TargetID: "l"},
		},
	}

	d := Revive(ctx, snap)
	require.Len(t, d.Shapes, 2)
	require.Len(t, d.Edges, 1)
	assert.Equal(t, "ok", d.Edges[0].ID)
	assert.Equal(t, 60., d.Shape("u").Box.Width)
	assert.Equal(t, 200., d.Shape("l").Box.Width)
	assert.Empty(t, d.Validate())
}

func TestReviveEdgeDefaults(t *testing.T) {
	t.Parallel()

	a := NewShape(Class{Name: "A"}, 0, 0)
	b := NewShape(Class{Name: "B"}, 300, 0)
	resolve := func(id string) *Shape {
		switch id {
		case "a":
			return a
		case "b":
			return b
		}
		return nil
	}

	testCases := []struct {
		name    string
		es      EdgeSnapshot
		expKind EdgeKind
	}{
		{
			name:    "unknown_class_kind",
			es:      EdgeSnapshot{Type: CLASS_ASSOCIATION_TYPE, SourceID: "a", TargetID: "b", Kind: "dependency"},
			expKind: ClassAssociation{Kind: Association},
		},
		{
			name:    "missing_relation",
			es:      EdgeSnapshot{Type: USECASE_ASSOCIATION_TYPE, SourceID: "a", TargetID: "b"},
			expKind: UseCaseAssociation{Relation: Includes},
		},
		{
			name:    "extends",
			es:      EdgeSnapshot{Type: USECASE_ASSOCIATION_TYPE, SourceID: "b", TargetID: "a", AssocType: Extends},
			expKind: UseCaseAssociation{Relation: Extends},
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := ReviveEdge(tc.es, resolve)
			require.NotNil(t, e)
			assert.Equal(t, tc.expKind, e.Kind)
			assert.NotEmpty(t, e.ID)
		})
	}
}

func TestSnapshotCopyIsDeep(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)
	snap := sampleClassDiagram(ctx).Snapshot()
	c := snap.Copy()

	c.Shapes[0].Attributes[0].Name = "changed"
	c.Edges[0].ControlPoints[0].X = -1
	*c.Edges[0].Offset = 99
	*c.Edges[1].CardinalitySource = 42

	assert.Equal(t, "total", snap.Shapes[0].Attributes[0].Name)
	assert.Equal(t, 250., snap.Edges[0].ControlPoints[0].X)
	assert.Equal(t, -6., *snap.Edges[0].Offset)
	assert.Equal(t, 1, *snap.Edges[1].CardinalitySource)
	assert.Nil(t, (*Snapshot)(nil).Copy())
}

func TestRestoreKeepsIdentity(t *testing.T) {
	ctx := log.WithTB(context.Background(), t, nil)
	d := sampleClassDiagram(ctx)
	before := d.Snapshot()

	d.RemoveShape("invoice")
	d.Shape("payable").MoveTo(0, 0)
	d.Restore(ctx, before)

	assert.Equal(t, "diagram-1", d.ID)
	assert.Len(t, d.Shapes, 3)
	assert.Len(t, d.Edges, 2)
	assert.Equal(t, 400., d.Shape("payable").Box.TopLeft.X)
}

func TestUnmarshalSnapshot(t *testing.T) {
	snap, err := UnmarshalSnapshot([]byte(`{"shapes":[{"id":"a","type":"actor","x":1,"y":2,"width":0,"height":0,"name":"a"}],"edges":[]}`))
	require.NoError(t, err)
	assert.Equal(t, FreeDiagram, snap.Type)

	_, err = UnmarshalSnapshot([]byte(`{"shapes":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal snapshot")
}
