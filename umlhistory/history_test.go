package umlhistory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/umlcanvas/umlgraph"
)

func snap(name string) *umlgraph.Snapshot {
	return &umlgraph.Snapshot{Name: name, Type: umlgraph.FreeDiagram}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 3, 10} {
		n := n
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			t.Parallel()
			h := New(10)
			// states[i] is the document after i edits
			states := make([]*umlgraph.Snapshot, n+1)
			for i := range states {
				states[i] = snap(fmt.Sprintf("s%d", i))
			}
			for i := 0; i < n; i++ {
				h.Record(states[i])
			}

			cur := states[n]
			for i := n - 1; i >= 0; i-- {
				prev, ok := h.Undo(cur)
				require.True(t, ok)
				assert.Equal(t, states[i].Name, prev.Name)
				cur = prev
			}
			_, ok := h.Undo(cur)
			assert.False(t, ok)

			for i := 1; i <= n; i++ {
				next, ok := h.Redo(cur)
				require.True(t, ok)
				assert.Equal(t, states[i].Name, next.Name)
				cur = next
			}
			_, ok = h.Redo(cur)
			assert.False(t, ok)
			assert.Equal(t, states[n].Name, cur.Name)
		})
	}
}

func TestEmptyHistory(t *testing.T) {
	h := New(0)
	assert.Equal(t, DefaultDepth, h.Depth())

	s, ok := h.Undo(snap("now"))
	assert.False(t, ok)
	assert.Nil(t, s)
	s, ok = h.Redo(snap("now"))
	assert.False(t, ok)
	assert.Nil(t, s)

	u, r := h.Len()
	assert.Equal(t, 0, u)
	assert.Equal(t, 0, r)
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestDepthCap(t *testing.T) {
	h := New(10)
	for i := 0; i < 15; i++ {
		h.Record(snap(fmt.Sprintf("s%d", i)))
	}
	u, _ := h.Len()
	assert.Equal(t, 10, u)

	var names []string
	cur := snap("s15")
	for h.CanUndo() {
		prev, _ := h.Undo(cur)
		names = append(names, prev.Name)
		cur = prev
	}
	// the five oldest were dropped
	assert.Equal(t, []string{"s14", "s13", "s12", "s11", "s10", "s9", "s8", "s7", "s6", "s5"}, names)
	_, r := h.Len()
	assert.Equal(t, 10, r)
}

func TestRecordClearsRedo(t *testing.T) {
	h := New(10)
	h.Record(snap("a"))
	h.Undo(snap("b"))
	assert.True(t, h.CanRedo())

	h.Record(snap("c"))
	assert.False(t, h.CanRedo())
}

func TestReplaySuppressesRecording(t *testing.T) {
	h := New(10)
	h.Record(snap("a"))

	prev, ok := h.Undo(snap("b"))
	require.True(t, ok)
	h.Replay(func() {
		assert.True(t, h.Replaying())
		// the apply reports a change like any other edit
		h.Record(snap("during-" + prev.Name))
	})
	assert.False(t, h.Replaying())

	u, r := h.Len()
	assert.Equal(t, 0, u)
	assert.Equal(t, 1, r)
}

func TestReplayResetsGuardOnPanic(t *testing.T) {
	h := New(10)
	assert.Panics(t, func() {
		h.Replay(func() { panic("apply failed") })
	})
	assert.False(t, h.Replaying())
}

func TestRecordedSnapshotsAreCopies(t *testing.T) {
	h := New(10)
	s := snap("a")
	s.Shapes = []umlgraph.ShapeSnapshot{{ID: "x", Type: umlgraph.ACTOR_TYPE, Name: "x"}}
	h.Record(s)
	s.Shapes[0].Name = "mutated"

	prev, ok := h.Undo(snap("b"))
	require.True(t, ok)
	assert.Equal(t, "x", prev.Shapes[0].Name)
}

func TestReset(t *testing.T) {
	h := New(3)
	h.Record(snap("a"))
	h.Record(snap("b"))
	h.Undo(snap("c"))
	h.Reset()
	u, r := h.Len()
	assert.Equal(t, 0, u)
	assert.Equal(t, 0, r)
}
