// Package umlhistory keeps a bounded undo/redo history of diagram snapshots.
package umlhistory

import (
	"oss.terrastruct.com/umlcanvas/umlgraph"
)

const DefaultDepth = 10

// History is a pair of snapshot stacks. Each stack holds at most Depth
// entries; pushing onto a full stack drops its oldest entry.
type History struct {
	undo  []*umlgraph.Snapshot
	redo  []*umlgraph.Snapshot
	depth int

	// replaying is set while an undo or redo is being applied so that the
	// apply does not record itself.
	replaying bool
}

func New(depth int) *History {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &History{depth: depth}
}

func (h *History) push(stack []*umlgraph.Snapshot, s *umlgraph.Snapshot) []*umlgraph.Snapshot {
	if s == nil {
		return stack
	}
	stack = append(stack, s.Copy())
	if len(stack) > h.depth {
		stack = append(stack[:0], stack[len(stack)-h.depth:]...)
	}
	return stack
}

func pop(stack []*umlgraph.Snapshot) ([]*umlgraph.Snapshot, *umlgraph.Snapshot) {
	last := stack[len(stack)-1]
	stack[len(stack)-1] = nil
	return stack[:len(stack)-1], last
}

// Record pushes the state from before a change and clears the redo stack.
// It does nothing while replaying.
func (h *History) Record(pre *umlgraph.Snapshot) {
	if h.replaying || pre == nil {
		return
	}
	h.undo = h.push(h.undo, pre)
	h.redo = h.redo[:0]
}

// Undo pops the most recent recorded state and saves current for redo. It
// reports false when there is nothing to undo.
func (h *History) Undo(current *umlgraph.Snapshot) (*umlgraph.Snapshot, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	var prev *umlgraph.Snapshot
	h.undo, prev = pop(h.undo)
	h.redo = h.push(h.redo, current)
	return prev, true
}

// Redo is the inverse of Undo.
func (h *History) Redo(current *umlgraph.Snapshot) (*umlgraph.Snapshot, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	var next *umlgraph.Snapshot
	h.redo, next = pop(h.redo)
	h.undo = h.push(h.undo, current)
	return next, true
}

// Replay runs apply with recording suspended.
func (h *History) Replay(apply func()) {
	h.replaying = true
	defer func() {
		h.replaying = false
	}()
	apply()
}

func (h *History) Replaying() bool {
	return h.replaying
}

func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}

func (h *History) CanUndo() bool {
	return len(h.undo) > 0
}

func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}

// Len returns the sizes of the undo and redo stacks.
func (h *History) Len() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

func (h *History) Depth() int {
	return h.depth
}
