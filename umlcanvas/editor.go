package umlcanvas

import (
	"context"

	"cdr.dev/slog"

	"oss.terrastruct.com/umlcanvas/lib/log"
	"oss.terrastruct.com/umlcanvas/umlgraph"
	"oss.terrastruct.com/umlcanvas/umlhistory"
)

// Editor owns one open diagram: its controller, surface, viewport and
// history. Every committed edit records the state from before it. Edits made
// during a gesture are committed once, when the pointer is released.
type Editor struct {
	ctx context.Context

	Controller *Controller
	Surface    *Surface
	History    *umlhistory.History

	// base is the diagram as of the last commit.
	base *umlgraph.Snapshot
}

func NewEditor(ctx context.Context, d *umlgraph.Diagram, vp *Viewport, opts Options) *Editor {
	opts = opts.withDefaults()
	vp.MinScale = opts.MinScale
	vp.MaxScale = opts.MaxScale

	ed := &Editor{
		ctx:     ctx,
		History: umlhistory.New(opts.HistoryDepth),
	}
	ed.Controller = NewController(d, opts)
	ed.Surface = NewSurface(ed.Controller, vp, opts)
	ed.Controller.OnChange = ed.onChange
	ed.base = d.Snapshot()
	return ed
}

func (ed *Editor) Diagram() *umlgraph.Diagram {
	return ed.Controller.Diagram()
}

func (ed *Editor) Viewport() *Viewport {
	return ed.Surface.Viewport()
}

func (ed *Editor) onChange(c Change) {
	if ed.Surface.Active() {
		return
	}
	log.Debug(ed.ctx, "diagram changed", slog.F("kind", c.Kind), slog.F("id", c.ID))
	ed.commit()
}

func (ed *Editor) commit() {
	ed.History.Record(ed.base)
	ed.base = ed.Diagram().Snapshot()
}

func (ed *Editor) PointerDown(ev PointerEvent) {
	ed.Surface.PointerDown(ev)
}

func (ed *Editor) PointerMove(ev PointerEvent) {
	ed.Surface.PointerMove(ev)
}

// PointerUp ends the gesture and commits it if it edited the diagram.
func (ed *Editor) PointerUp(ev PointerEvent) bool {
	if !ed.Surface.PointerUp(ev) {
		return false
	}
	log.Debug(ed.ctx, "gesture committed")
	ed.commit()
	return true
}

func (ed *Editor) DoubleClick(ev PointerEvent) bool {
	return ed.Surface.DoubleClick(ev)
}

func (ed *Editor) Wheel(ev WheelEvent) {
	ed.Surface.Wheel(ev)
}

func (ed *Editor) Undo() bool {
	ed.Surface.reset()
	prev, ok := ed.History.Undo(ed.Diagram().Snapshot())
	if !ok {
		return false
	}
	ed.History.Replay(func() {
		ed.Controller.Restore(ed.ctx, prev)
	})
	return true
}

func (ed *Editor) Redo() bool {
	ed.Surface.reset()
	next, ok := ed.History.Redo(ed.Diagram().Snapshot())
	if !ok {
		return false
	}
	ed.History.Replay(func() {
		ed.Controller.Restore(ed.ctx, next)
	})
	return true
}

// Load replaces the diagram with snap and starts a fresh history, as when
// another session is opened.
func (ed *Editor) Load(snap *umlgraph.Snapshot) {
	ed.Surface.reset()
	ed.Controller.ClearSelection()
	ed.History.Replay(func() {
		ed.Controller.Restore(ed.ctx, snap)
	})
	ed.History.Reset()
	ed.base = ed.Diagram().Snapshot()
}
