package umlcli

import (
	"context"
	"encoding/json"
	"fmt"

	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/umlcanvas/lib/xmain"
	"oss.terrastruct.com/umlcanvas/umlcanvas"
	"oss.terrastruct.com/umlcanvas/umlconfig"
	"oss.terrastruct.com/umlcanvas/umlgraph"
)

// Event is one recorded input to the editor. X and Y are screen pixels.
type Event struct {
	Type     string  `json:"type"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	DeltaX   float64 `json:"deltaX,omitempty"`
	DeltaY   float64 `json:"deltaY,omitempty"`
	Modifier bool    `json:"modifier,omitempty"`
	Shift    bool    `json:"shift,omitempty"`
}

// Apply feeds events to ed in order.
func Apply(ed *umlcanvas.Editor, events []Event) error {
	for i, ev := range events {
		pe := umlcanvas.PointerEvent{X: ev.X, Y: ev.Y}
		switch ev.Type {
		case "down":
			ed.PointerDown(pe)
		case "move":
			ed.PointerMove(pe)
		case "up":
			ed.PointerUp(pe)
		case "dblclick":
			ed.DoubleClick(pe)
		case "wheel":
			ed.Wheel(umlcanvas.WheelEvent{
				X:        ev.X,
				Y:        ev.Y,
				DeltaX:   ev.DeltaX,
				DeltaY:   ev.DeltaY,
				Modifier: ev.Modifier,
				Shift:    ev.Shift,
			})
		case "delete":
			ed.Controller.DeleteSelection()
		case "undo":
			ed.Undo()
		case "redo":
			ed.Redo()
		default:
			return fmt.Errorf("event %d: unknown type %q", i, ev.Type)
		}
	}
	return nil
}

func replayCmd(ctx context.Context, ms *xmain.State, cfg *umlconfig.Config, args []string) (err error) {
	defer xdefer.Errorf(&err, "failed to replay")

	var outFlag *string
	var vf viewportFlags
	help, err := parse(ms, args, func(o *xmain.Opts) error {
		outFlag = o.String("", "out", "o", "-", "where to write the resulting diagram")
		return defineViewportFlags(o, &vf)
	})
	if err != nil || help {
		return err
	}
	if len(ms.Opts.Flags.Args()) != 2 {
		return xmain.UsageErrorf("replay must be passed a diagram file and an events file")
	}
	diagramPath, eventsPath := ms.Opts.Flags.Arg(0), ms.Opts.Flags.Arg(1)
	if diagramPath == "-" && eventsPath == "-" {
		return xmain.UsageErrorf("only one of the diagram and events may be read from stdin")
	}

	snap, err := readSnapshot(ms, diagramPath)
	if err != nil {
		return err
	}
	b, err := ms.ReadPath(eventsPath)
	if err != nil {
		return err
	}
	var events []Event
	if err := json.Unmarshal(b, &events); err != nil {
		return fmt.Errorf("failed to parse events %s: %w", ms.HumanPath(eventsPath), err)
	}

	vp := umlcanvas.NewViewport(*vf.screenW, *vf.screenH)
	vp.OffsetX, vp.OffsetY, vp.Scale = *vf.offsetX, *vf.offsetY, *vf.scale
	ed := umlcanvas.NewEditor(ctx, umlgraph.Revive(ctx, snap), vp, cfg.Options())
	if err := Apply(ed, events); err != nil {
		return err
	}

	out, err := umlgraph.MarshalSnapshot(ed.Diagram().Snapshot())
	if err != nil {
		return err
	}
	if err := ms.WritePath(*outFlag, append(out, '\n')); err != nil {
		return err
	}
	undo, redo := ed.History.Len()
	ms.Log.Success.Printf("replayed %d events onto %s (%d undoable, %d redoable)", len(events), ms.HumanPath(diagramPath), undo, redo)
	return nil
}
