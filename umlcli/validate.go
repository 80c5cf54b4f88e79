package umlcli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"oss.terrastruct.com/xdefer"
	"oss.terrastruct.com/xjson"

	"oss.terrastruct.com/umlcanvas/lib/xmain"
	"oss.terrastruct.com/umlcanvas/umlgraph"
)

type validation struct {
	Shapes        int      `json:"shapes"`
	Edges         int      `json:"edges"`
	DroppedShapes []string `json:"droppedShapes,omitempty"`
	DroppedEdges  []string `json:"droppedEdges,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

func (v *validation) ok() bool {
	return len(v.DroppedShapes) == 0 && len(v.DroppedEdges) == 0 && len(v.Errors) == 0
}

// validate revives snap and sorts everything that did not survive or looks
// wrong into the report. Realization sources are warnings, the rest errors.
func validate(ctx context.Context, snap *umlgraph.Snapshot) *validation {
	d := umlgraph.Revive(ctx, snap)
	v := &validation{
		Shapes: len(d.Shapes),
		Edges:  len(d.Edges),
	}
	// Entries without an id get a fresh one on revival and cannot be
	// matched back.
	seen := make(map[string]bool)
	duplicate := func(id string) bool {
		if id == "" {
			return false
		}
		if seen[id] {
			v.Errors = append(v.Errors, fmt.Sprintf("id %q is used more than once", id))
			return true
		}
		seen[id] = true
		return false
	}
	for _, ss := range snap.Shapes {
		if !duplicate(ss.ID) && ss.ID != "" && d.Shape(ss.ID) == nil {
			v.DroppedShapes = append(v.DroppedShapes, ss.ID)
		}
	}
	for _, es := range snap.Edges {
		if !duplicate(es.ID) && es.ID != "" && d.Edge(es.ID) == nil {
			v.DroppedEdges = append(v.DroppedEdges, es.ID)
		}
	}
	for _, err := range d.Validate() {
		if errors.Is(err, umlgraph.ErrRealizationSource) {
			v.Warnings = append(v.Warnings, err.Error())
		} else {
			v.Errors = append(v.Errors, err.Error())
		}
	}
	return v
}

func validateCmd(ctx context.Context, ms *xmain.State, args []string) (err error) {
	defer xdefer.Errorf(&err, "failed to validate")

	var jsonFlag *bool
	help, err := parse(ms, args, func(o *xmain.Opts) (err error) {
		jsonFlag, err = o.Bool("", "json", "", false, "print the report as JSON")
		return err
	})
	if err != nil || help {
		return err
	}
	if len(ms.Opts.Flags.Args()) != 1 {
		return xmain.UsageErrorf("validate must be passed an input file to be validated")
	}
	path := ms.Opts.Flags.Arg(0)

	snap, err := readSnapshot(ms, path)
	if err != nil {
		return err
	}
	v := validate(ctx, snap)

	if *jsonFlag {
		if _, err := ms.Stdout.Write([]byte(xjson.MarshalIndent(v) + "\n")); err != nil {
			return err
		}
	} else {
		for _, w := range v.Warnings {
			ms.Log.Warn.Print(w)
		}
	}

	if !v.ok() {
		var errs error
		for _, id := range v.DroppedShapes {
			errs = multierr.Append(errs, xmain.ExitErrorf(1, "shape %q could not be revived", id))
		}
		for _, id := range v.DroppedEdges {
			errs = multierr.Append(errs, xmain.ExitErrorf(1, "edge %q could not be revived", id))
		}
		for _, e := range v.Errors {
			errs = multierr.Append(errs, xmain.ExitErrorf(1, "%s", e))
		}
		return errs
	}
	ms.Log.Success.Printf("%s is valid: %d shapes, %d edges", ms.HumanPath(path), v.Shapes, v.Edges)
	return nil
}
