package umlcli

import (
	"context"

	"oss.terrastruct.com/xdefer"
	"oss.terrastruct.com/xjson"

	"oss.terrastruct.com/umlcanvas/lib/xmain"
	"oss.terrastruct.com/umlcanvas/umlconfig"
	"oss.terrastruct.com/umlcanvas/umlgraph"
	"oss.terrastruct.com/umlcanvas/umllayout"
)

type viewportFlags struct {
	offsetX, offsetY *float64
	scale            *float64
	screenW, screenH *float64
}

func defineViewportFlags(o *xmain.Opts, vf *viewportFlags) (err error) {
	vf.offsetX, err = o.Float64("", "offset-x", "", 0, "viewport x offset in screen pixels")
	if err != nil {
		return err
	}
	vf.offsetY, err = o.Float64("", "offset-y", "", 0, "viewport y offset in screen pixels")
	if err != nil {
		return err
	}
	vf.scale, err = o.Float64("", "scale", "", 1, "viewport zoom")
	if err != nil {
		return err
	}
	vf.screenW, err = o.Float64("UMLCANVAS_SCREEN_WIDTH", "screen-width", "", umllayout.DefaultScreenW, "screen width in pixels")
	if err != nil {
		return err
	}
	vf.screenH, err = o.Float64("UMLCANVAS_SCREEN_HEIGHT", "screen-height", "", umllayout.DefaultScreenH, "screen height in pixels")
	return err
}

func (vf *viewportFlags) layout() umllayout.Viewport {
	return umllayout.Viewport{
		OffsetX: *vf.offsetX,
		OffsetY: *vf.offsetY,
		Scale:   *vf.scale,
		ScreenW: *vf.screenW,
		ScreenH: *vf.screenH,
	}
}

type placement struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func placeCmd(ctx context.Context, ms *xmain.State, cfg *umlconfig.Config, args []string) (err error) {
	defer xdefer.Errorf(&err, "failed to place")

	var widthFlag, heightFlag *float64
	var vf viewportFlags
	help, err := parse(ms, args, func(o *xmain.Opts) (err error) {
		widthFlag, err = o.Float64("", "width", "", cfg.Layout.DefaultWidth, "width of the shape to place")
		if err != nil {
			return err
		}
		heightFlag, err = o.Float64("", "height", "", cfg.Layout.DefaultHeight, "height of the shape to place")
		if err != nil {
			return err
		}
		return defineViewportFlags(o, &vf)
	})
	if err != nil || help {
		return err
	}
	if len(ms.Opts.Flags.Args()) != 1 {
		return xmain.UsageErrorf("place must be passed exactly one diagram file")
	}
	if *widthFlag <= 0 || *heightFlag <= 0 {
		return xmain.UsageErrorf("--width and --height must be positive")
	}

	snap, err := readSnapshot(ms, ms.Opts.Flags.Arg(0))
	if err != nil {
		return err
	}
	d := umlgraph.Revive(ctx, snap)

	p := umllayout.NewPlacer(cfg.Canvas.CellSize).FindFreeSpot(*widthFlag, *heightFlag, d.Boxes(), vf.layout())
	ms.Log.Debug.Printf("placed %vx%v at %s among %d shapes", *widthFlag, *heightFlag, p.ToString(), len(d.Shapes))

	_, err = ms.Stdout.Write([]byte(xjson.MarshalIndent(placement{
		X:      p.X,
		Y:      p.Y,
		Width:  *widthFlag,
		Height: *heightFlag,
	}) + "\n"))
	return err
}
