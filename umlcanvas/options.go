package umlcanvas

import (
	"oss.terrastruct.com/umlcanvas/umlgraph"
	"oss.terrastruct.com/umlcanvas/umllayout"
)

// Options are the tunables of the surface. Pixel values are screen pixels at
// scale 1 and shrink in world units as the view zooms in.
type Options struct {
	HandleRadius  float64
	EdgeTolerance float64
	DragThreshold float64

	CellSize    float64
	EdgeSpacing float64

	MinScale float64
	MaxScale float64

	HistoryDepth int
}

func DefaultOptions() Options {
	return Options{
		HandleRadius:  8,
		EdgeTolerance: umlgraph.DefaultEdgeTolerance,
		DragThreshold: 4,
		CellSize:      umllayout.DefaultCellSize,
		EdgeSpacing:   umllayout.DefaultEdgeSpacing,
		MinScale:      DefaultMinScale,
		MaxScale:      DefaultMaxScale,
		HistoryDepth:  10,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.HandleRadius <= 0 {
		o.HandleRadius = def.HandleRadius
	}
	if o.EdgeTolerance <= 0 {
		o.EdgeTolerance = def.EdgeTolerance
	}
	if o.DragThreshold <= 0 {
		o.DragThreshold = def.DragThreshold
	}
	if o.CellSize <= 0 {
		o.CellSize = def.CellSize
	}
	if o.EdgeSpacing <= 0 {
		o.EdgeSpacing = def.EdgeSpacing
	}
	if o.MinScale <= 0 {
		o.MinScale = def.MinScale
	}
	if o.MaxScale < o.MinScale {
		o.MaxScale = def.MaxScale
	}
	if o.HistoryDepth <= 0 {
		o.HistoryDepth = def.HistoryDepth
	}
	return o
}
