package umlgraph

import (
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"oss.terrastruct.com/umlcanvas/lib/go2"
)

const (
	classPadding   = 8.
	classMinWidth  = 120.
	titleFontSize  = 14.
	memberFontSize = 12.
	memberRow      = 16.
	sectionGap     = 6.
)

// basicfont glyphs are 13px tall; widths are scaled from there.
var measureFace font.Face = basicfont.Face7x13

const measureFaceSize = 13.

// TextWidth estimates the rendered width of s at the given pixel size.
func TextWidth(s string, size float64) float64 {
	adv := font.MeasureString(measureFace, s)
	return math.Ceil(float64(adv.Ceil()) * size / measureFaceSize)
}

// dimensionsToFit returns the minimum class box that fits the title and members.
func dimensionsToFit(name string, m Members, titleRow float64) (float64, float64) {
	maxW := TextWidth(name, titleFontSize)
	for _, a := range m.Attributes {
		maxW = go2.Max(maxW, TextWidth(a.String(), memberFontSize))
	}
	for _, meth := range m.Methods {
		maxW = go2.Max(maxW, TextWidth(meth.String(), memberFontSize))
	}
	width := go2.Max(classMinWidth, maxW+classPadding*2)

	section := func(n int) float64 {
		if n == 0 {
			return 0
		}
		return float64(n)*memberRow + sectionGap
	}
	height := titleRow + section(len(m.Attributes)) + section(len(m.Methods)) + classPadding*4
	return width, height
}

// FitToText grows class and interface shapes so their text fits. Shapes never
// shrink and other kinds are left alone. It reports whether the box changed.
func FitToText(s *Shape) bool {
	var w, h float64
	switch k := s.Kind.(type) {
	case Class:
		w, h = dimensionsToFit(k.Name, k.Members, 20)
	case Interface:
		// extra row for the «interface» stereotype
		w, h = dimensionsToFit(k.Name, k.Members, 30)
	case Actor, UseCase, SystemBoundary:
		return false
	default:
		return false
	}
	nw := go2.Max(s.Box.Width, w)
	nh := go2.Max(s.Box.Height, h)
	if nw == s.Box.Width && nh == s.Box.Height {
		return false
	}
	s.Box.Width, s.Box.Height = nw, nh
	return true
}
