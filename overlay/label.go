// Package overlay - Draws detection boxes and their labels onto a canvas.
package overlay

import (
	"image"
	"image/color"

	"github.com/nvr-ai/intelliroad/images"
	"gocv.io/x/gocv"
)

// LabelBox is the geometry of one placed label.
type LabelBox struct {
	// Rect is the filled background rectangle.
	Rect image.Rectangle
	// TextOrigin is the bottom-left corner of the text, as OpenCV expects it.
	TextOrigin image.Point
	// Baseline is the distance from the text origin to the lowest descender.
	Baseline int
}

// LabelStyle describes how a label is measured and drawn.
type LabelStyle struct {
	Font       gocv.HersheyFont
	Scale      float64
	Thickness  int
	Padding    int
	Foreground color.RGBA
	Background color.RGBA
}

// PlaceLabel positions a label box so that its bottom-left corner sits at anchor,
// moved just enough to stay inside the canvas.
//
// The box is text width + 2*padding wide and text height + 2*padding + baseline high.
// x is clamped to [0, canvas width - box width] and the bottom edge to
// [box height, canvas height]. A box larger than the canvas keeps its left and top
// edges at 0 and overflows to the right and bottom.
//
// Arguments:
//   - anchor: The requested bottom-left corner, usually the top-left of a detection box.
//   - text: The measured text size.
//   - baseline: The measured baseline.
//   - padding: Space between text and box edge on every side.
//   - canvas: The canvas size.
//
// Returns:
//   - LabelBox: The background rectangle and the text origin.
func PlaceLabel(anchor, text image.Point, baseline, padding int, canvas image.Point) LabelBox {
	bw := text.X + 2*padding
	bh := text.Y + 2*padding + baseline

	x := max(0, min(anchor.X, canvas.X-bw))
	y := max(bh, min(anchor.Y, canvas.Y))

	return LabelBox{
		Rect:       image.Rect(x, y-bh, x+bw, y),
		TextOrigin: image.Pt(x+padding, y-padding-baseline),
		Baseline:   baseline,
	}
}

// DrawLabel measures text, places it with PlaceLabel and draws the filled
// background followed by the text.
func DrawLabel(c *images.Canvas, text string, anchor image.Point, s LabelStyle) LabelBox {
	size, baseline := gocv.GetTextSizeWithBaseline(text, s.Font, s.Scale, s.Thickness)
	box := PlaceLabel(anchor, size, baseline, s.Padding, c.Size())

	gocv.Rectangle(&c.Mat, box.Rect, c.Color(s.Background), -1)
	gocv.PutText(&c.Mat, text, box.TextOrigin, s.Font, s.Scale, c.Color(s.Foreground), s.Thickness)
	return box
}
