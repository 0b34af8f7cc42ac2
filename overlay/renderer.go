package overlay

import (
	"image"

	"github.com/nvr-ai/intelliroad/images"
	"github.com/nvr-ai/intelliroad/inference"
	"gocv.io/x/gocv"
)

// Renderer draws detections according to a Policy.
type Renderer struct {
	policy Policy
}

// NewRenderer creates a renderer for p.
func NewRenderer(p Policy) *Renderer {
	return &Renderer{policy: p}
}

// Policy returns the styling table in use.
func (r *Renderer) Policy() Policy { return r.policy }

// Render draws every detection in the given order: the box outline first, then the
// label anchored at the box's top-left corner. The canvas is modified in place.
//
// Arguments:
//   - c: The canvas to draw on.
//   - detections: Detections in original image coordinates.
//
// Returns:
//   - []LabelBox: The placed labels, one per detection.
func (r *Renderer) Render(c *images.Canvas, detections []inference.Detection) []LabelBox {
	p := r.policy
	scale := p.FontScale.FontScale(c.Width(), c.Height())

	labels := make([]LabelBox, 0, len(detections))
	for _, d := range detections {
		box := d.Box.Canon()
		col := p.ColorFor(d.Label)

		gocv.Rectangle(&c.Mat, box, c.Color(col), p.BoxThickness)

		labels = append(labels, DrawLabel(c, p.LabelText(d), image.Pt(box.Min.X, box.Min.Y), LabelStyle{
			Font:       p.Font,
			Scale:      scale,
			Thickness:  p.Thickness.Thickness(box.Dx()),
			Padding:    p.Padding,
			Foreground: p.TextColor,
			Background: col,
		}))
	}
	return labels
}
