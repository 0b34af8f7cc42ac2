package inference

import (
	"fmt"
	"image"

	"github.com/nvr-ai/intelliroad/images"
)

// BoundingBox is a decoded candidate box before it becomes a Detection.
type BoundingBox struct {
	Class          int
	Confidence     float32
	X1, Y1, X2, Y2 float32
}

func (b *BoundingBox) String() string {
	return fmt.Sprintf("Object %d (confidence %f): (%f, %f), (%f, %f)",
		b.Class, b.Confidence, b.X1, b.Y1, b.X2, b.Y2)
}

// ToRect truncates to integer pixels. The box has already been scaled to the
// original image, so only fractional pixels around the edges are lost.
func (b *BoundingBox) ToRect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)).Canon()
}

// IOU estimates the overlap of two boxes on their integer rectangles.
func (b *BoundingBox) IOU(other *BoundingBox) float32 {
	return images.CalculateIoU(images.RectFrom(b.ToRect()), images.RectFrom(other.ToRect()))
}

// Detection converts the box using the class names.
func (b *BoundingBox) Detection(classes []string) Detection {
	return Detection{
		Box:   b.ToRect(),
		Class: b.Class,
		Label: ClassName(classes, b.Class),
		Score: b.Confidence,
	}
}
