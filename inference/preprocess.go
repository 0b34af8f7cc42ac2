package inference

import (
	"fmt"
	"image"
	"math"

	"github.com/nvr-ai/intelliroad/images"
)

// PadValue is the grey used around a letterboxed image, as in the YOLOv8 exports.
const PadValue = 114

// Letterbox describes how an image is fitted into the model input: scaled by Scale
// keeping its aspect ratio to Size, then centered with Pad pixels on the left and top.
type Letterbox struct {
	Scale float64
	Size  image.Point
	Pad   image.Point
}

// NewLetterbox computes the letterbox of an image of size original inside input.
//
// Arguments:
//   - original: The (width, height) of the image.
//   - input: The (width, height) of the model input.
//
// Returns:
//   - Letterbox: The scale, resized content size and left/top padding.
//
// @example
// lb := NewLetterbox(image.Pt(1280, 960), image.Pt(640, 640)) // Scale 0.5, Size 640x480, Pad (0, 80)
func NewLetterbox(original, input image.Point) Letterbox {
	if original.X <= 0 || original.Y <= 0 {
		return Letterbox{Scale: 1, Size: input}
	}
	r := math.Min(float64(input.X)/float64(original.X), float64(input.Y)/float64(original.Y))
	size := image.Pt(
		min(max(int(math.Round(float64(original.X)*r)), 1), input.X),
		min(max(int(math.Round(float64(original.Y)*r)), 1), input.Y),
	)
	return Letterbox{
		Scale: r,
		Size:  size,
		Pad:   image.Pt((input.X-size.X)/2, (input.Y-size.Y)/2),
	}
}

// Content returns the area of the model input covered by the image.
func (l Letterbox) Content() image.Rectangle {
	return image.Rectangle{Min: l.Pad, Max: l.Pad.Add(l.Size)}
}

// PrepareInput fills a CHW float32 tensor with the canvas letterboxed into size x size.
//
// The planes are R, G, B scaled to [0, 1], whatever the channel order of the canvas.
// The border around the resized image is PadValue grey.
//
// Arguments:
//   - c: The image to prepare.
//   - dst: The destination tensor data, at least 3*size*size floats.
//   - size: The square model input size.
//
// Returns:
//   - error: An error if the input preparation fails.
func PrepareInput(c *images.Canvas, dst []float32, size int) error {
	channelSize := size * size
	if len(dst) < channelSize*3 {
		return fmt.Errorf("destination tensor only holds %d floats, needs "+
			"%d (make sure it's the right shape!)", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	lb := NewLetterbox(c.Size(), image.Pt(size, size))
	img, err := images.ResizeToImage(c, lb.Size.X, lb.Size.Y)
	if err != nil {
		return fmt.Errorf("failed to resize input: %w", err)
	}

	pad := float32(PadValue) / 255.0
	for i := 0; i < channelSize*3; i++ {
		dst[i] = pad
	}

	b := img.Bounds()
	for y := 0; y < lb.Size.Y; y++ {
		row := (y + lb.Pad.Y) * size
		for x := 0; x < lb.Size.X; x++ {
			i := row + x + lb.Pad.X
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(bl>>8) / 255.0
		}
	}
	return nil
}
