package images

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// DisplaySize fits (width, height) into (maxWidth, maxHeight) keeping the aspect ratio.
//
// Landscape images are limited by width, everything else by height. Images that
// already fit keep their size.
//
// Arguments:
//   - width, height: The source dimensions.
//   - maxWidth, maxHeight: The bounding box to fit into.
//
// Returns:
//   - int, int: The display width and height, never below 1.
//
// @example
// w, h := DisplaySize(1200, 800, 600, 600) // 600, 400
func DisplaySize(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}

	aspect := float64(width) / float64(height)
	var nw, nh int
	if aspect > 1 {
		nw = min(width, maxWidth)
		nh = int(float64(nw) / aspect)
	} else {
		nh = min(height, maxHeight)
		nw = int(float64(nh) * aspect)
	}
	// A very tall image fitted by height can still be too wide for narrow boxes.
	if nw > maxWidth {
		nw = maxWidth
		nh = int(float64(nw) / aspect)
	}
	return max(nw, 1), max(nh, 1)
}

// Thumbnail returns a resized copy of the canvas that fits into (maxWidth, maxHeight).
func Thumbnail(c *Canvas, maxWidth, maxHeight int) (*Canvas, error) {
	nw, nh := DisplaySize(c.Width(), c.Height(), maxWidth, maxHeight)
	if nw == 0 {
		return nil, fmt.Errorf("cannot fit empty canvas")
	}
	if nw == c.Width() && nh == c.Height() {
		return c.Clone(), nil
	}

	img, err := c.ToImage()
	if err != nil {
		return nil, err
	}
	return FromImage(resize.Resize(uint(nw), uint(nh), img, resize.Lanczos3), c.Order)
}

// ResizeToImage resizes the canvas to exactly (width, height) with bilinear filtering
// and returns it as an RGB image. Callers keep the aspect ratio themselves.
func ResizeToImage(c *Canvas, width, height int) (image.Image, error) {
	img, err := c.ToImage()
	if err != nil {
		return nil, err
	}
	if c.Width() == width && c.Height() == height {
		return img, nil
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear), nil
}
