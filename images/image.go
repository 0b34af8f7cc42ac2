// Package images - Pixel buffers, decoding and encoding for detection input and output.
package images

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// ChannelOrder is the byte order of the three color channels inside a Canvas.
type ChannelOrder int

const (
	// OrderBGR is the native OpenCV layout.
	OrderBGR ChannelOrder = iota
	// OrderRGB is the layout produced by the general-purpose Go decoders.
	OrderRGB
)

// String returns the short name of the channel order.
func (o ChannelOrder) String() string {
	if o == OrderRGB {
		return "rgb"
	}
	return "bgr"
}

// Canvas is an 8-bit, 3-channel pixel buffer together with the channel order of its bytes.
//
// The renderer draws into a Canvas in place, so the caller owns it and must Close it.
type Canvas struct {
	// Mat holds the pixels as CV_8UC3.
	Mat gocv.Mat
	// Order records how the channels of Mat are laid out.
	Order ChannelOrder
}

// NewCanvas wraps an existing Mat.
//
// Arguments:
//   - mat: A CV_8UC3 matrix. Ownership moves to the Canvas.
//   - order: The channel order of mat.
//
// Returns:
//   - *Canvas: The wrapped buffer.
func NewCanvas(mat gocv.Mat, order ChannelOrder) *Canvas {
	return &Canvas{Mat: mat, Order: order}
}

// NewBlankCanvas allocates a canvas filled with a single color.
func NewBlankCanvas(width, height int, fill color.RGBA, order ChannelOrder) *Canvas {
	s := gocv.NewScalar(float64(fill.B), float64(fill.G), float64(fill.R), 0)
	if order == OrderRGB {
		s = gocv.NewScalar(float64(fill.R), float64(fill.G), float64(fill.B), 0)
	}
	return NewCanvas(gocv.NewMatWithSizeFromScalar(s, height, width, gocv.MatTypeCV8UC3), order)
}

// FromImage copies a Go image into a new Canvas laid out in the requested order.
//
// Alpha is dropped without premultiplication, so transparent pixels keep their color.
//
// Arguments:
//   - img: Any decoded image.
//   - order: The channel order of the new canvas.
//
// Returns:
//   - *Canvas: The new canvas.
//   - error: An error if the image is empty or the matrix cannot be created.
func FromImage(img image.Image, order ChannelOrder) (*Canvas, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image has no pixels: %dx%d", w, h)
	}

	data := make([]byte, w*h*3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if order == OrderRGB {
				data[i], data[i+1], data[i+2] = c.R, c.G, c.B
			} else {
				data[i], data[i+1], data[i+2] = c.B, c.G, c.R
			}
			i += 3
		}
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create mat from image: %w", err)
	}
	return NewCanvas(mat, order), nil
}

// ToImage copies the canvas into a Go image with true RGB colors.
func (c *Canvas) ToImage() (*image.NRGBA, error) {
	if c.Mat.Empty() {
		return nil, fmt.Errorf("canvas is empty")
	}
	if c.Mat.Channels() != 3 {
		return nil, fmt.Errorf("canvas has %d channels, want 3", c.Mat.Channels())
	}

	w, h := c.Width(), c.Height()
	src := c.Mat.ToBytes()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for p, q := 0, 0; p < len(src); p, q = p+3, q+4 {
		if c.Order == OrderRGB {
			img.Pix[q], img.Pix[q+1], img.Pix[q+2] = src[p], src[p+1], src[p+2]
		} else {
			img.Pix[q], img.Pix[q+1], img.Pix[q+2] = src[p+2], src[p+1], src[p]
		}
		img.Pix[q+3] = 0xff
	}
	return img, nil
}

// Color maps a true RGB color to the value the OpenCV drawing primitives need for this canvas.
//
// OpenCV always writes the color as (B, G, R), so on an RGB canvas red and blue are swapped
// before drawing to end up in the right place.
func (c *Canvas) Color(rgb color.RGBA) color.RGBA {
	if c.Order == OrderRGB {
		rgb.R, rgb.B = rgb.B, rgb.R
	}
	return rgb
}

// PixelAt returns the true RGB color at (x, y).
func (c *Canvas) PixelAt(x, y int) color.RGBA {
	v := c.Mat.GetVecbAt(y, x)
	if c.Order == OrderRGB {
		return color.RGBA{R: v[0], G: v[1], B: v[2], A: 0xff}
	}
	return color.RGBA{R: v[2], G: v[1], B: v[0], A: 0xff}
}

// Convert returns a copy of the canvas in the requested channel order.
func (c *Canvas) Convert(order ChannelOrder) (*Canvas, error) {
	if c.Order == order {
		return c.Clone(), nil
	}

	code := gocv.ColorBGRToRGB
	if c.Order == OrderRGB {
		code = gocv.ColorRGBToBGR
	}

	dst := gocv.NewMat()
	gocv.CvtColor(c.Mat, &dst, code)
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("failed to convert canvas from %s to %s", c.Order, order)
	}
	return NewCanvas(dst, order), nil
}

// Clone returns a deep copy.
func (c *Canvas) Clone() *Canvas {
	return NewCanvas(c.Mat.Clone(), c.Order)
}

// Width returns the number of columns.
func (c *Canvas) Width() int { return c.Mat.Cols() }

// Height returns the number of rows.
func (c *Canvas) Height() int { return c.Mat.Rows() }

// Size returns the canvas dimensions as (width, height).
func (c *Canvas) Size() image.Point {
	return image.Point{X: c.Mat.Cols(), Y: c.Mat.Rows()}
}

// Close releases the native buffer.
func (c *Canvas) Close() error {
	if c == nil {
		return nil
	}
	return c.Mat.Close()
}
