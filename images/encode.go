package images

import (
	"bytes"
	"fmt"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// JPEGQuality and WebPQuality are used by Encode.
const (
	JPEGQuality = 95
	WebPQuality = 90
)

// Encode serializes a canvas. PNG goes through OpenCV, JPEG through imaging and
// WebP through libwebp.
//
// Arguments:
//   - c: The canvas to encode; it is not modified.
//   - format: One of FormatPNG, FormatJPEG or FormatWebP.
//
// Returns:
//   - []byte: The encoded image.
//   - error: An error if the format is unsupported or encoding fails.
func Encode(c *Canvas, format ImageFormat) ([]byte, error) {
	switch format {
	case FormatPNG:
		bgr, err := c.Convert(OrderBGR)
		if err != nil {
			return nil, err
		}
		defer bgr.Close()

		buf, err := gocv.IMEncode(gocv.PNGFileExt, bgr.Mat)
		if err != nil {
			return nil, errors.Wrap(err, "png encode")
		}
		defer buf.Close()
		return bytes.Clone(buf.GetBytes()), nil

	case FormatJPEG, FormatWebP:
		img, err := c.ToImage()
		if err != nil {
			return nil, err
		}
		var out bytes.Buffer
		if format == FormatJPEG {
			err = imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality))
		} else {
			err = webp.Encode(&out, img, &webp.Options{Quality: WebPQuality})
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s encode", format)
		}
		return out.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteFile encodes the canvas in the format implied by the path extension.
func WriteFile(path string, c *Canvas) error {
	format, ok := FormatFromPath(path)
	if !ok || !format.CanEncode() {
		return fmt.Errorf("unsupported output extension: %s", path)
	}
	data, err := Encode(c, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
