package images

import (
	"bytes"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	// Registers the WebP decoder with image.Decode so imaging can read it.
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyInput is returned when there are no bytes to decode.
	ErrEmptyInput = errors.New("empty image data")
	// ErrUndecodable is returned when every decoder of a chain rejected the input.
	ErrUndecodable = errors.New("image cannot be decoded")
)

// Decoder turns encoded bytes into a Canvas.
type Decoder interface {
	// Name identifies the decoder in logs and metrics.
	Name() string
	// Decode returns a 3-channel canvas or an error.
	Decode(data []byte) (*Canvas, error)
}

// ImagingDecoder is the general-purpose Go decoder (JPEG, PNG, GIF, BMP, TIFF, WebP, HEIC).
type ImagingDecoder struct {
	// Order is the channel order of the produced canvas.
	Order ChannelOrder
}

// Name implements Decoder.
func (d ImagingDecoder) Name() string { return "imaging" }

// Decode implements Decoder.
func (d ImagingDecoder) Decode(data []byte) (*Canvas, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "imaging decode")
	}
	return FromImage(img, d.Order)
}

// GoCVDecoder decodes with OpenCV. The canvas is always BGR.
type GoCVDecoder struct{}

// Name implements Decoder.
func (GoCVDecoder) Name() string { return "opencv" }

// Decode implements Decoder.
func (GoCVDecoder) Decode(data []byte) (*Canvas, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, errors.Wrap(err, "opencv decode")
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("opencv decode: no image data")
	}
	return NewCanvas(mat, OrderBGR), nil
}

// HEIFDecoder decodes HEIC/HEIF containers.
type HEIFDecoder struct {
	// Order is the channel order of the produced canvas.
	Order ChannelOrder
}

// Name implements Decoder.
func (d HEIFDecoder) Name() string { return "heif" }

// Decode implements Decoder.
func (d HEIFDecoder) Decode(data []byte) (*Canvas, error) {
	img, err := goheif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "heif decode")
	}
	return FromImage(img, d.Order)
}

// Chain tries each decoder in order and returns the first success.
type Chain []Decoder

// Decode runs the chain.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - *Canvas: The decoded image from the first decoder that accepted it.
//   - error: ErrEmptyInput for zero-length data, or ErrUndecodable wrapping the
//     last decoder failure.
func (c Chain) Decode(data []byte) (*Canvas, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	var last error
	for _, d := range c {
		canvas, err := d.Decode(data)
		if err == nil {
			return canvas, nil
		}
		log.Debug().Err(err).Str("decoder", d.Name()).Msg("decoder rejected image")
		last = err
	}
	if last == nil {
		last = errors.New("no decoders configured")
	}
	return nil, fmt.Errorf("%w: %v", ErrUndecodable, last)
}

// ServerChain is used for uploaded images: the general-purpose decoder first,
// then OpenCV.
func ServerChain() Chain {
	return Chain{ImagingDecoder{Order: OrderRGB}, GoCVDecoder{}}
}

// DesktopChain is used for files picked in the desktop viewer. HEIC/HEIF files
// only go through the HEIF decoder; everything else tries OpenCV first and then
// the general-purpose decoder, converted to BGR.
func DesktopChain(path string) Chain {
	if IsHEIF(path) {
		return Chain{HEIFDecoder{Order: OrderBGR}}
	}
	return Chain{GoCVDecoder{}, ImagingDecoder{Order: OrderBGR}}
}

// DecodeFile reads a file from disk and decodes it with the desktop chain.
func DecodeFile(path string) (*Canvas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return DesktopChain(path).Decode(data)
}
