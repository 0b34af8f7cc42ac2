package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRed = color.RGBA{R: 220, G: 20, B: 30, A: 255}

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func TestCanvas_ChannelOrderRoundTrip(t *testing.T) {
	src := solidImage(8, 6, testRed)

	for _, order := range []ChannelOrder{OrderBGR, OrderRGB} {
		t.Run(order.String(), func(t *testing.T) {
			c, err := FromImage(src, order)
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, 8, c.Width())
			assert.Equal(t, 6, c.Height())
			assert.Equal(t, 3, c.Mat.Channels())
			assert.Equal(t, testRed, c.PixelAt(3, 2))

			out, err := c.ToImage()
			require.NoError(t, err)
			assert.Equal(t, color.NRGBA{R: 220, G: 20, B: 30, A: 255}, out.NRGBAAt(0, 0))
		})
	}
}

func TestCanvas_Convert(t *testing.T) {
	c, err := FromImage(solidImage(4, 4, testRed), OrderRGB)
	require.NoError(t, err)
	defer c.Close()

	bgr, err := c.Convert(OrderBGR)
	require.NoError(t, err)
	defer bgr.Close()

	assert.Equal(t, OrderBGR, bgr.Order)
	assert.Equal(t, testRed, bgr.PixelAt(1, 1))
	assert.Equal(t, []uint8{30, 20, 220}, bgr.Mat.GetVecbAt(1, 1))
}

func TestCanvas_Color(t *testing.T) {
	bgr := &Canvas{Order: OrderBGR}
	rgb := &Canvas{Order: OrderRGB}

	assert.Equal(t, testRed, bgr.Color(testRed))
	assert.Equal(t, color.RGBA{R: 30, G: 20, B: 220, A: 255}, rgb.Color(testRed))
}

func TestNewBlankCanvas(t *testing.T) {
	for _, order := range []ChannelOrder{OrderBGR, OrderRGB} {
		c := NewBlankCanvas(5, 3, testRed, order)
		assert.Equal(t, testRed, c.PixelAt(4, 2))
		c.Close()
	}
}

func TestChains_DecodeValidImages(t *testing.T) {
	src := solidImage(16, 12, testRed)
	inputs := map[string][]byte{
		"png":  encodePNG(t, src),
		"jpeg": encodeJPEG(t, src),
	}
	chains := map[string]Chain{
		"server":  ServerChain(),
		"desktop": DesktopChain("upload.png"),
	}

	for chainName, chain := range chains {
		for format, data := range inputs {
			t.Run(chainName+"/"+format, func(t *testing.T) {
				c, err := chain.Decode(data)
				require.NoError(t, err)
				defer c.Close()

				assert.Equal(t, 3, c.Mat.Channels())
				assert.Equal(t, 16, c.Width())
				assert.Equal(t, 12, c.Height())

				px := c.PixelAt(8, 6)
				assert.InDelta(t, 220, int(px.R), 6)
				assert.InDelta(t, 30, int(px.B), 6)
			})
		}
	}
}

func TestChains_ServerOrderIsRGB(t *testing.T) {
	c, err := ServerChain().Decode(encodePNG(t, solidImage(2, 2, testRed)))
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, OrderRGB, c.Order)
}

func TestChains_DesktopOrderIsBGR(t *testing.T) {
	c, err := DesktopChain("a.png").Decode(encodePNG(t, solidImage(2, 2, testRed)))
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, OrderBGR, c.Order)
}

func TestChains_EmptyInput(t *testing.T) {
	for _, chain := range []Chain{ServerChain(), DesktopChain("x.jpg"), DesktopChain("x.HEIC")} {
		_, err := chain.Decode(nil)
		assert.ErrorIs(t, err, ErrEmptyInput)

		_, err = chain.Decode([]byte{})
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
}

func TestChains_Undecodable(t *testing.T) {
	garbage := []byte("definitely not an image")

	for _, chain := range []Chain{ServerChain(), DesktopChain("x.jpg"), DesktopChain("x.heic")} {
		_, err := chain.Decode(garbage)
		assert.ErrorIs(t, err, ErrUndecodable)
	}
}

func TestDesktopChain_HEIFHasNoFallback(t *testing.T) {
	chain := DesktopChain("IMG_0001.HEIC")
	require.Len(t, chain, 1)
	assert.Equal(t, "heif", chain[0].Name())
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "road.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, solidImage(10, 10, testRed)), 0o600))

	c, err := DecodeFile(path)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, testRed, c.PixelAt(0, 0))

	_, err = DecodeFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	c, err := FromImage(solidImage(12, 8, testRed), OrderRGB)
	require.NoError(t, err)
	defer c.Close()

	for _, format := range []ImageFormat{FormatPNG, FormatJPEG, FormatWebP} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Encode(c, format)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			back, err := ServerChain().Decode(data)
			require.NoError(t, err)
			defer back.Close()

			assert.Equal(t, 12, back.Width())
			assert.Equal(t, 8, back.Height())
			assert.InDelta(t, 220, int(back.PixelAt(6, 4).R), 12)
		})
	}

	_, err = Encode(c, FormatHEIC)
	assert.Error(t, err)
}

func TestEncode_PNGKeepsExactColors(t *testing.T) {
	c, err := FromImage(solidImage(3, 3, testRed), OrderRGB)
	require.NoError(t, err)
	defer c.Close()

	data, err := Encode(c, FormatPNG)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, []uint32{220, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestFormatFromPath(t *testing.T) {
	f, ok := FormatFromPath("/tmp/A.JPG")
	assert.True(t, ok)
	assert.Equal(t, FormatJPEG, f)

	assert.True(t, IsHEIF("photo.heif"))
	assert.False(t, IsHEIF("photo.png"))

	_, ok = FormatFromPath("notes.txt")
	assert.False(t, ok)

	assert.True(t, FormatWebP.CanEncode())
	assert.False(t, FormatBMP.CanEncode())
}
