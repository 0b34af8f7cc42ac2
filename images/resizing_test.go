package images

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplaySize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape larger than box", 1200, 800, 600, 400},
		{"portrait larger than box", 800, 1200, 400, 600},
		{"square larger than box", 1000, 1000, 600, 600},
		{"already fits", 320, 240, 320, 240},
		{"wide strip", 3000, 10, 600, 2},
		{"degenerate strip keeps a pixel", 6000, 1, 600, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := DisplaySize(tt.w, tt.h, 600, 600)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
			assert.LessOrEqual(t, w, 600)
			assert.LessOrEqual(t, h, 600)
		})
	}
}

func TestDisplaySize_NarrowBox(t *testing.T) {
	w, h := DisplaySize(500, 1000, 100, 600)
	assert.Equal(t, 100, w)
	assert.Equal(t, 200, h)
}

func TestThumbnail(t *testing.T) {
	c := NewBlankCanvas(1200, 800, color.RGBA{R: 200, G: 10, B: 10, A: 255}, OrderBGR)
	defer c.Close()

	thumb, err := Thumbnail(c, 600, 600)
	require.NoError(t, err)
	defer thumb.Close()

	assert.Equal(t, 600, thumb.Width())
	assert.Equal(t, 400, thumb.Height())
	assert.Equal(t, OrderBGR, thumb.Order)

	px := thumb.PixelAt(300, 200)
	assert.InDelta(t, 200, int(px.R), 2)
	assert.InDelta(t, 10, int(px.B), 2)
}
