package inference

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type anchor struct {
	cx, cy, w, h float32
	scores       []float32
}

// yoloTensor builds a [1, 4+nc, anchors] output with the given anchors filled in.
func yoloTensor(nc, anchors int, filled map[int]anchor) []float32 {
	out := make([]float32, anchors*(4+nc))
	for idx, a := range filled {
		out[idx] = a.cx
		out[anchors+idx] = a.cy
		out[2*anchors+idx] = a.w
		out[3*anchors+idx] = a.h
		for c, s := range a.scores {
			out[anchors*(c+4)+idx] = s
		}
	}
	return out
}

func TestAnchorsFor(t *testing.T) {
	assert.Equal(t, 8400, AnchorsFor(640))
	assert.Equal(t, 3549, AnchorsFor(416))
}

func TestDecodeYOLOv8_UndoesLetterbox(t *testing.T) {
	layout := OutputLayout{NumClasses: 2, NumAnchors: 10, InputSize: image.Pt(640, 640)}
	out := yoloTensor(2, 10, map[int]anchor{
		3: {cx: 320, cy: 320, w: 64, h: 128, scores: []float32{0.1, 0.9}},
		7: {cx: 10, cy: 10, w: 10, h: 10, scores: []float32{0.2, 0.1}},
	})

	boxes, err := DecodeYOLOv8(out, layout, image.Pt(1280, 960), 0.25)
	require.NoError(t, err)
	require.Len(t, boxes, 1)

	b := boxes[0]
	assert.Equal(t, 1, b.Class)
	assert.InDelta(t, 0.9, b.Confidence, 1e-6)
	// 1280x960 is scaled by 0.5 to 640x480 and padded by 80 rows on top.
	assert.InDelta(t, 576, b.X1, 1e-3) // (320-32)/0.5
	assert.InDelta(t, 352, b.Y1, 1e-3) // (320-64-80)/0.5
	assert.InDelta(t, 704, b.X2, 1e-3)
	assert.InDelta(t, 608, b.Y2, 1e-3)
}

func TestDecodeYOLOv8_ClampsToImage(t *testing.T) {
	layout := OutputLayout{NumClasses: 1, NumAnchors: 1, InputSize: image.Pt(640, 640)}
	out := yoloTensor(1, 1, map[int]anchor{
		0: {cx: 5, cy: 635, w: 40, h: 40, scores: []float32{0.8}},
	})

	boxes, err := DecodeYOLOv8(out, layout, image.Pt(640, 640), 0.25)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, image.Rect(0, 615, 25, 640), boxes[0].ToRect())
}

func TestDecodeYOLOv8_RejectsShortTensor(t *testing.T) {
	layout := OutputLayout{NumClasses: 2, NumAnchors: 8400, InputSize: image.Pt(640, 640)}
	_, err := DecodeYOLOv8(make([]float32, 100), layout, image.Pt(640, 640), 0.25)
	assert.Error(t, err)

	_, err = DecodeYOLOv8(nil, OutputLayout{}, image.Pt(640, 640), 0.25)
	assert.Error(t, err)
}

func TestNonMaxSuppression(t *testing.T) {
	boxes := []BoundingBox{
		{Class: 0, Confidence: 0.6, X1: 0, Y1: 0, X2: 100, Y2: 100},
		{Class: 0, Confidence: 0.9, X1: 5, Y1: 5, X2: 105, Y2: 105},
		{Class: 1, Confidence: 0.7, X1: 0, Y1: 0, X2: 100, Y2: 100},
		{Class: 0, Confidence: 0.5, X1: 300, Y1: 300, X2: 400, Y2: 400},
	}

	t.Run("class aware", func(t *testing.T) {
		kept := NonMaxSuppression(append([]BoundingBox(nil), boxes...), 0.7, true)
		require.Len(t, kept, 3)
		assert.InDelta(t, 0.9, kept[0].Confidence, 1e-6)
		assert.Equal(t, 1, kept[1].Class)
		assert.InDelta(t, 0.5, kept[2].Confidence, 1e-6)
	})

	t.Run("class agnostic", func(t *testing.T) {
		kept := NonMaxSuppression(append([]BoundingBox(nil), boxes...), 0.7, false)
		require.Len(t, kept, 2)
		assert.InDelta(t, 0.9, kept[0].Confidence, 1e-6)
		assert.InDelta(t, 0.5, kept[1].Confidence, 1e-6)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, NonMaxSuppression(nil, 0.7, true))
	})
}

func TestPostprocess_NamesDetections(t *testing.T) {
	layout := OutputLayout{NumClasses: 2, NumAnchors: 4, InputSize: image.Pt(640, 640)}
	out := yoloTensor(2, 4, map[int]anchor{
		0: {cx: 100, cy: 100, w: 50, h: 50, scores: []float32{0.3, 0}},
		1: {cx: 400, cy: 400, w: 80, h: 40, scores: []float32{0, 0.95}},
	})

	dets, err := Postprocess(out, layout, image.Pt(640, 640), []string{"cracks", "pothole"}, 0.25, 0.7)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, "pothole", dets[0].Label)
	assert.Equal(t, image.Rect(360, 380, 440, 420), dets[0].Box)
	assert.Equal(t, "cracks", dets[1].Label)
	assert.Equal(t, 0, dets[1].Class)
}

func TestClassSets(t *testing.T) {
	road, err := ClassSetRoadDefect.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"cracks", "pothole"}, road)

	fire, err := ClassSetFireSmoke.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"Fire", "Smoke"}, fire)

	_, err = ClassSet("coco").Classes()
	assert.Error(t, err)

	assert.Equal(t, "unknown_5", ClassName(road, 5))
}

func TestParseEngine(t *testing.T) {
	e, err := ParseEngine("opencv")
	require.NoError(t, err)
	assert.Equal(t, EngineOpenCV, e)

	_, err = ParseEngine("tensorrt")
	assert.Error(t, err)
}

func TestLoadClassFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.txt")
	require.NoError(t, os.WriteFile(path, []byte("# road\ncracks\n\n pothole \n"), 0o600))

	names, err := LoadClassFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cracks", "pothole"}, names)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n# nothing\n"), 0o600))
	_, err = LoadClassFile(empty)
	assert.Error(t, err)
}
