package inference

import (
	"fmt"
	"image"
	"sort"

	"github.com/chewxy/math32"
)

// Default post-processing thresholds of the YOLOv8 exports.
const (
	DefaultConfidenceThreshold float32 = 0.25
	DefaultIoUThreshold        float32 = 0.7
	DefaultInputSize                   = 640
)

// OutputLayout describes a YOLOv8 detection head output of shape [1, 4+NumClasses, NumAnchors].
type OutputLayout struct {
	NumClasses int
	NumAnchors int
	// InputSize is the (width, height) the model was fed with.
	InputSize image.Point
}

// AnchorsFor returns the number of anchors a YOLOv8 head produces for a square input
// (strides 8, 16 and 32). 640 gives 8400.
func AnchorsFor(inputSize int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		g := inputSize / stride
		n += g * g
	}
	return n
}

// DecodeYOLOv8 turns the raw output tensor into boxes in original image coordinates.
//
// The input is assumed to be letterboxed as NewLetterbox describes, so the padding is
// removed before the boxes are scaled back.
//
// The tensor is laid out channel-major: output[anchors*row + idx] where rows 0..3 are
// (cx, cy, w, h) in input pixels and the remaining rows are per-class scores.
//
// Arguments:
//   - output: The flattened output tensor.
//   - layout: The tensor layout.
//   - original: The (width, height) of the image before resizing.
//   - confidence: Boxes whose best class score is below this are dropped.
//
// Returns:
//   - []BoundingBox: Candidate boxes, clamped to the image, in anchor order.
//   - error: An error if the tensor is smaller than the layout requires.
func DecodeYOLOv8(output []float32, layout OutputLayout, original image.Point, confidence float32) ([]BoundingBox, error) {
	na, nc := layout.NumAnchors, layout.NumClasses
	if na <= 0 || nc <= 0 {
		return nil, fmt.Errorf("invalid output layout: %d anchors, %d classes", na, nc)
	}
	if want := na * (4 + nc); len(output) < want {
		return nil, fmt.Errorf("output tensor holds %d floats, layout needs %d", len(output), want)
	}

	lb := NewLetterbox(original, layout.InputSize)
	scale := float32(lb.Scale)
	padX, padY := float32(lb.Pad.X), float32(lb.Pad.Y)
	maxX, maxY := float32(original.X), float32(original.Y)

	boxes := make([]BoundingBox, 0, 64)
	for idx := 0; idx < na; idx++ {
		classID := 0
		probability := float32(-1e9)
		for col := 0; col < nc; col++ {
			if p := output[na*(col+4)+idx]; p > probability {
				probability = p
				classID = col
			}
		}
		if probability < confidence {
			continue
		}

		xc, yc := output[idx], output[na+idx]
		w, h := output[2*na+idx], output[3*na+idx]

		boxes = append(boxes, BoundingBox{
			Class:      classID,
			Confidence: probability,
			X1:         clamp((xc-w/2-padX)/scale, maxX),
			Y1:         clamp((yc-h/2-padY)/scale, maxY),
			X2:         clamp((xc+w/2-padX)/scale, maxX),
			Y2:         clamp((yc+h/2-padY)/scale, maxY),
		})
	}
	return boxes, nil
}

func clamp(v, hi float32) float32 {
	return math32.Min(math32.Max(v, 0), hi)
}

// NonMaxSuppression performs greedy NMS.
//
// Boxes are ordered by descending confidence; each kept box suppresses every later
// box whose IoU with it exceeds iouThreshold. With classAware set, only boxes of the
// same class suppress each other.
//
// Arguments:
//   - boxes: Candidate boxes. The slice is reordered in place.
//   - iouThreshold: Overlap above which a box is suppressed.
//   - classAware: Restrict suppression to boxes of the same class.
//
// Returns:
//   - []BoundingBox: The kept boxes, highest confidence first.
func NonMaxSuppression(boxes []BoundingBox, iouThreshold float32, classAware bool) []BoundingBox {
	if len(boxes) == 0 {
		return nil
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Confidence > boxes[j].Confidence
	})

	kept := make([]BoundingBox, 0, len(boxes))
	for i := range boxes {
		suppressed := false
		for k := range kept {
			if classAware && kept[k].Class != boxes[i].Class {
				continue
			}
			if boxes[i].IOU(&kept[k]) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, boxes[i])
		}
	}
	return kept
}

// Postprocess decodes, suppresses and names the detections of one YOLOv8 output.
func Postprocess(output []float32, layout OutputLayout, original image.Point, classes []string, confidence, iou float32) ([]Detection, error) {
	boxes, err := DecodeYOLOv8(output, layout, original, confidence)
	if err != nil {
		return nil, err
	}

	boxes = NonMaxSuppression(boxes, iou, true)
	detections := make([]Detection, 0, len(boxes))
	for i := range boxes {
		detections = append(detections, boxes[i].Detection(classes))
	}
	return detections, nil
}
