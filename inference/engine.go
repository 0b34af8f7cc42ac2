// Package inference - Detection types, the detector interface and YOLO output decoding.
package inference

import (
	"context"
	"errors"
	"image"

	"github.com/nvr-ai/intelliroad/images"
)

// ErrNotInitialized is returned by a detector used after Close or before loading a model.
var ErrNotInitialized = errors.New("detector not initialized")

// Detection is a single detected object in original image coordinates.
type Detection struct {
	// Box is canonical: Min is the top-left corner, Max the bottom-right.
	Box image.Rectangle `json:"box"`
	// Class is the index into the detector's class set.
	Class int `json:"class"`
	// Label is the class name.
	Label string `json:"label"`
	// Score is the confidence in [0, 1].
	Score float32 `json:"score"`
}

// Detector runs a pretrained object-detection model on a canvas.
//
// One process-wide instance is created at startup and shared. Implementations
// serialize calls internally, so Detect may be called from several goroutines.
type Detector interface {
	// Detect runs a single batch-1 inference and returns detections in model order.
	Detect(ctx context.Context, canvas *images.Canvas) ([]Detection, error)
	// Classes returns the class names indexed by Detection.Class.
	Classes() []string
	// Engine names the backend, for logs and metrics.
	Engine() EngineType
	// Close releases the model.
	Close() error
}
