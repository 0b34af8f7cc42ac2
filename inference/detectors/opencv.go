package detectors

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/nvr-ai/intelliroad/images"
	"github.com/nvr-ai/intelliroad/inference"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// OpenCVDetector runs a YOLOv8 export with gocv.ReadNet.
type OpenCVDetector struct {
	mu          sync.Mutex
	net         gocv.Net
	config      Config
	initialized bool
}

// NewOpenCVDetector loads the model with the OpenCV DNN module on the CPU.
func NewOpenCVDetector(config Config) (*OpenCVDetector, error) {
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s: %w", config.ModelPath, err)
	}

	net := gocv.ReadNet(config.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load ONNX model: %s", config.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	log.Info().
		Str("model", config.ModelPath).
		Int("input_size", config.InputSize).
		Strs("classes", config.Classes).
		Msg("✅ OpenCV detector initialized")

	return &OpenCVDetector{net: net, config: config, initialized: true}, nil
}

// Detect runs inference on the canvas.
func (d *OpenCVDetector) Detect(ctx context.Context, canvas *images.Canvas) ([]inference.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, inference.ErrNotInitialized
	}

	size := image.Pt(d.config.InputSize, d.config.InputSize)
	input := letterbox(canvas.Mat, inference.NewLetterbox(canvas.Size(), size), size)
	defer input.Close()

	// The network wants RGB, so only BGR canvases need their channels swapped.
	blob := gocv.BlobFromImage(input, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), canvas.Order == images.OrderBGR, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	if nc := dims[1] - 4; nc != len(d.config.Classes) {
		return nil, fmt.Errorf("model has %d classes but %d class names are configured", nc, len(d.config.Classes))
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	layout := inference.OutputLayout{
		NumClasses: dims[1] - 4,
		NumAnchors: dims[2],
		InputSize:  size,
	}
	return inference.Postprocess(data, layout, canvas.Size(), d.config.Classes,
		d.config.ConfidenceThreshold, d.config.NMSThreshold)
}

// letterbox resizes src into the letterbox content area and pads the rest with grey.
func letterbox(src gocv.Mat, lb inference.Letterbox, size image.Point) gocv.Mat {
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, lb.Size, 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMat()
	grey := color.RGBA{R: inference.PadValue, G: inference.PadValue, B: inference.PadValue}
	gocv.CopyMakeBorder(resized, &padded,
		lb.Pad.Y, size.Y-lb.Size.Y-lb.Pad.Y,
		lb.Pad.X, size.X-lb.Size.X-lb.Pad.X,
		gocv.BorderConstant, grey)
	return padded
}

// Classes implements inference.Detector.
func (d *OpenCVDetector) Classes() []string { return d.config.Classes }

// Engine implements inference.Detector.
func (d *OpenCVDetector) Engine() inference.EngineType { return inference.EngineOpenCV }

// Close releases the network.
func (d *OpenCVDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil
	}
	d.initialized = false
	log.Info().Msg("🔒 OpenCV detector closed")
	return d.net.Close()
}
