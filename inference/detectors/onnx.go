package detectors

import (
	"context"
	"fmt"
	"sync"

	"github.com/nvr-ai/intelliroad/images"
	"github.com/nvr-ai/intelliroad/inference"
	"github.com/rs/zerolog/log"
)

// ONNXDetector runs a YOLOv8 export with onnxruntime.
//
// The session binds fixed input and output tensors, so calls are serialized.
type ONNXDetector struct {
	mu      sync.Mutex
	session *inference.Session
	config  Config
}

// NewONNXDetector loads the model and binds its tensors.
//
// Arguments:
//   - config: The configuration for the detector.
//
// Returns:
//   - *ONNXDetector: The ready detector.
//   - error: An error if the runtime or the model cannot be loaded.
func NewONNXDetector(config Config) (*ONNXDetector, error) {
	session, err := inference.NewSession(inference.SessionConfig{
		ModelPath:   config.ModelPath,
		LibraryPath: config.LibraryPath,
		InputSize:   config.InputSize,
		NumClasses:  len(config.Classes),
		Options:     config.Provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX detector: %w", err)
	}

	log.Info().
		Str("model", config.ModelPath).
		Int("input_size", config.InputSize).
		Strs("classes", config.Classes).
		Str("provider", string(config.Provider.Provider)).
		Msg("✅ ONNX detector initialized")

	return &ONNXDetector{session: session, config: config}, nil
}

// Detect runs inference on the canvas.
func (d *ONNXDetector) Detect(ctx context.Context, canvas *images.Canvas) ([]inference.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, inference.ErrNotInitialized
	}

	if err := inference.PrepareInput(canvas, d.session.Input.GetData(), d.config.InputSize); err != nil {
		return nil, fmt.Errorf("failed to prepare input: %w", err)
	}
	if err := d.session.Session.Run(); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	return inference.Postprocess(
		d.session.Output.GetData(),
		d.session.Layout,
		canvas.Size(),
		d.config.Classes,
		d.config.ConfidenceThreshold,
		d.config.NMSThreshold,
	)
}

// Classes implements inference.Detector.
func (d *ONNXDetector) Classes() []string { return d.config.Classes }

// Engine implements inference.Detector.
func (d *ONNXDetector) Engine() inference.EngineType { return inference.EngineONNX }

// Close releases the session.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.Close()
	d.session = nil
	log.Info().Msg("🔒 ONNX detector closed")
	return err
}
