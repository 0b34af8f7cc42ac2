// Package detectors - YOLOv8 detectors backed by onnxruntime or the OpenCV DNN module.
package detectors

import (
	"fmt"

	"github.com/nvr-ai/intelliroad/inference"
	"github.com/nvr-ai/intelliroad/inference/providers"
)

// Config represents the configuration of a detector.
type Config struct {
	// Engine selects the backend.
	Engine inference.EngineType `json:"engine"`

	// ModelPath is the YOLOv8 ONNX export.
	ModelPath string `json:"model_path"`

	// LibraryPath is the onnxruntime shared library. Empty uses the platform default.
	LibraryPath string `json:"library_path"`

	// Classes are the class names in model output order.
	Classes []string `json:"classes"`

	// InputSize is the square model input edge in pixels.
	InputSize int `json:"input_size"`

	// ConfidenceThreshold filters detections below this confidence level
	ConfidenceThreshold float32 `json:"confidence_threshold"`

	// NMSThreshold controls Non-Maximum Suppression IoU threshold
	NMSThreshold float32 `json:"nms_threshold"`

	// Provider configures the onnxruntime session. Ignored by the OpenCV engine.
	Provider providers.Options `json:"provider"`
}

// DefaultConfig returns the road-defect model settings.
//
// Returns:
//   - Config: Defaults matching the YOLOv8 export.
//
// @example
// config := DefaultConfig()
// config.ModelPath = "path/to/best.onnx"
// detector, err := New(config)
func DefaultConfig() Config {
	classes, _ := inference.ClassSetRoadDefect.Classes()
	return Config{
		Engine:              inference.EngineONNX,
		ModelPath:           "./runs/detect/yolov8n_v8_200e/weights/best.onnx",
		Classes:             classes,
		InputSize:           inference.DefaultInputSize,
		ConfidenceThreshold: inference.DefaultConfidenceThreshold,
		NMSThreshold:        inference.DefaultIoUThreshold,
		Provider:            providers.DefaultOptions(),
	}
}

// Validate checks the configuration before a model is loaded.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("at least one class name is required")
	}
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		return fmt.Errorf("input size must be a positive multiple of 32, got %d", c.InputSize)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0, 1], got %v", c.ConfidenceThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("nms threshold must be in [0, 1], got %v", c.NMSThreshold)
	}
	return nil
}

// New creates the detector for c.Engine.
func New(c Config) (inference.Detector, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Engine {
	case inference.EngineONNX, "":
		return NewONNXDetector(c)
	case inference.EngineOpenCV:
		return NewOpenCVDetector(c)
	default:
		return nil, fmt.Errorf("unsupported engine: %s", c.Engine)
	}
}
