// Package inference - Inference sessions.
package inference

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/nvr-ai/intelliroad/inference/providers"
	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

// Session represents a model session from the onnxruntime.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
	// Layout describes Output.
	Layout OutputLayout
}

// SessionConfig holds what NewSession needs to bind a YOLOv8 ONNX export.
type SessionConfig struct {
	ModelPath   string
	LibraryPath string
	InputSize   int
	NumClasses  int
	Options     providers.Options
}

var envMu sync.Mutex

// InitializeEnvironment loads the onnxruntime shared library once per process.
func InitializeEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath == "" {
		libraryPath = providers.SharedLibraryPath()
	}
	if _, err := os.Stat(libraryPath); err != nil {
		return fmt.Errorf("ONNX Runtime library not found at %s: %w", libraryPath, err)
	}

	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("error initializing ORT environment: %w", err)
	}
	log.Info().Str("library", libraryPath).Msg("🚀 onnxruntime environment initialized")
	return nil
}

// NewSession creates a session with input "images" [1,3,S,S] and output "output0" [1,4+nc,N].
//
// The class count is taken from the model metadata when the output shape is static and
// must match cfg.NumClasses.
//
// Arguments:
//   - cfg: The session configuration.
//
// Returns:
//   - *Session: The bound session.
//   - error: An error if the environment, tensors or session cannot be created.
func NewSession(cfg SessionConfig) (*Session, error) {
	if err := InitializeEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	layout := OutputLayout{
		NumClasses: cfg.NumClasses,
		NumAnchors: AnchorsFor(cfg.InputSize),
		InputSize:  image.Point{X: cfg.InputSize, Y: cfg.InputSize},
	}
	if _, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath); err == nil && len(outputs) > 0 {
		dims := outputs[0].Dimensions
		if len(dims) == 3 && dims[1] > 4 && dims[2] > 0 {
			if nc := int(dims[1]) - 4; nc != cfg.NumClasses {
				return nil, fmt.Errorf("model has %d classes but %d class names are configured", nc, cfg.NumClasses)
			}
			layout.NumAnchors = int(dims[2])
		}
	} else if err != nil {
		return nil, fmt.Errorf("error reading model metadata: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(cfg.InputSize), int64(cfg.InputSize)))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+layout.NumClasses), int64(layout.NumAnchors)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	options, err := providers.SessionOptions(cfg.Options)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	return &Session{
		Session: session,
		Input:   inputTensor,
		Output:  outputTensor,
		Layout:  layout,
	}, nil
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	if s.Input != nil {
		s.Input.Destroy()
		s.Input = nil
	}
	if s.Output != nil {
		s.Output.Destroy()
		s.Output = nil
	}
	if s.Session != nil {
		err := s.Session.Destroy()
		s.Session = nil
		if err != nil {
			return fmt.Errorf("error destroying ORT session: %w", err)
		}
	}
	return nil
}
