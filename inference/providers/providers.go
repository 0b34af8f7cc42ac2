// Package providers - ONNX Runtime execution provider selection.
package providers

import (
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

// Provider represents different ONNX Runtime execution providers
type Provider string

const (
	// CPUExecutionProvider uses CPU for inference
	CPUExecutionProvider Provider = "cpu"

	// CoreMLExecutionProvider uses Apple CoreML for macOS/iOS acceleration
	CoreMLExecutionProvider Provider = "coreml"

	// OpenVINOExecutionProvider uses Intel OpenVINO for inference optimization
	OpenVINOExecutionProvider Provider = "openvino"
)

// Parse validates a provider name. An empty name selects the CPU provider.
func Parse(name string) (Provider, error) {
	switch Provider(name) {
	case "", CPUExecutionProvider:
		return CPUExecutionProvider, nil
	case CoreMLExecutionProvider, OpenVINOExecutionProvider:
		return Provider(name), nil
	default:
		return "", fmt.Errorf("unsupported execution provider: %s", name)
	}
}

// Options configures an ONNX Runtime session.
type Options struct {
	// Provider is the accelerator to register in front of the CPU fallback.
	Provider Provider `mapstructure:"provider" json:"provider" yaml:"provider"`
	// IntraOpThreads parallelizes execution within graph nodes. 0 uses the default.
	IntraOpThreads int `mapstructure:"intra_op_threads" json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads parallelizes execution across graph nodes. 0 uses the default.
	InterOpThreads int `mapstructure:"inter_op_threads" json:"inter_op_threads" yaml:"inter_op_threads"`
}

// DefaultOptions returns CPU execution with the thread counts the detector was tuned for.
func DefaultOptions() Options {
	return Options{
		Provider:       CPUExecutionProvider,
		IntraOpThreads: 4,
		InterOpThreads: 2,
	}
}

// SessionOptions builds ORT session options for o.
//
// Arguments:
//   - o: The provider and threading options.
//
// Returns:
//   - *ort.SessionOptions: Options the caller must Destroy.
//   - error: An error if the options cannot be created or the provider fails to register.
//
// @example
// options, err := providers.SessionOptions(providers.DefaultOptions())
//
//	if err != nil {
//	    return err
//	}
//
// defer options.Destroy()
func SessionOptions(o Options) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}

	if err := configure(options, o); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func configure(options *ort.SessionOptions, o Options) error {
	if err := options.SetIntraOpNumThreads(o.IntraOpThreads); err != nil {
		return fmt.Errorf("error setting intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(o.InterOpThreads); err != nil {
		return fmt.Errorf("error setting inter-op threads: %w", err)
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return fmt.Errorf("error setting graph optimization level: %w", err)
	}

	switch o.Provider {
	case CoreMLExecutionProvider:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return fmt.Errorf("error enabling CoreML: %w", err)
		}
	case OpenVINOExecutionProvider:
		threads := o.IntraOpThreads
		if threads <= 0 {
			threads = runtime.NumCPU()
		}
		err := options.AppendExecutionProviderOpenVINO(map[string]string{
			"device_type":    "CPU",
			"precision":      "FP32",
			"num_of_threads": fmt.Sprint(threads),
		})
		if err != nil {
			return fmt.Errorf("error enabling OpenVINO: %w", err)
		}
	case "", CPUExecutionProvider:
	default:
		return fmt.Errorf("unsupported execution provider: %s", o.Provider)
	}

	log.Debug().Str("provider", string(o.Provider)).Msg("configured ORT session options")
	return nil
}

// SharedLibraryPath returns the onnxruntime shared library to load.
//
// ONNXRUNTIME_SHARED_LIBRARY_PATH wins over the per-platform default under ./third_party.
//
// Returns:
//   - string: The path to the shared library, or "" on an unsupported platform.
func SharedLibraryPath() string {
	if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
	return ""
}
