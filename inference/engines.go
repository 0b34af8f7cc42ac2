package inference

import "fmt"

// EngineType is the type of the engine
type EngineType string

const (
	// EngineONNX runs the model with the onnxruntime library.
	EngineONNX EngineType = "onnxruntime"
	// EngineOpenCV runs the model with the OpenCV DNN module.
	EngineOpenCV EngineType = "opencv"
)

// Engines is a list of all supported engines
var Engines = []EngineType{EngineONNX, EngineOpenCV}

// ParseEngine validates an engine name from configuration.
func ParseEngine(name string) (EngineType, error) {
	for _, e := range Engines {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown inference engine %q (supported: %v)", name, Engines)
}
