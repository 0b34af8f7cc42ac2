// Package video - Frame sources and the polling player used for video files and cameras.
package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Source yields BGR frames. *gocv.VideoCapture implements it.
type Source interface {
	// Read fills m with the next frame. False means the stream ended or failed.
	Read(m *gocv.Mat) bool
	Close() error
}

type propertySource interface {
	Get(prop gocv.VideoCaptureProperties) float64
}

// OpenCamera opens a capture device, 0 being the default camera.
func OpenCamera(device int) (Source, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %d is not available", device)
	}
	return capture, nil
}

// OpenFile opens a video file.
func OpenFile(path string) (Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("failed to open video %s", path)
	}
	return capture, nil
}

// FPS reports the source frame rate, or fallback when the source does not know it.
func FPS(src Source, fallback float64) float64 {
	if p, ok := src.(propertySource); ok {
		if fps := p.Get(gocv.VideoCaptureFPS); fps > 0 {
			return fps
		}
	}
	return fallback
}
