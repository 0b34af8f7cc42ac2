package video

import (
	"fmt"

	"github.com/nvr-ai/intelliroad/images"
	"gocv.io/x/gocv"
)

// Writer encodes annotated frames into a video file. It is opened lazily on the
// first frame, when the frame size is known.
type Writer struct {
	path   string
	codec  string
	fps    float64
	writer *gocv.VideoWriter
}

// NewWriter prepares a writer. codec is a FourCC such as "MJPG" or "mp4v".
func NewWriter(path, codec string, fps float64) *Writer {
	return &Writer{path: path, codec: codec, fps: fps}
}

// Write appends one frame. RGB canvases are converted to BGR first.
func (w *Writer) Write(c *images.Canvas) error {
	if w.writer == nil {
		vw, err := gocv.VideoWriterFile(w.path, w.codec, w.fps, c.Width(), c.Height(), true)
		if err != nil {
			return fmt.Errorf("failed to create video %s: %w", w.path, err)
		}
		w.writer = vw
	}

	frame := c
	if c.Order != images.OrderBGR {
		converted, err := c.Convert(images.OrderBGR)
		if err != nil {
			return err
		}
		defer converted.Close()
		frame = converted
	}
	return w.writer.Write(frame.Mat)
}

// Close finishes the file. Closing a writer that never got a frame is a no-op.
func (w *Writer) Close() error {
	if w.writer == nil {
		return nil
	}
	err := w.writer.Close()
	w.writer = nil
	return err
}
