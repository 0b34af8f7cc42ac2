// Package pipeline - Runs the detector once per image and renders the result.
package pipeline

import (
	"context"
	"time"

	"github.com/nvr-ai/intelliroad/images"
	"github.com/nvr-ai/intelliroad/inference"
	"github.com/nvr-ai/intelliroad/metrics"
	"github.com/nvr-ai/intelliroad/overlay"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Result holds both versions of a processed image.
type Result struct {
	// Original is an untouched copy of the input.
	Original *images.Canvas
	// Annotated is the input with boxes and labels drawn on it.
	Annotated *images.Canvas
	// Detections are in detector order.
	Detections []inference.Detection
}

// Close releases both canvases.
func (r *Result) Close() {
	if r == nil {
		return
	}
	r.Original.Close()
	r.Annotated.Close()
}

// Pipeline couples a shared detector with a renderer.
type Pipeline struct {
	detector inference.Detector
	renderer *overlay.Renderer
}

// New creates a pipeline.
func New(detector inference.Detector, renderer *overlay.Renderer) *Pipeline {
	return &Pipeline{detector: detector, renderer: renderer}
}

// Detector returns the shared detector.
func (p *Pipeline) Detector() inference.Detector { return p.detector }

// Renderer returns the renderer.
func (p *Pipeline) Renderer() *overlay.Renderer { return p.renderer }

// Process detects objects on canvas and draws them.
//
// The canvas becomes Result.Annotated; a copy taken before drawing becomes
// Result.Original. On error the canvas is left untouched and still owned by the caller.
//
// Arguments:
//   - ctx: Cancels the call before inference starts.
//   - canvas: The decoded image.
//
// Returns:
//   - *Result: The original and annotated images with their detections.
//   - error: The detector error, wrapped.
func (p *Pipeline) Process(ctx context.Context, canvas *images.Canvas) (*Result, error) {
	start := time.Now()
	detections, err := p.detector.Detect(ctx, canvas)
	if err != nil {
		return nil, errors.Wrap(err, "detection failed")
	}
	elapsed := time.Since(start)

	labels := make([]string, len(detections))
	for i, d := range detections {
		labels[i] = d.Label
		log.Debug().
			Str("class", d.Label).
			Float32("confidence", d.Score).
			Str("box", d.Box.String()).
			Msg("detection")
	}
	metrics.RecordInference(string(p.detector.Engine()), elapsed, labels)

	original := canvas.Clone()
	p.renderer.Render(canvas, detections)

	log.Debug().
		Int("detections", len(detections)).
		Dur("inference", elapsed).
		Msg("image processed")

	return &Result{Original: original, Annotated: canvas, Detections: detections}, nil
}
