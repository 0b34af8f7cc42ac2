// Package gui - Desktop viewer showing the original and annotated image side by side.
package gui

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/nvr-ai/intelliroad/config"
	"github.com/nvr-ai/intelliroad/geo"
	"github.com/nvr-ai/intelliroad/images"
	"github.com/nvr-ai/intelliroad/pipeline"
	"github.com/nvr-ai/intelliroad/video"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// WindowTitle is the title of the viewer window.
const WindowTitle = "IntelliRoad Detect"

const (
	margin     = 10
	toolbarH   = 36
	keyEscape  = 27
	noKey      = -1
	hintFont   = gocv.FontHersheySimplex
	hintScale  = 0.5
	hintStroke = 1
)

var (
	background = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	enabled    = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	disabled   = color.RGBA{R: 170, G: 170, B: 170, A: 255}
)

// Display shows frames and reports key presses.
type Display interface {
	Show(frame gocv.Mat)
	// Key waits up to delay for a key press and returns its code, or -1.
	Key(delay time.Duration) int
	Close() error
}

// Viewer holds the state of the desktop application.
type Viewer struct {
	cfg      config.GUIConfig
	pipeline *pipeline.Pipeline
	picker   FilePicker
	display  Display

	original  *images.Canvas
	annotated *images.Canvas
	gps       *geo.Coordinate
	player    *video.Player

	openVideo  func(path string) (video.Source, error)
	openCamera func(device int) (video.Source, error)
	openMap    func(s geo.MapService, c geo.Coordinate) error
}

// NewViewer creates a viewer. The display may be nil when the viewer is only
// driven programmatically.
func NewViewer(cfg config.GUIConfig, p *pipeline.Pipeline, picker FilePicker, display Display) *Viewer {
	return &Viewer{
		cfg:        cfg,
		pipeline:   p,
		picker:     picker,
		display:    display,
		openVideo:  video.OpenFile,
		openCamera: video.OpenCamera,
		openMap:    geo.Open,
	}
}

// LoadImage decodes a file with the desktop decoder chain, runs detection and
// shows both versions. GPS metadata is read afterwards; a failure there only
// disables the location action.
//
// Arguments:
//   - ctx: Passed to the detector.
//   - path: The image file.
//
// Returns:
//   - error: A decode or detection error. The previous image stays on screen.
func (v *Viewer) LoadImage(ctx context.Context, path string) error {
	canvas, err := images.DecodeFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("❌ failed to decode image")
		return err
	}

	if err := v.process(ctx, canvas); err != nil {
		return err
	}

	coord, ok, err := geo.ExtractFile(path)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("path", path).Msg("GPS extraction failed")
		v.gps = nil
	case !ok:
		log.Info().Str("path", path).Msg("image has no GPS data")
		v.gps = nil
	default:
		log.Info().Float64("latitude", coord.Latitude).Float64("longitude", coord.Longitude).Msg("✅ GPS found")
		v.gps = &coord
	}
	return nil
}

// process takes ownership of canvas.
func (v *Viewer) process(ctx context.Context, canvas *images.Canvas) error {
	result, err := v.pipeline.Process(ctx, canvas)
	if err != nil {
		canvas.Close()
		log.Error().Err(err).Msg("❌ detection failed")
		return err
	}
	defer result.Close()

	original, err := images.Thumbnail(result.Original, v.cfg.MaxWidth, v.cfg.MaxHeight)
	if err != nil {
		return errors.Wrap(err, "resize original")
	}
	annotated, err := images.Thumbnail(result.Annotated, v.cfg.MaxWidth, v.cfg.MaxHeight)
	if err != nil {
		original.Close()
		return errors.Wrap(err, "resize result")
	}

	v.original.Close()
	v.annotated.Close()
	v.original, v.annotated = original, annotated
	return nil
}

// LoadVideo plays a video file through the detector.
func (v *Viewer) LoadVideo(path string) error {
	src, err := v.openVideo(path)
	if err != nil {
		return err
	}
	v.play(src)
	log.Info().Str("path", path).Msg("▶️ playing video")
	return nil
}

// StartCamera streams the configured camera through the detector.
func (v *Viewer) StartCamera() error {
	src, err := v.openCamera(v.cfg.CameraDevice)
	if err != nil {
		return err
	}
	v.play(src)
	log.Info().Int("device", v.cfg.CameraDevice).Msg("📷 camera started")
	return nil
}

func (v *Viewer) play(src video.Source) {
	v.Stop()
	v.gps = nil
	v.player = video.NewPlayer(src, v.cfg.FrameDelay, func(ctx context.Context, frame *images.Canvas) error {
		return v.process(ctx, frame.Clone())
	})
}

// Stop ends video or camera playback. The last frame stays on screen.
func (v *Viewer) Stop() {
	if v.player == nil {
		return
	}
	v.player.Stop()
	v.player = nil
}

// Playing reports whether a video or camera is active.
func (v *Viewer) Playing() bool {
	return v.player != nil && v.player.Running()
}

// HasLocation reports whether the go-to-location action is enabled.
func (v *Viewer) HasLocation() bool {
	return v.gps != nil
}

// GoToLocation opens the position of the last image in Google Maps.
func (v *Viewer) GoToLocation() error {
	if v.gps == nil {
		return geo.ErrNoGPS
	}
	return v.openMap(geo.GoogleMaps, *v.gps)
}

// Tick advances playback by one frame if a player is active.
func (v *Viewer) Tick(ctx context.Context) {
	if v.player == nil {
		return
	}
	if !v.player.Step(ctx) {
		v.player = nil
		log.Info().Msg("⏹️ playback finished")
	}
}

// HandleKey runs the action bound to key and reports whether the viewer should exit.
//
//	o open image, v open video, c start camera, s stop,
//	g go to location, q or Esc quit.
func (v *Viewer) HandleKey(ctx context.Context, key int) bool {
	if key == noKey {
		return false
	}
	key &= 0xff

	var err error
	switch key {
	case 'o':
		var path string
		if path, err = v.picker.PickImage(); err == nil && path != "" {
			v.Stop()
			err = v.LoadImage(ctx, path)
		}
	case 'v':
		var path string
		if path, err = v.picker.PickVideo(); err == nil && path != "" {
			err = v.LoadVideo(path)
		}
	case 'c':
		err = v.StartCamera()
	case 's':
		v.Stop()
	case 'g':
		if v.HasLocation() {
			err = v.GoToLocation()
		}
	case 'q', keyEscape:
		return true
	}
	if err != nil {
		log.Error().Err(err).Str("key", string(rune(key))).Msg("action failed")
	}
	return false
}

// Run shows the window until the user quits or ctx is cancelled.
func (v *Viewer) Run(ctx context.Context) error {
	defer v.Close()

	delay := v.cfg.FrameDelay
	if delay < time.Millisecond {
		delay = time.Millisecond
	}

	for ctx.Err() == nil {
		v.Tick(ctx)

		frame := v.Compose()
		v.display.Show(frame)
		frame.Close()

		if v.HandleKey(ctx, v.display.Key(delay)) {
			return nil
		}
	}
	return ctx.Err()
}

// Close stops playback and releases the shown images.
func (v *Viewer) Close() {
	v.Stop()
	v.original.Close()
	v.annotated.Close()
	v.original, v.annotated = nil, nil
}

// Compose renders the whole window: the key hints on top, the original on the
// left and the detection result on the right.
func (v *Viewer) Compose() gocv.Mat {
	w := 2*v.cfg.MaxWidth + 3*margin
	h := toolbarH + v.cfg.MaxHeight + 2*margin
	out := images.NewBlankCanvas(w, h, background, images.OrderBGR)

	v.drawToolbar(out)

	top := toolbarH + margin
	left := image.Rect(margin, top, margin+v.cfg.MaxWidth, top+v.cfg.MaxHeight)
	right := left.Add(image.Pt(v.cfg.MaxWidth+margin, 0))
	v.drawPane(out, left, v.original, "Please select image to detect")
	v.drawPane(out, right, v.annotated, "Results")

	return out.Mat
}

func (v *Viewer) drawToolbar(out *images.Canvas) {
	hints := []struct {
		text string
		on   bool
	}{
		{"[o] image", true},
		{"[v] video", true},
		{"[c] camera", true},
		{"[s] stop", v.Playing()},
		{"[g] location", v.HasLocation()},
		{"[q] exit", true},
	}

	x := margin
	for _, hint := range hints {
		c := disabled
		if hint.on {
			c = enabled
		}
		gocv.PutText(&out.Mat, hint.text, image.Pt(x, toolbarH-12), hintFont, hintScale, c, hintStroke)
		size := gocv.GetTextSize(hint.text, hintFont, hintScale, hintStroke)
		x += size.X + 2*margin
	}
}

func (v *Viewer) drawPane(out *images.Canvas, area image.Rectangle, pane *images.Canvas, placeholder string) {
	if pane == nil {
		size := gocv.GetTextSize(placeholder, hintFont, hintScale, hintStroke)
		origin := image.Pt(area.Min.X+(area.Dx()-size.X)/2, area.Min.Y+(area.Dy()+size.Y)/2)
		gocv.PutText(&out.Mat, placeholder, origin, hintFont, hintScale, enabled, hintStroke)
		return
	}

	src := pane
	if pane.Order != images.OrderBGR {
		converted, err := pane.Convert(images.OrderBGR)
		if err != nil {
			log.Error().Err(err).Msg("failed to convert pane")
			return
		}
		defer converted.Close()
		src = converted
	}

	pw, ph := min(src.Width(), area.Dx()), min(src.Height(), area.Dy())
	offset := image.Pt(area.Min.X+(area.Dx()-pw)/2, area.Min.Y+(area.Dy()-ph)/2)

	dst := out.Mat.Region(image.Rectangle{Min: offset, Max: offset.Add(image.Pt(pw, ph))})
	defer dst.Close()
	if pw == src.Width() && ph == src.Height() {
		src.Mat.CopyTo(&dst)
		return
	}
	crop := src.Mat.Region(image.Rect(0, 0, pw, ph))
	defer crop.Close()
	crop.CopyTo(&dst)
}

type window struct {
	w *gocv.Window
}

// NewWindow opens the highgui window.
func NewWindow() Display {
	return &window{w: gocv.NewWindow(WindowTitle)}
}

func (w *window) Show(frame gocv.Mat) {
	w.w.IMShow(frame)
}

func (w *window) Key(delay time.Duration) int {
	return w.w.WaitKey(int(delay / time.Millisecond))
}

func (w *window) Close() error {
	return w.w.Close()
}
