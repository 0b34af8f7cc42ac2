package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nvr-ai/intelliroad/images"
	"github.com/nvr-ai/intelliroad/overlay"
	"github.com/nvr-ai/intelliroad/pipeline"
	"github.com/nvr-ai/intelliroad/util"
	"github.com/nvr-ai/intelliroad/video"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

// NewPredictCmd creates the predict command.
func NewPredictCmd(g *GlobalFlags) *cobra.Command {
	var (
		output string
		format string
		show   bool
		model  modelFlags
	)

	cmd := &cobra.Command{
		Use:   "predict <image|directory|video>",
		Short: "Annotate images or a video and save the results",
		Long: `Run detection on an image, every image in a directory, or each frame of a
video. Annotated images are written to --output in --format; videos are
written as MJPG .avi files. Each detection is printed as "<class> <confidence>".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(g, model.options())
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg, "road-defect")
			if err != nil {
				return err
			}
			defer p.Detector().Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pr := &predictor{
				pipeline: p,
				output:   output,
				format:   outFormat,
				out:      cmd.OutOrStdout(),
			}
			if show {
				pr.show = newPreview()
				defer pr.show.Close()
			}

			written, err := pr.run(ctx, args[0])
			log.Info().Int("files", len(written)).Str("output", output).Msg("prediction finished")
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "./predictions", "Directory for annotated results")
	cmd.Flags().StringVar(&format, "format", "png", "Output image format (png, jpg, webp)")
	cmd.Flags().BoolVar(&show, "show", false, "Show each result in a window")
	model.register(cmd)
	return cmd
}

func parseOutputFormat(s string) (images.ImageFormat, error) {
	f, ok := images.FormatFromPath("." + strings.ToLower(s))
	if !ok || !f.CanEncode() {
		return "", fmt.Errorf("unsupported output format %q (use png, jpg or webp)", s)
	}
	return f, nil
}

func extension(f images.ImageFormat) string {
	if f == images.FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// previewer shows results while predicting.
type previewer interface {
	// Show displays the pair. Wait zero blocks until a key is pressed.
	Show(original, annotated *images.Canvas, wait time.Duration)
	Close()
}

type preview struct {
	original, annotated *gocv.Window
}

func newPreview() *preview {
	return &preview{original: gocv.NewWindow("Original"), annotated: gocv.NewWindow("Detection")}
}

func (p *preview) Show(original, annotated *images.Canvas, wait time.Duration) {
	for _, pair := range []struct {
		w *gocv.Window
		c *images.Canvas
	}{{p.original, original}, {p.annotated, annotated}} {
		bgr, err := pair.c.Convert(images.OrderBGR)
		if err != nil {
			continue
		}
		pair.w.IMShow(bgr.Mat)
		bgr.Close()
	}
	p.annotated.WaitKey(int(wait / time.Millisecond))
}

func (p *preview) Close() {
	p.original.Close()
	p.annotated.Close()
}

type predictor struct {
	pipeline *pipeline.Pipeline
	output   string
	format   images.ImageFormat
	out      io.Writer
	show     previewer
}

// run dispatches on the source kind and returns the files written.
func (pr *predictor) run(ctx context.Context, source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("source not found: %w", err)
	}
	if err := os.MkdirAll(pr.output, 0o755); err != nil {
		return nil, err
	}

	if info.IsDir() {
		files, err := util.ListDirectoryImageFiles(source)
		if err != nil {
			return nil, err
		}
		var written []string
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			path, err := pr.image(ctx, f.Path)
			if err != nil {
				log.Error().Err(err).Str("path", f.Path).Msg("❌ skipped image")
				continue
			}
			written = append(written, path)
		}
		return written, nil
	}

	if _, ok := images.FormatFromPath(source); ok {
		path, err := pr.image(ctx, source)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	path, err := pr.video(ctx, source)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (pr *predictor) outputPath(source, ext string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(pr.output, base+ext)
}

func (pr *predictor) report(result *pipeline.Result) {
	policy := pr.pipeline.Renderer().Policy()
	for _, d := range result.Detections {
		fmt.Fprintf(pr.out, "%s %s\n", d.Label, overlay.FormatConfidence(d.Score, policy.Rounding))
	}
}

func (pr *predictor) image(ctx context.Context, path string) (string, error) {
	canvas, err := images.DecodeFile(path)
	if err != nil {
		return "", err
	}
	result, err := pr.pipeline.Process(ctx, canvas)
	if err != nil {
		canvas.Close()
		return "", err
	}
	defer result.Close()

	pr.report(result)

	dst := pr.outputPath(path, extension(pr.format))
	if err := images.WriteFile(dst, result.Annotated); err != nil {
		return "", err
	}
	log.Info().Str("path", path).Str("output", dst).Int("detections", len(result.Detections)).Msg("✅ saved")

	if pr.show != nil {
		pr.show.Show(result.Original, result.Annotated, 0)
	}
	return dst, nil
}

func (pr *predictor) video(ctx context.Context, path string) (string, error) {
	src, err := video.OpenFile(path)
	if err != nil {
		return "", err
	}

	dst := pr.outputPath(path, ".avi")
	writer := video.NewWriter(dst, "MJPG", video.FPS(src, 30))
	defer writer.Close()

	player := video.NewPlayer(src, time.Millisecond, func(ctx context.Context, frame *images.Canvas) error {
		canvas := frame.Clone()
		result, err := pr.pipeline.Process(ctx, canvas)
		if err != nil {
			canvas.Close()
			return err
		}
		defer result.Close()

		pr.report(result)
		if pr.show != nil {
			pr.show.Show(result.Original, result.Annotated, time.Millisecond)
		}
		return writer.Write(result.Annotated)
	})
	if err := player.Run(ctx); err != nil {
		return dst, err
	}

	log.Info().Str("path", path).Str("output", dst).Int("frames", player.Frames()).Int("dropped", player.Dropped()).Msg("✅ saved")
	return dst, nil
}
