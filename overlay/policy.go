package overlay

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/intelliroad/inference"
	"gocv.io/x/gocv"
)

// Fixed layout thresholds.
const (
	// ThinStrokeMaxWidth is the box width below which label text is drawn 1 px thick.
	ThinStrokeMaxWidth = 210
	// SmallImageMaxSide is the image side below which the small font scale is used.
	SmallImageMaxSide = 600
	// DefaultPadding is the space between label text and its background edge.
	DefaultPadding = 5
	// DefaultBoxThickness is the stroke of detection rectangles.
	DefaultBoxThickness = 2
)

// Colors used by the presets, in true RGB.
var (
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Orange = color.RGBA{R: 255, G: 102, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Side selects which image dimension a SizeScale looks at.
type Side int

const (
	// LongestSide uses max(width, height).
	LongestSide Side = iota
	// ShortestSide uses min(width, height).
	ShortestSide
)

// ParseSide maps "longest" and "shortest" to a Side.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "longest", "":
		return LongestSide, nil
	case "shortest":
		return ShortestSide, nil
	}
	return 0, fmt.Errorf("unknown font scale side %q", s)
}

// FontScaleRule picks the label font scale for an image.
type FontScaleRule interface {
	FontScale(width, height int) float64
}

// SizeScale uses Small when the selected side is below Threshold and Large otherwise.
type SizeScale struct {
	Threshold    int
	Small, Large float64
	Side         Side
}

// FontScale implements FontScaleRule.
func (r SizeScale) FontScale(width, height int) float64 {
	side := max(width, height)
	if r.Side == ShortestSide {
		side = min(width, height)
	}
	if side < r.Threshold {
		return r.Small
	}
	return r.Large
}

// FixedScale ignores the image size.
type FixedScale float64

// FontScale implements FontScaleRule.
func (s FixedScale) FontScale(int, int) float64 { return float64(s) }

// ThicknessRule picks the label text thickness from the detection box width.
type ThicknessRule struct {
	Threshold   int
	Thin, Thick int
}

// Thickness returns Thin for boxes narrower than Threshold and Thick otherwise.
func (r ThicknessRule) Thickness(boxWidth int) int {
	if boxWidth < r.Threshold {
		return r.Thin
	}
	return r.Thick
}

// Rounding is how confidences are cut to two decimals.
type Rounding int

const (
	// RoundNearest rounds half away from zero.
	RoundNearest Rounding = iota
	// RoundUp always rounds up.
	RoundUp
)

// ParseRounding maps "nearest" and "up" to a Rounding.
func ParseRounding(s string) (Rounding, error) {
	switch strings.ToLower(s) {
	case "nearest", "round", "":
		return RoundNearest, nil
	case "up", "ceil":
		return RoundUp, nil
	}
	return 0, fmt.Errorf("unknown confidence rounding %q", s)
}

// FormatConfidence rounds a score to two decimals and prints it in its shortest form,
// always keeping one decimal digit: 0.9, 0.87, 1.0.
//
// The arithmetic stays in float32 like the model output, so 0.87 * 100 is exactly 87
// and rounding up does not turn it into 0.88.
func FormatConfidence(score float32, r Rounding) string {
	scaled := score * 100
	if r == RoundUp {
		scaled = math32.Ceil(scaled)
	} else {
		scaled = math32.Round(scaled)
	}
	s := strconv.FormatFloat(float64(scaled/100), 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Policy is the table that turns detections into overlay styling.
type Policy struct {
	Name         string
	Colors       map[string]color.RGBA
	DefaultColor color.RGBA
	TextColor    color.RGBA
	Font         gocv.HersheyFont
	FontScale    FontScaleRule
	Thickness    ThicknessRule
	Rounding     Rounding
	Padding      int
	BoxThickness int
}

// ColorFor returns the box and label background color of a class.
func (p Policy) ColorFor(label string) color.RGBA {
	if c, ok := p.Colors[label]; ok {
		return c
	}
	return p.DefaultColor
}

// LabelText returns "<name> <confidence>".
func (p Policy) LabelText(d inference.Detection) string {
	return d.Label + " " + FormatConfidence(d.Score, p.Rounding)
}

// RoadDefectPolicy draws cracks and potholes in red with a size-dependent font.
func RoadDefectPolicy() Policy {
	return Policy{
		Name:         "road-defect",
		DefaultColor: Red,
		TextColor:    White,
		Font:         gocv.FontHersheyDuplex,
		FontScale:    SizeScale{Threshold: SmallImageMaxSide, Small: 0.5, Large: 0.7, Side: LongestSide},
		Thickness:    ThicknessRule{Threshold: ThinStrokeMaxWidth, Thin: 1, Thick: 2},
		Rounding:     RoundUp,
		Padding:      DefaultPadding,
		BoxThickness: DefaultBoxThickness,
	}
}

// RoadDefectWebPolicy is the road-defect styling used for HTTP responses: nearest
// rounding and a font scale driven by the shortest image side.
func RoadDefectWebPolicy() Policy {
	p := RoadDefectPolicy()
	p.Name = "road-defect-web"
	p.FontScale = SizeScale{Threshold: SmallImageMaxSide, Small: 0.5, Large: 0.7, Side: ShortestSide}
	p.Rounding = RoundNearest
	return p
}

// FireSmokePolicy draws fire in red and smoke in orange with a fixed 1.1 font scale.
func FireSmokePolicy() Policy {
	p := RoadDefectPolicy()
	p.Name = "fire-smoke"
	p.Colors = map[string]color.RGBA{"Smoke": Orange}
	p.FontScale = FixedScale(1.1)
	return p
}

var policies = map[string]func() Policy{
	"road-defect":     RoadDefectPolicy,
	"road-defect-web": RoadDefectWebPolicy,
	"fire-smoke":      FireSmokePolicy,
}

// PolicyByName returns a preset.
func PolicyByName(name string) (Policy, error) {
	f, ok := policies[name]
	if !ok {
		return Policy{}, fmt.Errorf("unknown overlay policy %q", name)
	}
	return f(), nil
}
