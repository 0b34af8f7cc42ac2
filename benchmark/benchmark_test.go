package benchmark

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"testing"

	"github.com/nvr-ai/intelliroad/images"
	"github.com/nvr-ai/intelliroad/inference"
	"github.com/nvr-ai/intelliroad/overlay"
	"github.com/nvr-ai/intelliroad/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	calls  int
	failOn map[int]bool
}

func (f *fakeDetector) Detect(context.Context, *images.Canvas) ([]inference.Detection, error) {
	f.calls++
	if f.failOn[f.calls] {
		return nil, errors.New("inference failed")
	}
	return []inference.Detection{{Box: image.Rect(1, 1, 10, 10), Label: "cracks", Score: 0.5}}, nil
}

func (f *fakeDetector) Classes() []string             { return []string{"cracks", "pothole"} }
func (f *fakeDetector) Engine() inference.EngineType { return "fake" }
func (f *fakeDetector) Close() error                  { return nil }

func testImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 32, 24))))
	return buf.Bytes()
}

func newSuite(t *testing.T, det *fakeDetector) *Suite {
	t.Helper()
	s := NewSuite(pipeline.New(det, overlay.NewRenderer(overlay.RoadDefectPolicy())), t.TempDir())
	s.AddImage(testImage(t))
	return s
}

func TestRunScenario(t *testing.T) {
	det := &fakeDetector{}
	s := newSuite(t, det)

	m, err := s.RunScenario(context.Background(), DefaultScenario(5))
	require.NoError(t, err)

	assert.Equal(t, 8, det.calls, "3 warmup runs plus 5 iterations")
	assert.Equal(t, "fake", m.Engine)
	assert.Equal(t, 5, m.DetectionCount)
	assert.Zero(t, m.ErrorRate)
	assert.Greater(t, m.FramesPerSecond, 0.0)
	assert.Positive(t, m.NumCPU)
	assert.Len(t, s.Results(), 1)
}

func TestRunScenario_CountsErrors(t *testing.T) {
	det := &fakeDetector{failOn: map[int]bool{2: true, 4: true}}
	s := newSuite(t, det)

	m, err := s.RunScenario(context.Background(), Scenario{Name: "no-encode", Iterations: 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.ErrorRate, 1e-9)
	assert.Equal(t, 2, m.DetectionCount)
	assert.Zero(t, m.EncodeDuration)
}

func TestRunScenario_Invalid(t *testing.T) {
	empty := NewSuite(pipeline.New(&fakeDetector{}, overlay.NewRenderer(overlay.RoadDefectPolicy())), t.TempDir())
	_, err := empty.RunScenario(context.Background(), DefaultScenario(1))
	assert.Error(t, err)

	s := newSuite(t, &fakeDetector{})
	_, err = s.RunScenario(context.Background(), DefaultScenario(0))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.RunScenario(ctx, Scenario{Name: "cancelled", Iterations: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveResults(t *testing.T) {
	s := newSuite(t, &fakeDetector{})
	_, err := s.RunScenario(context.Background(), DefaultScenario(2))
	require.NoError(t, err)

	jsonPath, csvPath, err := s.SaveResults()
	require.NoError(t, err)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var results []PerformanceMetrics
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, "http-png", results[0].Scenario.Name)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Scenario", rows[0][0])
	assert.Equal(t, []string{"http-png", "fake"}, rows[1][:2])
	assert.Equal(t, "2", rows[1][8])
}
