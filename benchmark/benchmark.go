// Package benchmark - Measures decode, detection and encode throughput of a pipeline.
package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/nvr-ai/intelliroad/images"
	"github.com/nvr-ai/intelliroad/pipeline"
	"github.com/rs/zerolog/log"
)

// Scenario defines one benchmark run over the loaded images.
type Scenario struct {
	Name       string             `json:"name"`
	Iterations int                `json:"iterations"`
	WarmupRuns int                `json:"warmup_runs"`
	Encode     images.ImageFormat `json:"encode"`
}

// DefaultScenario mirrors one HTTP request per iteration: decode, detect and
// render, encode as PNG.
func DefaultScenario(iterations int) Scenario {
	return Scenario{Name: "http-png", Iterations: iterations, WarmupRuns: 3, Encode: images.FormatPNG}
}

// PerformanceMetrics captures detailed performance data
type PerformanceMetrics struct {
	Scenario          Scenario      `json:"scenario"`
	Engine            string        `json:"engine"`
	Timestamp         time.Time     `json:"timestamp"`
	TotalDuration     time.Duration `json:"total_duration"`
	DecodeDuration    time.Duration `json:"decode_duration"`
	InferenceDuration time.Duration `json:"inference_duration"`
	EncodeDuration    time.Duration `json:"encode_duration"`
	FramesPerSecond   float64       `json:"frames_per_second"`
	MemoryStats       MemoryMetrics `json:"memory_stats"`
	NumCPU            int           `json:"num_cpu"`
	DetectionCount    int           `json:"detection_count"`
	ErrorRate         float64       `json:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

// Suite runs scenarios against a pipeline and keeps their results.
type Suite struct {
	pipeline  *pipeline.Pipeline
	outputDir string
	images    [][]byte

	mu      sync.Mutex
	results []PerformanceMetrics
}

// NewSuite creates a suite. Results are written to outputDir by SaveResults.
func NewSuite(p *pipeline.Pipeline, outputDir string) *Suite {
	return &Suite{pipeline: p, outputDir: outputDir}
}

// AddImage adds an encoded test image.
func (s *Suite) AddImage(data []byte) {
	s.images = append(s.images, data)
}

// RunScenario executes a single benchmark scenario.
//
// Arguments:
//   - ctx: Cancels between iterations.
//   - scenario: The run parameters.
//
// Returns:
//   - *PerformanceMetrics: Timings summed over all successful iterations.
//   - error: An error if no images are loaded or ctx is cancelled.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if len(s.images) == 0 {
		return nil, fmt.Errorf("no test images loaded")
	}
	if scenario.Iterations <= 0 {
		return nil, fmt.Errorf("iterations must be positive, got %d", scenario.Iterations)
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		_, _ = s.processImage(ctx, s.images[i%len(s.images)], scenario.Encode)
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Engine:    string(s.pipeline.Detector().Engine()),
		Timestamp: time.Now(),
		NumCPU:    runtime.NumCPU(),
	}

	failed := 0
	start := time.Now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := s.processImage(ctx, s.images[i%len(s.images)], scenario.Encode)
		if err != nil {
			failed++
			log.Debug().Err(err).Int("iteration", i).Msg("benchmark iteration failed")
			continue
		}
		metrics.DecodeDuration += t.decode
		metrics.InferenceDuration += t.inference
		metrics.EncodeDuration += t.encode
		metrics.DetectionCount += t.detections
	}
	metrics.TotalDuration = time.Since(start)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	metrics.FramesPerSecond = float64(scenario.Iterations-failed) / metrics.TotalDuration.Seconds()
	metrics.ErrorRate = float64(failed) / float64(scenario.Iterations)
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
	}

	s.mu.Lock()
	s.results = append(s.results, *metrics)
	s.mu.Unlock()

	log.Info().
		Str("scenario", scenario.Name).
		Float64("fps", metrics.FramesPerSecond).
		Float64("error_rate", metrics.ErrorRate).
		Msg("scenario completed")
	return metrics, nil
}

type timings struct {
	decode, inference, encode time.Duration
	detections                int
}

func (s *Suite) processImage(ctx context.Context, data []byte, encode images.ImageFormat) (timings, error) {
	var t timings

	start := time.Now()
	canvas, err := images.ServerChain().Decode(data)
	if err != nil {
		return t, err
	}
	t.decode = time.Since(start)

	start = time.Now()
	result, err := s.pipeline.Process(ctx, canvas)
	if err != nil {
		canvas.Close()
		return t, err
	}
	defer result.Close()
	t.inference = time.Since(start)
	t.detections = len(result.Detections)

	if encode != "" {
		start = time.Now()
		if _, err := images.Encode(result.Annotated, encode); err != nil {
			return t, err
		}
		t.encode = time.Since(start)
	}
	return t, nil
}

// Results returns all benchmark results.
func (s *Suite) Results() []PerformanceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PerformanceMetrics(nil), s.results...)
}

// SaveResults writes the results as JSON and a CSV summary into the output
// directory and returns both paths.
func (s *Suite) SaveResults() (string, string, error) {
	results := s.Results()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write results file: %w", err)
	}

	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return "", "", fmt.Errorf("failed to save summary CSV: %w", err)
	}
	return resultsFile, summaryFile, nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{
		"Scenario", "Engine", "FPS", "Total_Duration_ms", "Decode_ms", "Inference_ms",
		"Encode_ms", "Alloc_MB", "Detections", "Error_Rate",
	}); err != nil {
		return err
	}

	ms := func(d time.Duration) string { return strconv.FormatFloat(float64(d.Nanoseconds())/1e6, 'f', 2, 64) }
	for _, r := range results {
		if err := w.Write([]string{
			r.Scenario.Name,
			r.Engine,
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			ms(r.TotalDuration),
			ms(r.DecodeDuration),
			ms(r.InferenceDuration),
			ms(r.EncodeDuration),
			strconv.FormatFloat(float64(r.MemoryStats.AllocBytes)/(1024*1024), 'f', 2, 64),
			strconv.Itoa(r.DetectionCount),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
