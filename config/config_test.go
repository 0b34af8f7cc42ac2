package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvr-ai/intelliroad/inference"
	"github.com/nvr-ai/intelliroad/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intelliroad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", Options{})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5001", cfg.Server.Addr())
	assert.EqualValues(t, 50<<20, cfg.Server.MaxUploadBytes)
	assert.Equal(t, "onnxruntime", cfg.Model.Engine)
	assert.Equal(t, 640, cfg.Model.InputSize)
	assert.InDelta(t, 0.25, cfg.Model.Confidence, 1e-6)
	assert.InDelta(t, 0.7, cfg.Model.IoU, 1e-6)
	assert.Equal(t, 600, cfg.GUI.MaxWidth)
	assert.Equal(t, 600, cfg.GUI.MaxHeight)
	assert.Equal(t, 10*time.Millisecond, cfg.GUI.FrameDelay)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
model:
  path: /models/fire.onnx
  engine: opencv
  class_set: fire-smoke
  confidence: 0.4
overlay:
  policy: fire-smoke
gui:
  frame_delay: 40ms
log:
  level: debug
  pretty: true
`)

	cfg, err := Load(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "/models/fire.onnx", cfg.Model.Path)
	assert.Equal(t, "opencv", cfg.Model.Engine)
	assert.InDelta(t, 0.4, cfg.Model.Confidence, 1e-6)
	assert.Equal(t, 40*time.Millisecond, cfg.GUI.FrameDelay)
	assert.True(t, cfg.Log.Pretty)

	dc, err := cfg.DetectorConfig()
	require.NoError(t, err)
	assert.Equal(t, inference.EngineOpenCV, dc.Engine)
	assert.Equal(t, []string{"Fire", "Smoke"}, dc.Classes)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")
	t.Setenv("INTELLIROAD_SERVER_PORT", "9090")
	t.Setenv("INTELLIROAD_MODEL_PROVIDER", "coreml")

	cfg, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "coreml", cfg.Model.Provider)
}

func TestLoad_OptionsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INTELLIROAD_SERVER_PORT", "9090")

	cfg, err := Load("", Options{Port: 7000, Host: "0.0.0.0", ModelPath: "m.onnx"})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Addr())
	assert.Equal(t, "m.onnx", cfg.Model.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), Options{})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"upload limit", func(c *Config) { c.Server.MaxUploadBytes = 0 }, "max_upload_bytes"},
		{"engine", func(c *Config) { c.Model.Engine = "tensorrt" }, "model.engine"},
		{"provider", func(c *Config) { c.Model.Provider = "cuda" }, "model.provider"},
		{"class set", func(c *Config) { c.Model.ClassSet = "animals" }, "model.class_set"},
		{"input size", func(c *Config) { c.Model.InputSize = 500 }, "model.input_size"},
		{"confidence", func(c *Config) { c.Model.Confidence = 1.5 }, "model.confidence"},
		{"iou", func(c *Config) { c.Model.IoU = -0.1 }, "model.iou"},
		{"policy", func(c *Config) { c.Overlay.Policy = "neon" }, "overlay.policy"},
		{"side", func(c *Config) { c.Overlay.FontScaleSide = "diagonal" }, "font_scale_side"},
		{"rounding", func(c *Config) { c.Overlay.ConfidenceRounding = "down" }, "confidence_rounding"},
		{"gui size", func(c *Config) { c.GUI.MaxWidth = 0 }, "gui.max_width"},
		{"frame delay", func(c *Config) { c.GUI.FrameDelay = -time.Second }, "frame_delay"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	t.Chdir(t.TempDir())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("", Options{})
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDetectorConfig_ClassSources(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", Options{})
	require.NoError(t, err)

	dc, err := cfg.DetectorConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"cracks", "pothole"}, dc.Classes)

	classFile := filepath.Join(t.TempDir(), "classes.txt")
	require.NoError(t, os.WriteFile(classFile, []byte("# road\nrutting\nraveling\n"), 0o600))
	cfg.Model.ClassFile = classFile
	dc, err = cfg.DetectorConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"rutting", "raveling"}, dc.Classes)

	cfg.Model.Classes = []string{"manhole"}
	dc, err = cfg.DetectorConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"manhole"}, dc.Classes)
}

func TestOverlayPolicy(t *testing.T) {
	cfg := &Config{}

	p, err := cfg.OverlayPolicy("road-defect-web")
	require.NoError(t, err)
	assert.Equal(t, "road-defect-web", p.Name)
	assert.Equal(t, overlay.RoundNearest, p.Rounding)

	cfg.Overlay = OverlayConfig{Policy: "road-defect", FontScaleSide: "shortest", ConfidenceRounding: "nearest"}
	p, err = cfg.OverlayPolicy("road-defect-web")
	require.NoError(t, err)
	assert.Equal(t, "road-defect", p.Name)
	assert.Equal(t, overlay.RoundNearest, p.Rounding)
	assert.Equal(t, 0.5, p.FontScale.FontScale(1000, 400))

	cfg.Overlay = OverlayConfig{Policy: "fire-smoke", FontScaleSide: "shortest"}
	p, err = cfg.OverlayPolicy("")
	require.NoError(t, err)
	assert.Equal(t, 1.1, p.FontScale.FontScale(10, 10))

	cfg.Overlay = OverlayConfig{}
	_, err = cfg.OverlayPolicy("unknown")
	assert.Error(t, err)
}
