// Package config provides configuration management for IntelliRoad.
//
// Configuration is loaded from multiple sources with the following precedence:
//  1. Command-line flags (highest priority)
//  2. Environment variables (INTELLIROAD_* prefix)
//  3. Configuration file (intelliroad.yaml)
//  4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load("./intelliroad.yaml", config.Options{})
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Failed to load configuration")
//	}
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/nvr-ai/intelliroad/inference"
	"github.com/nvr-ai/intelliroad/inference/detectors"
	"github.com/nvr-ai/intelliroad/inference/providers"
	"github.com/nvr-ai/intelliroad/overlay"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds all configuration for IntelliRoad.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Overlay OverlayConfig `mapstructure:"overlay"`
	GUI     GUIConfig     `mapstructure:"gui"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the HTTP detection service.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ModelConfig selects the detection model and its runtime.
type ModelConfig struct {
	Path        string `mapstructure:"path"`
	Engine      string `mapstructure:"engine"`
	LibraryPath string `mapstructure:"library_path"`

	// Classes, when set, wins over ClassFile and ClassSet.
	Classes   []string `mapstructure:"classes"`
	ClassFile string   `mapstructure:"class_file"`
	ClassSet  string   `mapstructure:"class_set"`

	InputSize  int     `mapstructure:"input_size"`
	Confidence float32 `mapstructure:"confidence"`
	IoU        float32 `mapstructure:"iou"`

	Provider       string `mapstructure:"provider"`
	IntraOpThreads int    `mapstructure:"intra_op_threads"`
	InterOpThreads int    `mapstructure:"inter_op_threads"`
}

// OverlayConfig overrides the rendering policy. Empty fields keep the preset.
type OverlayConfig struct {
	Policy             string `mapstructure:"policy"`
	FontScaleSide      string `mapstructure:"font_scale_side"`
	ConfidenceRounding string `mapstructure:"confidence_rounding"`
}

// GUIConfig configures the desktop viewer.
type GUIConfig struct {
	MaxWidth     int           `mapstructure:"max_width"`
	MaxHeight    int           `mapstructure:"max_height"`
	FrameDelay   time.Duration `mapstructure:"frame_delay"`
	CameraDevice int           `mapstructure:"camera_device"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Options are command line overrides. Zero values are ignored.
type Options struct {
	Host      string
	Port      int
	ModelPath string
	Engine    string
	Policy    string
}

// Load loads configuration from file and applies command line options.
//
// Arguments:
//   - configPath: A YAML file. Empty searches ".", "$HOME/.intelliroad" and "/etc/intelliroad"
//     for intelliroad.yaml and continues with defaults when none exists.
//   - opts: Flag values that override everything else.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: An error if the file cannot be read or a value is invalid.
func Load(configPath string, opts Options) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("intelliroad")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.intelliroad")
		v.AddConfigPath("/etc/intelliroad")

		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix("INTELLIROAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Host != "" {
		v.Set("server.host", opts.Host)
	}
	if opts.Port != 0 {
		v.Set("server.port", opts.Port)
	}
	if opts.ModelPath != "" {
		v.Set("model.path", opts.ModelPath)
	}
	if opts.Engine != "" {
		v.Set("model.engine", opts.Engine)
	}
	if opts.Policy != "" {
		v.Set("overlay.policy", opts.Policy)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := detectors.DefaultConfig()

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.max_upload_bytes", 50<<20)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("model.path", d.ModelPath)
	v.SetDefault("model.engine", string(d.Engine))
	v.SetDefault("model.library_path", "")
	v.SetDefault("model.classes", []string{})
	v.SetDefault("model.class_file", "")
	v.SetDefault("model.class_set", string(inference.ClassSetRoadDefect))
	v.SetDefault("model.input_size", d.InputSize)
	v.SetDefault("model.confidence", d.ConfidenceThreshold)
	v.SetDefault("model.iou", d.NMSThreshold)
	v.SetDefault("model.provider", string(d.Provider.Provider))
	v.SetDefault("model.intra_op_threads", d.Provider.IntraOpThreads)
	v.SetDefault("model.inter_op_threads", d.Provider.InterOpThreads)

	v.SetDefault("overlay.policy", "")
	v.SetDefault("overlay.font_scale_side", "")
	v.SetDefault("overlay.confidence_rounding", "")

	v.SetDefault("gui.max_width", 600)
	v.SetDefault("gui.max_height", 600)
	v.SetDefault("gui.frame_delay", 10*time.Millisecond)
	v.SetDefault("gui.camera_device", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate rejects values that would fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}

	if _, err := inference.ParseEngine(c.Model.Engine); err != nil {
		return fmt.Errorf("model.engine: %w", err)
	}
	if _, err := providers.Parse(c.Model.Provider); err != nil {
		return fmt.Errorf("model.provider: %w", err)
	}
	if len(c.Model.Classes) == 0 && c.Model.ClassFile == "" {
		if _, err := inference.ClassSet(c.Model.ClassSet).Classes(); err != nil {
			return fmt.Errorf("model.class_set: %w", err)
		}
	}
	if c.Model.InputSize <= 0 || c.Model.InputSize%32 != 0 {
		return fmt.Errorf("model.input_size must be a positive multiple of 32, got %d", c.Model.InputSize)
	}
	if c.Model.Confidence < 0 || c.Model.Confidence > 1 {
		return fmt.Errorf("model.confidence must be in [0, 1], got %v", c.Model.Confidence)
	}
	if c.Model.IoU < 0 || c.Model.IoU > 1 {
		return fmt.Errorf("model.iou must be in [0, 1], got %v", c.Model.IoU)
	}

	if c.Overlay.Policy != "" {
		if _, err := overlay.PolicyByName(c.Overlay.Policy); err != nil {
			return fmt.Errorf("overlay.policy: %w", err)
		}
	}
	if _, err := overlay.ParseSide(c.Overlay.FontScaleSide); err != nil {
		return fmt.Errorf("overlay.font_scale_side: %w", err)
	}
	if _, err := overlay.ParseRounding(c.Overlay.ConfidenceRounding); err != nil {
		return fmt.Errorf("overlay.confidence_rounding: %w", err)
	}

	if c.GUI.MaxWidth <= 0 || c.GUI.MaxHeight <= 0 {
		return fmt.Errorf("gui.max_width and gui.max_height must be positive")
	}
	if c.GUI.FrameDelay < 0 {
		return fmt.Errorf("gui.frame_delay must not be negative")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// DetectorConfig resolves the class list and returns the detector settings.
func (c *Config) DetectorConfig() (detectors.Config, error) {
	classes := c.Model.Classes
	var err error
	switch {
	case len(classes) > 0:
	case c.Model.ClassFile != "":
		classes, err = inference.LoadClassFile(c.Model.ClassFile)
	default:
		classes, err = inference.ClassSet(c.Model.ClassSet).Classes()
	}
	if err != nil {
		return detectors.Config{}, err
	}

	provider, err := providers.Parse(c.Model.Provider)
	if err != nil {
		return detectors.Config{}, err
	}
	engine, err := inference.ParseEngine(c.Model.Engine)
	if err != nil {
		return detectors.Config{}, err
	}

	return detectors.Config{
		Engine:              engine,
		ModelPath:           c.Model.Path,
		LibraryPath:         c.Model.LibraryPath,
		Classes:             classes,
		InputSize:           c.Model.InputSize,
		ConfidenceThreshold: c.Model.Confidence,
		NMSThreshold:        c.Model.IoU,
		Provider: providers.Options{
			Provider:       provider,
			IntraOpThreads: c.Model.IntraOpThreads,
			InterOpThreads: c.Model.InterOpThreads,
		},
	}, nil
}

// OverlayPolicy returns the configured policy, or the named fallback when none is set,
// with the font scale side and rounding overrides applied.
func (c *Config) OverlayPolicy(fallback string) (overlay.Policy, error) {
	name := c.Overlay.Policy
	if name == "" {
		name = fallback
	}
	p, err := overlay.PolicyByName(name)
	if err != nil {
		return overlay.Policy{}, err
	}

	if c.Overlay.FontScaleSide != "" {
		side, err := overlay.ParseSide(c.Overlay.FontScaleSide)
		if err != nil {
			return overlay.Policy{}, err
		}
		if s, ok := p.FontScale.(overlay.SizeScale); ok {
			s.Side = side
			p.FontScale = s
		}
	}
	if c.Overlay.ConfidenceRounding != "" {
		r, err := overlay.ParseRounding(c.Overlay.ConfidenceRounding)
		if err != nil {
			return overlay.Policy{}, err
		}
		p.Rounding = r
	}
	return p, nil
}
