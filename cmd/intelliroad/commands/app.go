// Package commands - Subcommands of the intelliroad CLI.
package commands

import (
	"github.com/nvr-ai/intelliroad/config"
	"github.com/nvr-ai/intelliroad/inference/detectors"
	"github.com/nvr-ai/intelliroad/logging"
	"github.com/nvr-ai/intelliroad/overlay"
	"github.com/nvr-ai/intelliroad/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// GlobalFlags are shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	Debug      bool
}

// modelFlags override the model section for one run.
type modelFlags struct {
	modelPath string
	engine    string
	policy    string
}

func (m *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.modelPath, "model", "", "Path to the YOLOv8 ONNX model")
	cmd.Flags().StringVar(&m.engine, "engine", "", "Inference engine (onnxruntime, opencv)")
	cmd.Flags().StringVar(&m.policy, "policy", "", "Overlay policy (road-defect, road-defect-web, fire-smoke)")
}

func (m *modelFlags) options() config.Options {
	return config.Options{ModelPath: m.modelPath, Engine: m.engine, Policy: m.policy}
}

// loadConfig reads the configuration and sets up logging.
func loadConfig(g *GlobalFlags, opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(g.ConfigPath, opts)
	if err != nil {
		return nil, err
	}

	level, pretty := cfg.Log.Level, cfg.Log.Pretty
	if g.Debug {
		level, pretty = "debug", true
	}
	if err := logging.Setup(level, pretty); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newPipeline loads the model once and pairs it with the overlay policy.
// policy is used when the configuration does not name one.
func newPipeline(cfg *config.Config, policy string) (*pipeline.Pipeline, error) {
	dc, err := cfg.DetectorConfig()
	if err != nil {
		return nil, err
	}
	p, err := cfg.OverlayPolicy(policy)
	if err != nil {
		return nil, err
	}

	det, err := detectors.New(dc)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("engine", string(det.Engine())).
		Str("model", dc.ModelPath).
		Strs("classes", det.Classes()).
		Str("policy", p.Name).
		Msg("model loaded")
	return pipeline.New(det, overlay.NewRenderer(p)), nil
}
