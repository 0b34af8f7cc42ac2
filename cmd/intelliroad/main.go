package main

import (
	"fmt"
	"os"

	"github.com/nvr-ai/intelliroad/cmd/intelliroad/commands"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

func main() {
	flags := &commands.GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:   "intelliroad",
		Short: "IntelliRoad Detect - road defect detection",
		Long: `IntelliRoad Detect finds cracks and potholes in road images with a YOLOv8 model
and draws labelled boxes around them.

Configuration is read from intelliroad.yaml (or --config) and can be
overridden with INTELLIROAD_* environment variables, for example:
  INTELLIROAD_MODEL_PATH=./best.onnx
  INTELLIROAD_SERVER_PORT=5001`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(commands.NewServeCmd(flags))
	rootCmd.AddCommand(commands.NewGUICmd(flags))
	rootCmd.AddCommand(commands.NewPredictCmd(flags))
	rootCmd.AddCommand(commands.NewLocateCmd(flags))
	rootCmd.AddCommand(commands.NewBenchmarkCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
