package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/intelliroad/benchmark"
	"github.com/nvr-ai/intelliroad/util"
	"github.com/spf13/cobra"
)

// NewBenchmarkCmd creates the benchmark command.
func NewBenchmarkCmd(g *GlobalFlags) *cobra.Command {
	var (
		output     string
		iterations int
		warmup     int
		model      modelFlags
	)

	cmd := &cobra.Command{
		Use:   "benchmark <directory>",
		Short: "Measure decode, detection and encode throughput",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := util.ListDirectoryImageFiles(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no images found in %s", args[0])
			}

			cfg, err := loadConfig(g, model.options())
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg, "road-defect-web")
			if err != nil {
				return err
			}
			defer p.Detector().Close()

			suite := benchmark.NewSuite(p, output)
			for _, f := range files {
				data, err := f.Read()
				if err != nil {
					return err
				}
				suite.AddImage(data)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scenario := benchmark.DefaultScenario(iterations)
			scenario.WarmupRuns = warmup
			m, err := suite.RunScenario(ctx, scenario)
			if err != nil {
				return err
			}

			jsonPath, csvPath, err := suite.SaveResults()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d images, %.2f fps, error rate %.2f%%\n",
				len(files), m.FramesPerSecond, m.ErrorRate*100)
			fmt.Fprintf(cmd.OutOrStdout(), "results: %s\nsummary: %s\n", jsonPath, csvPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "./benchmark_results", "Directory for result files")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 100, "Number of measured iterations")
	cmd.Flags().IntVar(&warmup, "warmup", 3, "Number of warmup iterations")
	model.register(cmd)
	return cmd
}
