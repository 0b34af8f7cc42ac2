package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/intelliroad/gui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewGUICmd creates the gui command.
func NewGUICmd(g *GlobalFlags) *cobra.Command {
	var model modelFlags

	cmd := &cobra.Command{
		Use:   "gui [image]",
		Short: "Open the desktop viewer",
		Long: `Open a window showing the original image next to the detection result.

Keys: o open image, v open video, c start camera, s stop,
g open the image location in Google Maps, q or Esc quit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			display := gui.NewWindow()
			defer display.Close()

			viewer := gui.NewViewer(cfg.GUI, p, gui.DialogPicker{}, display)
			if len(args) == 1 {
				if err := viewer.LoadImage(ctx, args[0]); err != nil {
					log.Error().Err(err).Str("path", args[0]).Msg("could not open image")
				}
			}
			if err := viewer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	model.register(cmd)
	return cmd
}
