package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/intelliroad/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd(g *GlobalFlags) *cobra.Command {
	var (
		host  string
		port  int
		model modelFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP detection service",
		Long: `Serve POST /detect: upload an image in the multipart field "file" and
receive the annotated PNG. Also serves /ping, /health and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := model.options()
			opts.Host, opts.Port = host, port

			cfg, err := loadConfig(g, opts)
			if err != nil {
				return err
			}

			p, err := newPipeline(cfg, "road-defect-web")
			if err != nil {
				return err
			}
			defer p.Detector().Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := server.New(cfg.Server, p).Start(ctx); err != nil {
				return err
			}
			log.Info().Msg("detection server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen address (default 127.0.0.1)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default 5001)")
	model.register(cmd)
	return cmd
}

