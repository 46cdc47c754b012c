package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/reviewsearch/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve review tools over the Model Context Protocol",
		Long: `Run an MCP server over stdio exposing submit_review, search_reviews,
and store_status tools, for use by agent clients. Logs go to stderr
and the log file, never stdout, which carries the protocol stream.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.Storage.DataDir = dataDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := slog.Default().With(slog.String("component", "mcp"))
			svc, err := buildService(cfg, logger)
			if err != nil {
				return err
			}
			defer svc.close()

			server := mcp.NewServer(svc.pipeline, svc.engine, svc.store, logger)
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")

	return cmd
}
