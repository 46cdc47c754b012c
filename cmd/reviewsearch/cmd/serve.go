package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/reviewsearch/internal/api"
	"github.com/Aman-CERP/reviewsearch/internal/config"
	"github.com/Aman-CERP/reviewsearch/internal/ingest"
	"github.com/Aman-CERP/reviewsearch/internal/search"
	"github.com/Aman-CERP/reviewsearch/internal/store"
)

func newServeCmd() *cobra.Command {
	var addr string
	var dataDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the review REST API",
		Long: `Start the HTTP server exposing review submission, bulk upload, and
text search. The server runs until interrupted and drains in-flight
requests on shutdown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dataDir != "" {
				cfg.Storage.DataDir = dataDir
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default().With(slog.String("component", "serve"))
	logger.Info("starting reviewsearch",
		slog.String("addr", cfg.Server.Addr),
		slog.String("data_dir", cfg.Storage.DataDir),
		slog.String("log_level", cfg.Server.LogLevel))

	svc, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	server := api.NewServer(svc.pipeline, svc.engine, svc.store, api.Options{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
		Logger:          logger,
	})
	return server.Run(ctx)
}

// service bundles the wired core components shared by serve and mcp.
type service struct {
	store    *store.ReviewStore
	pipeline *ingest.Pipeline
	engine   *search.Engine
}

func (s *service) close() {
	_ = s.store.Close()
}

// buildService opens the store and wires the pipeline and search engine
// from the resolved configuration.
func buildService(cfg *config.Config, logger *slog.Logger) (*service, error) {
	st, err := store.Open(store.Options{
		DataDir:     cfg.Storage.DataDir,
		LockTimeout: cfg.Storage.LockTimeout.Std(),
		MaxReaders:  int64(cfg.Storage.MaxReaders),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open review store: %w", err)
	}

	if cfg.Storage.Watch {
		if err := st.Watch(); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to start store watcher: %w", err)
		}
	}

	engine, err := search.NewEngine(st, search.Options{
		DefaultLimit:   cfg.Search.DefaultLimit,
		MaxLimit:       cfg.Search.MaxLimit,
		TokenCacheSize: cfg.Search.TokenCacheSize,
		Logger:         logger,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &service{
		store:    st,
		pipeline: ingest.NewPipeline(st, logger),
		engine:   engine,
	}, nil
}
