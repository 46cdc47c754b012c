// Package cmd provides the CLI commands for reviewsearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/reviewsearch/internal/config"
	"github.com/Aman-CERP/reviewsearch/internal/logging"
	"github.com/Aman-CERP/reviewsearch/pkg/version"
)

var (
	configPath string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the reviewsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviewsearch",
		Short: "Flat-file product review store with text search",
		Long: `reviewsearch stores product reviews in an append-only flat-file log
and ranks them against free-text queries with a deterministic
multi-signal scorer. No database, no external index server.

Run 'reviewsearch serve' to start the REST API.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("reviewsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "Path to the config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.reviewsearch/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging installs the process-wide logger. Debug mode adds a
// rotated log file under the user's home directory.
func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.Config{
		Level:         "info",
		WriteToStderr: true,
	}
	if debugMode {
		if err := logging.EnsureLogDir(); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		logCfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)
	loggingCleanup = cleanup
	return nil
}

// loadConfig reads the configuration named by --config and applies the
// configured log level to the already-installed logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Server.LogLevel = "debug"
	}
	logging.SetLevel(cfg.Server.LogLevel)
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
