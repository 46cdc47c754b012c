package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/reviewsearch/internal/store"
	"github.com/Aman-CERP/reviewsearch/internal/ui"
)

// StatsOutput is the JSON output format for store stats.
type StatsOutput struct {
	ReviewCount int    `json:"review_count"`
	DataDir     string `json:"data_dir"`
	LogPath     string `json:"log_path"`
	LogExists   bool   `json:"log_exists"`
	IndexExists bool   `json:"index_exists"`
	LogSizeByte int64  `json:"log_size_bytes"`
	LockTimeout string `json:"lock_timeout"`
}

func newStatsCmd() *cobra.Command {
	var jsonOutput bool
	var dataDir string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review store statistics",
		Long: `Display statistics about the review store:
  - Number of stored reviews
  - Data directory and log file size
  - Configured lock timeout`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.Storage.DataDir = dataDir
			}

			st, err := store.Open(store.Options{
				DataDir:     cfg.Storage.DataDir,
				LockTimeout: cfg.Storage.LockTimeout.Std(),
				MaxReaders:  int64(cfg.Storage.MaxReaders),
			})
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			logExists, indexExists := st.Paths().FilesExist()
			out := StatsOutput{
				ReviewCount: st.Count(),
				DataDir:     cfg.Storage.DataDir,
				LogPath:     st.Paths().ReviewsLog,
				LogExists:   logExists,
				IndexExists: indexExists,
				LockTimeout: time.Duration(cfg.Storage.LockTimeout).String(),
			}
			if info, err := os.Stat(st.Paths().ReviewsLog); err == nil {
				out.LogSizeByte = info.Size()
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			styles := ui.AutoStyles()
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, styles.Header.Render("Review Store"))
			fmt.Fprintf(w, "%s %s\n", styles.Label.Render("Reviews:"), styles.Value.Render(fmt.Sprintf("%d", out.ReviewCount)))
			fmt.Fprintf(w, "%s %s\n", styles.Label.Render("Data dir:"), out.DataDir)
			if out.LogExists {
				fmt.Fprintf(w, "%s %s (%d bytes)\n", styles.Label.Render("Log file:"), out.LogPath, out.LogSizeByte)
			} else {
				fmt.Fprintf(w, "%s %s %s\n", styles.Label.Render("Log file:"), out.LogPath, styles.Warning.Render("(missing)"))
			}
			fmt.Fprintf(w, "%s %s\n", styles.Label.Render("Lock timeout:"), out.LockTimeout)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")

	return cmd
}
