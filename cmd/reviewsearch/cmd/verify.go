package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/reviewsearch/internal/store"
	"github.com/Aman-CERP/reviewsearch/internal/ui"
)

func newVerifyCmd() *cobra.Command {
	var jsonOutput bool
	var dataDir string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the review log for corruption",
		Long: `Scan the review log and report malformed records and position
mismatches. Exits non-zero when the log fails verification.`,
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

			result, err := st.Verify(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				styles := ui.AutoStyles()
				w := cmd.OutOrStdout()
				if result.IsValid {
					fmt.Fprintln(w, styles.Success.Render(fmt.Sprintf("Log is valid: %d records", result.ValidLines)))
				} else {
					fmt.Fprintln(w, styles.Error.Render(fmt.Sprintf("Log is corrupt: %d of %d lines invalid", len(result.Errors), result.TotalLines)))
					for _, le := range result.Errors {
						fmt.Fprintf(w, "  %s line %d: %s\n", styles.Warning.Render("!"), le.Line, le.Reason)
					}
				}
			}

			if !result.IsValid {
				return fmt.Errorf("log verification failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")

	return cmd
}
